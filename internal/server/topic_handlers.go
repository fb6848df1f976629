package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetTopics handles GET /api/topics
// @Summary List topics
// @Tags topics
// @Produce json
// @Success 200 {array} models.Topic
// @Router /topics [get]
func (s *Server) GetTopics(c *fiber.Ctx) error {
	topics, err := s.topicService.ListTopics(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(topics)
}

// GetTopic handles GET /api/topics/:slug
func (s *Server) GetTopic(c *fiber.Ctx) error {
	topic, err := s.topicService.GetTopic(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(topic)
}

// GetTopicPosts handles GET /api/topics/:slug/posts
func (s *Server) GetTopicPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)

	result, err := s.topicService.PostsForTopic(c.UserContext(), c.Params("slug"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
