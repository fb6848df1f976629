package server

import (
	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary Published feed
// @Description Published posts, newest first. Optionally narrowed to a topic slug.
// @Tags posts
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param topic query string false "Topic slug"
// @Success 200 {object} service.PostPage
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)

	result, err := s.postService.ListPublished(c.UserContext(), service.ListPostsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
		Topic:  c.Query("topic"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetPostByDate handles GET /api/posts/:year/:month/:day/:slug
// @Summary Published post by date and slug
// @Tags posts
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Param day path int true "Day"
// @Param slug path string true "Slug"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{year}/{month}/{day}/{slug} [get]
func (s *Server) GetPostByDate(c *fiber.Ctx) error {
	year, yErr := c.ParamsInt("year")
	month, mErr := c.ParamsInt("month")
	day, dErr := c.ParamsInt("day")
	if yErr != nil || mErr != nil || dErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid date"))
	}

	post, err := s.postService.GetPublishedByDate(c.UserContext(), year, month, day, c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetPost handles GET /api/posts/:id. Drafts are only visible to staff.
// @Summary Post detail
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id, s.optionalStaff(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}
