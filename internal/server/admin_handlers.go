package server

import (
	"quill/internal/admin"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// changelistReserved are query parameters that are not filters.
var changelistReserved = map[string]bool{"q": true, "limit": true, "offset": true}

// GetAdminModels handles GET /api/admin/
func (s *Server) GetAdminModels(c *fiber.Ctx) error {
	out := make([]fiber.Map, 0)
	for _, name := range s.site.Names() {
		a, _ := s.site.Get(name)
		out = append(out, fiber.Map{
			"name":          a.Name,
			"list_display":  a.ListDisplay,
			"search_fields": a.SearchFields,
			"list_filter":   a.ListFilter,
			"prepopulated":  a.PrepopulatedFields,
		})
	}
	return c.JSON(out)
}

// GetChangelist handles GET /api/admin/:model
// @Summary Back-office changelist
// @Description Search (q), filter (any list_filter field) and page a registered model.
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param model path string true "Model name"
// @Param q query string false "Search terms"
// @Success 200 {object} admin.ChangelistResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/{model} [get]
func (s *Server) GetChangelist(c *fiber.Ctx) error {
	ma, ok := s.site.Get(c.Params("model"))
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Model", c.Params("model")))
	}

	filters := map[string]string{}
	for key, value := range c.Queries() {
		if !changelistReserved[key] && value != "" {
			filters[key] = value
		}
	}

	result, err := ma.Changelist(c.UserContext(), s.db, admin.ChangelistParams{
		Query:   c.Query("q"),
		Filters: filters,
		Limit:   c.QueryInt("limit", admin.DefaultPerPage),
		Offset:  max(c.QueryInt("offset", 0), 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetDrafts handles GET /api/admin/posts/drafts
func (s *Server) GetDrafts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)
	author := c.QueryInt("author", 0)
	if author < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("author must be a user ID"))
	}

	result, err := s.postService.ListDrafts(c.UserContext(), service.ListPostsInput{
		Limit:    page.Limit,
		Offset:   page.Offset,
		Topic:    c.Query("topic"),
		AuthorID: uint(author),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

type createPostRequest struct {
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Content  string `json:"content"`
	Status   string `json:"status"`
	AuthorID uint   `json:"author_id"`
	TopicIDs []uint `json:"topic_ids"`
}

// AdminCreatePost handles POST /api/admin/posts. The author defaults to the caller.
// @Summary Create a post
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createPostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/posts [post]
func (s *Server) AdminCreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	authorID := req.AuthorID
	if authorID == 0 {
		authorID = c.Locals("userID").(uint)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: authorID,
		Title:    req.Title,
		Slug:     req.Slug,
		Content:  req.Content,
		Status:   models.PostStatus(req.Status),
		TopicIDs: req.TopicIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

type updatePostRequest struct {
	Title    *string `json:"title"`
	Slug     *string `json:"slug"`
	Content  *string `json:"content"`
	Status   *string `json:"status"`
	TopicIDs *[]uint `json:"topic_ids"`
}

// AdminUpdatePost handles PUT /api/admin/posts/:id. Omitted fields are left unchanged.
func (s *Server) AdminUpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.UpdatePostInput{
		PostID:   id,
		Title:    req.Title,
		Slug:     req.Slug,
		Content:  req.Content,
		TopicIDs: req.TopicIDs,
	}
	if req.Status != nil {
		status := models.PostStatus(*req.Status)
		in.Status = &status
	}

	post, err := s.postService.UpdatePost(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// AdminPublishPost handles POST /api/admin/posts/:id/publish
// @Summary Publish a post
// @Description Sets status to published and stamps the publish time with the current time.
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/posts/{id}/publish [post]
func (s *Server) AdminPublishPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.PublishPost(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// AdminDeletePost handles DELETE /api/admin/posts/:id
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminCreateTopic handles POST /api/admin/topics. The slug is derived from the name when omitted.
func (s *Server) AdminCreateTopic(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	topic, err := s.topicService.CreateTopic(c.UserContext(), service.CreateTopicInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(topic)
}

// AdminDeleteTopic handles DELETE /api/admin/topics/:id
func (s *Server) AdminDeleteTopic(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.topicService.DeleteTopic(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminCreateStaff handles POST /api/admin/users
func (s *Server) AdminCreateStaff(c *fiber.Ctx) error {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.CreateStaff(c.UserContext(), service.CreateStaffInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// AdminDeleteUser handles DELETE /api/admin/users/:id
// @Summary Delete a user
// @Description Fails with 409 while the user still authors posts.
// @Tags admin
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/users/{id} [delete]
func (s *Server) AdminDeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.userService.DeleteUser(c.UserContext(), id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return models.RespondWithError(c, fiber.StatusConflict,
				models.NewConflictError("User still authors posts and cannot be deleted", err))
		}
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
