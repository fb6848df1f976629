// Package service holds the editorial workflows on top of the repositories.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quill/internal/admin"
	"quill/internal/cache"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

// PostEvents receives post lifecycle notifications.
type PostEvents interface {
	PostPublished(ctx context.Context, post *models.Post) error
}

type PostService struct {
	postRepo  repository.PostRepository
	topicRepo repository.TopicRepository
	events    PostEvents
}

type CreatePostInput struct {
	AuthorID uint
	Title    string
	Slug     string
	Content  string
	// Status defaults to draft. Creating a published post runs Publish.
	Status   models.PostStatus
	TopicIDs []uint
}

// UpdatePostInput carries a partial update; nil fields are left unchanged.
type UpdatePostInput struct {
	PostID   uint
	Title    *string
	Slug     *string
	Content  *string
	Status   *models.PostStatus
	TopicIDs *[]uint
}

type ListPostsInput struct {
	Limit  int
	Offset int
	// Topic restricts the listing to a topic slug.
	Topic string
	// AuthorID restricts the listing to one author.
	AuthorID uint
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts []*models.Post `json:"posts"`
	Total int64          `json:"total"`
}

func NewPostService(
	postRepo repository.PostRepository,
	topicRepo repository.TopicRepository,
	events PostEvents,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		topicRepo: topicRepo,
		events:    events,
	}
}

// tracePost runs fn inside a post.<operation> span.
func tracePost(ctx context.Context, operation string, postID uint, fn func(context.Context) (*models.Post, error)) (*models.Post, error) {
	span, ctx := observability.StartPostSpan(ctx, operation, postID)
	post, err := fn(ctx)
	if post != nil {
		span.SetPost(post.ID, string(post.Status))
	}
	span.End(err)
	return post, err
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	return tracePost(ctx, "create", 0, func(ctx context.Context) (*models.Post, error) {
		return s.createPost(ctx, in)
	})
}

func (s *PostService) createPost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	status := in.Status
	if status == "" {
		status = models.PostStatusDraft
	}

	fields := admin.PostAdmin.Prepopulate(map[string]string{
		"title": in.Title,
		"slug":  in.Slug,
	})

	post := &models.Post{
		Title:    strings.TrimSpace(in.Title),
		Slug:     fields["slug"],
		AuthorID: in.AuthorID,
		Status:   status,
		Content:  in.Content,
	}
	if status == models.PostStatusPublished {
		post.Publish()
	}
	if err := post.Validate(); err != nil {
		return nil, err
	}

	topics, err := s.resolveTopics(ctx, in.TopicIDs)
	if err != nil {
		return nil, err
	}
	post.Topics = topics

	if err := s.ensureSlugFreeForDate(ctx, post); err != nil {
		return nil, err
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if post.IsPublished() {
		s.afterPublish(ctx, post)
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	return tracePost(ctx, "update", in.PostID, func(ctx context.Context) (*models.Post, error) {
		return s.updatePost(ctx, in)
	})
}

func (s *PostService) updatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetForUpdate(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	previousKey := dateSlugCacheKey(post)
	wasPublished := post.IsPublished()

	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Slug != nil {
		post.Slug = *in.Slug
		if post.Slug == "" {
			post.Slug = admin.PostAdmin.Prepopulate(map[string]string{"title": post.Title})["slug"]
		}
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.Status != nil && *in.Status != post.Status {
		switch *in.Status {
		case models.PostStatusPublished:
			post.Publish()
		case models.PostStatusDraft:
			return nil, models.NewValidationError("a published post cannot be returned to draft")
		default:
			return nil, models.NewValidationError(fmt.Sprintf("invalid status %q", *in.Status))
		}
	}
	if in.TopicIDs != nil {
		topics, err := s.resolveTopics(ctx, *in.TopicIDs)
		if err != nil {
			return nil, err
		}
		post.Topics = topics
	}

	if err := post.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFreeForDate(ctx, post); err != nil {
		return nil, err
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if previousKey != "" {
		cache.Invalidate(ctx, previousKey)
	}

	if !wasPublished && post.IsPublished() {
		s.afterPublish(ctx, post)
	}
	return post, nil
}

// PublishPost runs Publish on the stored post and saves it. Publishing an
// already published post re-stamps its publish time.
func (s *PostService) PublishPost(ctx context.Context, id uint) (*models.Post, error) {
	return tracePost(ctx, "publish", id, func(ctx context.Context) (*models.Post, error) {
		return s.publishPost(ctx, id)
	})
}

func (s *PostService) publishPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	previousKey := dateSlugCacheKey(post)

	post.Publish()

	if err := s.ensureSlugFreeForDate(ctx, post); err != nil {
		return nil, err
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("publish post: %w", err)
	}
	if previousKey != "" {
		cache.Invalidate(ctx, previousKey)
	}

	s.afterPublish(ctx, post)
	return post, nil
}

func (s *PostService) afterPublish(ctx context.Context, post *models.Post) {
	observability.PostsPublished.Inc()
	if s.events == nil {
		return
	}
	if err := s.events.PostPublished(ctx, post); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to emit post.published",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PostService) ListPublished(ctx context.Context, in ListPostsInput) (*PostPage, error) {
	if in.Topic != "" {
		return s.page(ctx, s.postRepo.Query().Published().WithTopic(in.Topic), in)
	}

	page := &PostPage{}
	err := cache.Aside(ctx, cache.PublishedFeedKey(in.Limit, in.Offset), page, cache.FeedTTL, func() error {
		p, err := s.page(ctx, s.postRepo.Query().Published(), in)
		if err != nil {
			return err
		}
		*page = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *PostService) ListDrafts(ctx context.Context, in ListPostsInput) (*PostPage, error) {
	q := s.postRepo.Query().Draft()
	if in.Topic != "" {
		q = q.WithTopic(in.Topic)
	}
	if in.AuthorID != 0 {
		q = q.ByAuthor(in.AuthorID)
	}
	return s.page(ctx, q, in)
}

func (s *PostService) page(ctx context.Context, q repository.PostQuery, in ListPostsInput) (*PostPage, error) {
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := q.Page(in.Limit, in.Offset).Find(ctx)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Total: total}, nil
}

// GetPost returns a post by ID. Drafts are only visible when includeDrafts is set.
func (s *PostService) GetPost(ctx context.Context, id uint, includeDrafts bool) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !includeDrafts && !post.IsPublished() {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// GetPublishedByDate resolves the public /year/month/day/slug address.
func (s *PostService) GetPublishedByDate(ctx context.Context, year, month, day int, slug string) (*models.Post, error) {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values; reject them instead
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return nil, models.NewNotFoundError("Post", slug)
	}
	return s.postRepo.GetByDateSlug(ctx, date, slug)
}

func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	return s.postRepo.Delete(ctx, id)
}

func (s *PostService) resolveTopics(ctx context.Context, ids []uint) ([]models.Topic, error) {
	if len(ids) == 0 {
		return []models.Topic{}, nil
	}
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	topics, err := s.topicRepo.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(topics) != len(unique) {
		return nil, models.NewValidationError("one or more topics do not exist")
	}
	return topics, nil
}

// ensureSlugFreeForDate rejects a published post whose slug is already used
// on the same publish day.
func (s *PostService) ensureSlugFreeForDate(ctx context.Context, post *models.Post) error {
	if post.Published == nil {
		return nil
	}
	taken, err := s.postRepo.SlugTakenForDate(ctx, post.Slug, *post.Published, post.ID)
	if err != nil {
		return err
	}
	if taken {
		return models.NewValidationError(fmt.Sprintf(
			"slug %q is already used by a post published on %s",
			post.Slug, post.Published.UTC().Format("2006-01-02"),
		))
	}
	return nil
}

func dateSlugCacheKey(post *models.Post) string {
	start, _, ok := post.PublishedDay()
	if !ok {
		return ""
	}
	return cache.PostDateSlugKey(start.Year(), int(start.Month()), start.Day(), post.Slug)
}
