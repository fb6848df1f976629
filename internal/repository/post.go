package repository

import (
	"context"
	"errors"
	"time"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	// Query returns a lazy query over all posts.
	Query() PostQuery
	Published(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Draft(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// GetForUpdate reads the post from the database, bypassing the cache.
	GetForUpdate(ctx context.Context, id uint) (*models.Post, error)
	GetByDateSlug(ctx context.Context, day time.Time, slug string) (*models.Post, error)
	SlugTakenForDate(ctx context.Context, slug string, day time.Time, excludeID uint) (bool, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Query() PostQuery {
	return newPostQuery(r.db)
}

func (r *postRepository) Published(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return newPostQuery(readDB(r.db)).Published().Page(limit, offset).Find(ctx)
}

func (r *postRepository) Draft(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return newPostQuery(r.db).Draft().Page(limit, offset).Find(ctx)
}

// Create inserts the post and links its topics. Topics must already exist;
// they are never upserted from here.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()

	if err := r.db.WithContext(ctx).Omit("Author", "Topics.*").Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"id": post.ID, "slug": post.Slug, "status": post.Status})
	cache.InvalidatePublishedFeed(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		defer observability.TrackQuery("get", "posts")()
		return withPostDetails(r.db.WithContext(ctx)).First(&post, id).Error
	})
	if err != nil {
		return nil, notFound(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetForUpdate(ctx context.Context, id uint) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()

	var post models.Post
	if err := withPostDetails(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		return nil, notFound(err, "Post", id)
	}
	return &post, nil
}

// GetByDateSlug returns the published post with slug whose publish time falls
// on the UTC calendar day of day.
func (r *postRepository) GetByDateSlug(ctx context.Context, day time.Time, slug string) (*models.Post, error) {
	start, end := models.DayBounds(day)
	key := cache.PostDateSlugKey(start.Year(), int(start.Month()), start.Day(), slug)

	var post models.Post
	err := cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
		found, err := newPostQuery(readDB(r.db)).
			Published().
			Where("posts.slug = ?", slug).
			Where("posts.published >= ? AND posts.published < ?", start, end).
			First(ctx)
		if err != nil {
			return err
		}
		post = *found
		return nil
	})
	if err != nil {
		return nil, notFound(err, "Post", slug)
	}
	return &post, nil
}

// SlugTakenForDate reports whether another post already uses slug on the UTC
// day of day. excludeID skips the post being edited.
func (r *postRepository) SlugTakenForDate(ctx context.Context, slug string, day time.Time, excludeID uint) (bool, error) {
	start, end := models.DayBounds(day)
	q := newPostQuery(r.db).
		Where("posts.slug = ?", slug).
		Where("posts.published >= ? AND posts.published < ?", start, end)
	if excludeID != 0 {
		q = q.Where("posts.id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

// Update saves every column of post and replaces its topic links in one
// transaction. Only the links are written; topic rows are never upserted.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Topics").Save(post).Error; err != nil {
			return err
		}
		topics := post.Topics
		if topics == nil {
			topics = []models.Topic{}
		}
		return tx.Model(post).Omit("Topics.*").Association("Topics").Replace(topics)
	})
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}

	r.log.LogUpdate(ctx, map[string]any{"id": post.ID, "status": post.Status})
	cache.InvalidatePost(ctx, post.ID, dateSlugKey(post))
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()

	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return notFound(err, "Post", id)
	}

	res := r.db.WithContext(ctx).Select("Topics").Delete(&post)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "Post", id)
	}

	r.log.LogDelete(ctx, map[string]any{"id": id})
	cache.InvalidatePost(ctx, id, dateSlugKey(&post))
	return nil
}

func dateSlugKey(post *models.Post) string {
	start, _, ok := post.PublishedDay()
	if !ok {
		return ""
	}
	return cache.PostDateSlugKey(start.Year(), int(start.Month()), start.Day(), post.Slug)
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || models.HasCode(err, models.CodeNotFound)
}
