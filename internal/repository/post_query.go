package repository

import (
	"context"

	"quill/internal/models"
	"quill/internal/observability"

	"gorm.io/gorm"
)

// Scope narrows a posts query. Scopes are plain GORM scopes so they can be
// reused outside PostQuery.
type Scope func(*gorm.DB) *gorm.DB

// StatusScope keeps posts in the given status.
func StatusScope(status models.PostStatus) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.status = ?", status)
	}
}

// TopicScope keeps posts tagged with the topic whose slug is given.
func TopicScope(slug string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Table("post_topics").
			Select("post_topics.post_id").
			Joins("JOIN topics ON topics.id = post_topics.topic_id").
			Where("topics.slug = ?", slug)
		return db.Where("posts.id IN (?)", sub)
	}
}

// AuthorScope keeps posts written by the given user.
func AuthorScope(authorID uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.author_id = ?", authorID)
	}
}

// PostQuery is a lazily evaluated selection of posts. Each method returns a
// new PostQuery; nothing touches the database until Find, First or Count.
type PostQuery struct {
	db     *gorm.DB
	scopes []Scope
	limit  int
	offset int
}

func newPostQuery(db *gorm.DB) PostQuery {
	return PostQuery{db: db}
}

func (q PostQuery) with(s Scope) PostQuery {
	scopes := make([]Scope, len(q.scopes), len(q.scopes)+1)
	copy(scopes, q.scopes)
	q.scopes = append(scopes, s)
	return q
}

// Published keeps posts whose status is published.
func (q PostQuery) Published() PostQuery {
	return q.with(StatusScope(models.PostStatusPublished))
}

// Draft keeps posts whose status is draft.
func (q PostQuery) Draft() PostQuery {
	return q.with(StatusScope(models.PostStatusDraft))
}

// WithTopic keeps posts tagged with the topic slug.
func (q PostQuery) WithTopic(slug string) PostQuery {
	return q.with(TopicScope(slug))
}

// ByAuthor keeps posts written by authorID.
func (q PostQuery) ByAuthor(authorID uint) PostQuery {
	return q.with(AuthorScope(authorID))
}

// Where adds an arbitrary condition.
func (q PostQuery) Where(query interface{}, args ...interface{}) PostQuery {
	return q.with(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// Page bounds the result window. A non-positive limit means no limit.
func (q PostQuery) Page(limit, offset int) PostQuery {
	q.limit = limit
	q.offset = offset
	return q
}

func (q PostQuery) build(ctx context.Context) *gorm.DB {
	tx := q.db.WithContext(ctx).Model(&models.Post{})
	for _, s := range q.scopes {
		tx = tx.Scopes(s)
	}
	return tx
}

// Find runs the query in default ordering (newest first) with author and
// topics loaded.
func (q PostQuery) Find(ctx context.Context) ([]*models.Post, error) {
	defer observability.TrackQuery("find", "posts")()

	tx := withPostDetails(q.build(ctx)).Order(models.PostOrdering).Order("posts.id DESC")
	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}
	if q.offset > 0 {
		tx = tx.Offset(q.offset)
	}

	posts := []*models.Post{}
	if err := tx.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// First returns the first matching post in default ordering.
func (q PostQuery) First(ctx context.Context) (*models.Post, error) {
	defer observability.TrackQuery("first", "posts")()

	var post models.Post
	err := withPostDetails(q.build(ctx)).Order(models.PostOrdering).First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Count returns the number of matching posts, ignoring Page.
func (q PostQuery) Count(ctx context.Context) (int64, error) {
	defer observability.TrackQuery("count", "posts")()

	var n int64
	err := q.build(ctx).Count(&n).Error
	return n, err
}

// Exists reports whether any post matches.
func (q PostQuery) Exists(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	return n > 0, err
}

func withPostDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Topics", func(db *gorm.DB) *gorm.DB {
			return db.Order(models.TopicOrdering)
		})
}
