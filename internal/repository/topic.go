package repository

import (
	"context"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/observability"

	"gorm.io/gorm"
)

// TopicRepository defines persistence operations for topics.
type TopicRepository interface {
	Create(ctx context.Context, topic *models.Topic) error
	List(ctx context.Context) ([]models.Topic, error)
	GetBySlug(ctx context.Context, slug string) (*models.Topic, error)
	// FindByIDs returns the topics with the given IDs in name order. Missing
	// IDs are simply absent from the result.
	FindByIDs(ctx context.Context, ids []uint) ([]models.Topic, error)
	Delete(ctx context.Context, id uint) error
}

type topicRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewTopicRepository returns a new TopicRepository implementation.
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{db: db, log: observability.NewRepoLogger("topics")}
}

func (r *topicRepository) Create(ctx context.Context, topic *models.Topic) error {
	defer observability.TrackQuery("create", "topics")()

	if err := r.db.WithContext(ctx).Create(topic).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"id": topic.ID, "slug": topic.Slug})
	cache.InvalidateTopics(ctx)
	return nil
}

func (r *topicRepository) List(ctx context.Context) ([]models.Topic, error) {
	topics := []models.Topic{}
	err := cache.Aside(ctx, cache.TopicListKey, &topics, cache.TopicTTL, func() error {
		defer observability.TrackQuery("list", "topics")()
		return readDB(r.db).WithContext(ctx).Order(models.TopicOrdering).Find(&topics).Error
	})
	if err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *topicRepository) GetBySlug(ctx context.Context, slug string) (*models.Topic, error) {
	defer observability.TrackQuery("get", "topics")()

	var topic models.Topic
	if err := readDB(r.db).WithContext(ctx).Where("slug = ?", slug).First(&topic).Error; err != nil {
		return nil, notFound(err, "Topic", slug)
	}
	return &topic, nil
}

func (r *topicRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Topic, error) {
	topics := []models.Topic{}
	if len(ids) == 0 {
		return topics, nil
	}
	defer observability.TrackQuery("find", "topics")()

	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order(models.TopicOrdering).Find(&topics).Error
	return topics, err
}

func (r *topicRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "topics")()

	// cached post details embed their topics
	var tagged []models.Post
	if err := r.db.WithContext(ctx).
		Select("posts.id", "posts.slug", "posts.published").
		Joins("JOIN post_topics ON post_topics.post_id = posts.id").
		Where("post_topics.topic_id = ?", id).
		Find(&tagged).Error; err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}

	res := r.db.WithContext(ctx).Delete(&models.Topic{}, id)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Topic", id)
	}
	r.log.LogDelete(ctx, map[string]any{"id": id, "posts": len(tagged)})

	keys := make([]string, 0, 2*len(tagged))
	for i := range tagged {
		keys = append(keys, cache.PostKey(tagged[i].ID))
		if k := dateSlugKey(&tagged[i]); k != "" {
			keys = append(keys, k)
		}
	}
	cache.Invalidate(ctx, keys...)
	cache.InvalidateTopics(ctx)
	cache.InvalidatePublishedFeed(ctx)
	return nil
}
