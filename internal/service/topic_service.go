package service

import (
	"context"
	"fmt"
	"strings"

	"quill/internal/admin"
	"quill/internal/models"
	"quill/internal/repository"
)

type TopicService struct {
	topicRepo repository.TopicRepository
	postRepo  repository.PostRepository
}

type CreateTopicInput struct {
	Name string
	// Slug is derived from Name when empty.
	Slug string
}

func NewTopicService(topicRepo repository.TopicRepository, postRepo repository.PostRepository) *TopicService {
	return &TopicService{topicRepo: topicRepo, postRepo: postRepo}
}

func (s *TopicService) CreateTopic(ctx context.Context, in CreateTopicInput) (*models.Topic, error) {
	fields := admin.TopicAdmin.Prepopulate(map[string]string{
		"name": in.Name,
		"slug": in.Slug,
	})
	topic := &models.Topic{
		Name: strings.TrimSpace(in.Name),
		Slug: fields["slug"],
	}
	if err := topic.Validate(); err != nil {
		return nil, err
	}
	if err := s.topicRepo.Create(ctx, topic); err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return topic, nil
}

func (s *TopicService) ListTopics(ctx context.Context) ([]models.Topic, error) {
	return s.topicRepo.List(ctx)
}

func (s *TopicService) GetTopic(ctx context.Context, slug string) (*models.Topic, error) {
	return s.topicRepo.GetBySlug(ctx, slug)
}

// PostsForTopic lists the published posts tagged with the topic slug.
func (s *TopicService) PostsForTopic(ctx context.Context, slug string, limit, offset int) (*PostPage, error) {
	if _, err := s.topicRepo.GetBySlug(ctx, slug); err != nil {
		return nil, err
	}
	q := s.postRepo.Query().Published().WithTopic(slug)
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := q.Page(limit, offset).Find(ctx)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Total: total}, nil
}

// DeleteTopic removes a topic. Posts keep existing; only their tag links are dropped.
func (s *TopicService) DeleteTopic(ctx context.Context, id uint) error {
	return s.topicRepo.Delete(ctx, id)
}
