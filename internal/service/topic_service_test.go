package service

import (
	"context"
	"errors"
	"testing"

	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/seed"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTopic_PrepopulatesSlug(t *testing.T) {
	tr := noopTopicRepo()
	var saved *models.Topic
	tr.createFn = func(_ context.Context, tp *models.Topic) error {
		saved = tp
		return nil
	}
	svc := NewTopicService(tr, noopPostRepo())

	topic, err := svc.CreateTopic(context.Background(), CreateTopicInput{Name: "Distributed Systems"})
	require.NoError(t, err)
	assert.Same(t, saved, topic)
	assert.Equal(t, "distributed-systems", topic.Slug)

	topic, err = svc.CreateTopic(context.Background(), CreateTopicInput{Name: "Go", Slug: "golang"})
	require.NoError(t, err)
	assert.Equal(t, "golang", topic.Slug)
}

func TestCreateTopic_Validation(t *testing.T) {
	svc := NewTopicService(noopTopicRepo(), noopPostRepo())

	_, err := svc.CreateTopic(context.Background(), CreateTopicInput{})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.CreateTopic(context.Background(), CreateTopicInput{Name: "Go", Slug: "go lang"})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestCreateTopic_DuplicateIsIntegrityError(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := NewTopicService(repository.NewTopicRepository(db), repository.NewPostRepository(db))
	ctx := context.Background()

	_, err := svc.CreateTopic(ctx, CreateTopicInput{Name: "Go"})
	require.NoError(t, err)

	_, err = svc.CreateTopic(ctx, CreateTopicInput{Name: "Go", Slug: "go-2"})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestPostsForTopic(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := seed.NewFactory(db, seed.FactoryOptions{Seed: 9, SkipBcrypt: true})
	svc := NewTopicService(repository.NewTopicRepository(db), repository.NewPostRepository(db))
	ctx := context.Background()

	author, err := f.CreateUser()
	require.NoError(t, err)
	goTopic, err := f.CreateTopic(func(tp *models.Topic) { tp.Name = "Go" })
	require.NoError(t, err)
	_, err = f.CreateTopic(func(tp *models.Topic) { tp.Name = "Empty" })
	require.NoError(t, err)

	live, err := f.CreatePublishedPost(author, seed.WithTopics(goTopic))
	require.NoError(t, err)
	_, err = f.CreatePost(author, seed.WithTopics(goTopic))
	require.NoError(t, err)

	page, err := svc.PostsForTopic(ctx, "go", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, live.ID, page.Posts[0].ID)

	empty, err := svc.PostsForTopic(ctx, "empty", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Posts)

	_, err = svc.PostsForTopic(ctx, "missing", 10, 0)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestListTopics_PassesThroughErrors(t *testing.T) {
	boom := errors.New("boom")
	tr := noopTopicRepo()
	tr.listFn = func(_ context.Context) ([]models.Topic, error) { return nil, boom }
	svc := NewTopicService(tr, noopPostRepo())

	_, err := svc.ListTopics(context.Background())
	assert.ErrorIs(t, err, boom)
}
