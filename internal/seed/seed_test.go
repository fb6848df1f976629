package seed

import (
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTopicCatalogue(t *testing.T) {
	specs, err := LoadTopicCatalogue(topicCatalogue)
	require.NoError(t, err)
	require.NotEmpty(t, specs)

	bySlug := map[string]string{}
	for _, s := range specs {
		assert.True(t, models.IsSlug(s.Slug), s.Slug)
		bySlug[s.Slug] = s.Name
	}
	assert.Equal(t, "Distributed Systems", bySlug["distributed"])
	assert.Equal(t, "Go", bySlug["go"])
}

func TestLoadTopicCatalogue_Invalid(t *testing.T) {
	_, err := LoadTopicCatalogue([]byte("topics: [unterminated"))
	assert.Error(t, err)
}

func TestSeed_CreatesPublishedAndDrafts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	res, err := Seed(db, Options{
		NumAuthors:   2,
		NumTopics:    3,
		NumPosts:     10,
		PublishRatio: 0.5,
		Factory:      FactoryOptions{Seed: 42, SkipBcrypt: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Topics)
	assert.Equal(t, 2, res.Authors)
	assert.Equal(t, 10, res.Published+res.Drafts)

	var published int64
	require.NoError(t, db.Model(&models.Post{}).Where("status = ?", models.PostStatusPublished).Count(&published).Error)
	assert.Equal(t, int64(res.Published), published)

	var unpublishedWithDate int64
	require.NoError(t, db.Model(&models.Post{}).
		Where("status = ? AND published IS NOT NULL", models.PostStatusDraft).
		Count(&unpublishedWithDate).Error)
	assert.Zero(t, unpublishedWithDate)
}

func TestSeed_CleanKeepsStaff(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	staff := testutil.CreateUser(t, db, "editor", "secret", true)

	_, err := Seed(db, Options{NumAuthors: 1, NumTopics: 2, NumPosts: 3, Factory: FactoryOptions{Seed: 1, SkipBcrypt: true}})
	require.NoError(t, err)

	require.NoError(t, ClearAll(db))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, staff.ID, users[0].ID)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
}

func TestFactory_DryRunAssignsIDs(t *testing.T) {
	f := NewFactory(nil, FactoryOptions{DryRun: true, SkipBcrypt: true, Seed: 7})

	u, err := f.CreateUser()
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	topic, err := f.CreateTopic(func(tp *models.Topic) { tp.Name = "Hello World" })
	require.NoError(t, err)
	assert.Equal(t, "hello-world", topic.Slug)

	p, err := f.CreatePublishedPost(u)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, models.PostStatusPublished, p.Status)
	assert.NotNil(t, p.Published)
	assert.NoError(t, p.Validate())
}
