package admin_test

import (
	"context"
	"fmt"
	"testing"

	"quill/internal/admin"
	"quill/internal/models"
	"quill/internal/seed"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostAdminConfiguration(t *testing.T) {
	assert.Equal(t, []string{"title", "created", "updated"}, admin.PostAdmin.ListDisplay)
	assert.Equal(t, []string{"title", "author__username", "author__first_name", "author__last_name"}, admin.PostAdmin.SearchFields)
	assert.Equal(t, []string{"status", "topics"}, admin.PostAdmin.ListFilter)
	assert.Equal(t, map[string][]string{"slug": {"title"}}, admin.PostAdmin.PrepopulatedFields)
	assert.NoError(t, admin.PostAdmin.Validate())
}

func TestTopicAdminConfiguration(t *testing.T) {
	assert.Equal(t, []string{"name", "slug"}, admin.TopicAdmin.ListDisplay)
	assert.Equal(t, map[string][]string{"slug": {"name"}}, admin.TopicAdmin.PrepopulatedFields)
	assert.NoError(t, admin.TopicAdmin.Validate())
}

func TestSite(t *testing.T) {
	assert.Equal(t, []string{"posts", "topics"}, admin.DefaultSite.Names())

	a, ok := admin.DefaultSite.Get("posts")
	require.True(t, ok)
	assert.Same(t, admin.PostAdmin, a)

	_, ok = admin.DefaultSite.Get("users")
	assert.False(t, ok)

	s := admin.NewSite()
	require.NoError(t, s.Register(admin.TopicAdmin))
	assert.Error(t, s.Register(admin.TopicAdmin))

	broken := &admin.ModelAdmin{Name: "broken", ListDisplay: []string{"nope"}}
	assert.Error(t, s.Register(broken))
}

func TestPrepopulate(t *testing.T) {
	out := admin.PostAdmin.Prepopulate(map[string]string{"title": "Hello, World: Part 2!"})
	assert.Equal(t, "hello-world-part-2", out["slug"])

	out = admin.PostAdmin.Prepopulate(map[string]string{"title": "Hello", "slug": "custom"})
	assert.Equal(t, "custom", out["slug"])

	out = admin.TopicAdmin.Prepopulate(map[string]string{"name": "Distributed Systems"})
	assert.Equal(t, "distributed-systems", out["slug"])
}

func TestSlugify_Truncates(t *testing.T) {
	long := "a very long title that keeps going well past the width of the slug column"
	s := admin.Slugify(long)
	assert.LessOrEqual(t, len(s), admin.SlugMaxLength)
	assert.NotEqual(t, '-', rune(s[len(s)-1]))
	assert.True(t, models.IsSlug(s))
}

type fixture struct {
	db        *gorm.DB
	ada, bob  *models.User
	goTopic   *models.Topic
	dbTopic   *models.Topic
	goPost    *models.Post
	sqlPost   *models.Post
	draftPost *models.Post
}

func setupFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	f := seed.NewFactory(db, seed.FactoryOptions{Seed: 3, SkipBcrypt: true})

	ada, err := f.CreateUser(func(u *models.User) { u.Username, u.FirstName, u.LastName = "ada", "Ada", "Lovelace" })
	require.NoError(t, err)
	bob, err := f.CreateUser(func(u *models.User) { u.Username, u.FirstName, u.LastName = "bob", "Robert", "Pike" })
	require.NoError(t, err)

	goTopic, err := f.CreateTopic(func(tp *models.Topic) { tp.Name = "Go" })
	require.NoError(t, err)
	dbTopic, err := f.CreateTopic(func(tp *models.Topic) { tp.Name = "Databases" })
	require.NoError(t, err)

	goPost, err := f.CreatePublishedPost(ada, seed.WithTopics(goTopic), func(p *models.Post) { p.Title = "Concurrency in Go" })
	require.NoError(t, err)
	sqlPost, err := f.CreatePublishedPost(bob, seed.WithTopics(dbTopic), func(p *models.Post) { p.Title = "Indexes 100% explained" })
	require.NoError(t, err)
	draftPost, err := f.CreatePost(ada, seed.WithTopics(goTopic, dbTopic), func(p *models.Post) { p.Title = "Go and SQL" })
	require.NoError(t, err)

	return fixture{db: db, ada: ada, bob: bob, goTopic: goTopic, dbTopic: dbTopic, goPost: goPost, sqlPost: sqlPost, draftPost: draftPost}
}

func rowIDs(res *admin.ChangelistResult) []uint {
	ids := make([]uint, 0, len(res.Rows))
	for _, r := range res.Rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestChangelist_Search(t *testing.T) {
	fx := setupFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		q    string
		want []uint
	}{
		{name: "title", q: "concurrency", want: []uint{fx.goPost.ID}},
		{name: "author username", q: "bob", want: []uint{fx.sqlPost.ID}},
		{name: "author first name", q: "ADA", want: []uint{fx.goPost.ID, fx.draftPost.ID}},
		{name: "author last name", q: "pike", want: []uint{fx.sqlPost.ID}},
		{name: "terms are ANDed", q: "go lovelace", want: []uint{fx.goPost.ID, fx.draftPost.ID}},
		{name: "terms narrowing", q: "sql ada", want: []uint{fx.draftPost.ID}},
		{name: "percent is literal", q: "100%", want: []uint{fx.sqlPost.ID}},
		{name: "no match", q: "rust", want: []uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := admin.PostAdmin.Changelist(ctx, fx.db, admin.ChangelistParams{Query: tt.q})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, rowIDs(res))
			assert.Equal(t, int64(len(tt.want)), res.Total)
		})
	}
}

func TestChangelist_Filters(t *testing.T) {
	fx := setupFixture(t)
	ctx := context.Background()

	res, err := admin.PostAdmin.Changelist(ctx, fx.db, admin.ChangelistParams{Filters: map[string]string{"status": "draft"}})
	require.NoError(t, err)
	assert.Equal(t, []uint{fx.draftPost.ID}, rowIDs(res))

	res, err = admin.PostAdmin.Changelist(ctx, fx.db, admin.ChangelistParams{Filters: map[string]string{"topics": fx.goTopic.Slug}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{fx.goPost.ID, fx.draftPost.ID}, rowIDs(res))

	res, err = admin.PostAdmin.Changelist(ctx, fx.db, admin.ChangelistParams{Filters: map[string]string{
		"topics": fmt.Sprint(fx.dbTopic.ID),
		"status": "published",
	}})
	require.NoError(t, err)
	assert.Equal(t, []uint{fx.sqlPost.ID}, rowIDs(res))

	_, err = admin.PostAdmin.Changelist(ctx, fx.db, admin.ChangelistParams{Filters: map[string]string{"status": "archived"}})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = admin.PostAdmin.Changelist(ctx, fx.db, admin.ChangelistParams{Filters: map[string]string{"author": "1"}})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestChangelist_ProjectionAndPaging(t *testing.T) {
	fx := setupFixture(t)
	ctx := context.Background()

	res, err := admin.PostAdmin.Changelist(ctx, fx.db, admin.ChangelistParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"title", "created", "updated"}, res.Columns)
	for _, row := range res.Rows {
		assert.Len(t, row.Values, 3)
		assert.Contains(t, row.Values, "title")
		assert.NotContains(t, row.Values, "content")
	}

	topics, err := admin.TopicAdmin.Changelist(ctx, fx.db, admin.ChangelistParams{})
	require.NoError(t, err)
	require.Len(t, topics.Rows, 2)
	// ordered by name
	assert.Equal(t, "Databases", topics.Rows[0].Values["name"])
	assert.Equal(t, "go", topics.Rows[1].Values["slug"])
}
