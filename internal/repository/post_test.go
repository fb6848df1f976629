package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/seed"
	"quill/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newFactory(t *testing.T, db *gorm.DB) *seed.Factory {
	t.Helper()
	return seed.NewFactory(db, seed.FactoryOptions{Seed: 11, SkipBcrypt: true})
}

func ids(posts []*models.Post) []uint {
	out := make([]uint, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestPublishedAndDraft_PartitionPosts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFactory(t, db)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author, err := f.CreateUser()
	require.NoError(t, err)
	a, err := f.CreatePublishedPost(author)
	require.NoError(t, err)
	b, err := f.CreatePost(author)
	require.NoError(t, err)

	published, err := repo.Query().Published().Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, ids(published))

	drafts, err := repo.Query().Draft().Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, ids(drafts))
}

func TestPublishedAndDraft_Empty(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)

	published, err := repo.Published(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, published)
	assert.Empty(t, published)

	n, err := repo.Query().Draft().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublished_EveryPostInExactlyOneSet(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFactory(t, db)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author, err := f.CreateUser()
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		if i%3 == 0 {
			_, err = f.CreatePost(author)
		} else {
			_, err = f.CreatePublishedPost(author)
		}
		require.NoError(t, err)
	}

	published, err := repo.Query().Published().Find(ctx)
	require.NoError(t, err)
	drafts, err := repo.Query().Draft().Find(ctx)
	require.NoError(t, err)

	assert.Len(t, published, 4)
	assert.Len(t, drafts, 2)
	for _, p := range published {
		assert.Equal(t, models.PostStatusPublished, p.Status)
		assert.NotContains(t, ids(drafts), p.ID)
	}
	for _, p := range drafts {
		assert.Equal(t, models.PostStatusDraft, p.Status)
	}
}

func TestPostQuery_DefaultOrderingAndPreloads(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFactory(t, db)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author, err := f.CreateUser()
	require.NoError(t, err)
	zeta, err := f.CreateTopic(func(tp *models.Topic) { tp.Name = "Zeta" })
	require.NoError(t, err)
	alpha, err := f.CreateTopic(func(tp *models.Topic) { tp.Name = "Alpha" })
	require.NoError(t, err)

	now := time.Now().UTC()
	older, err := f.CreatePublishedPost(author, func(p *models.Post) { p.Created = now.Add(-48 * time.Hour) })
	require.NoError(t, err)
	newer, err := f.CreatePublishedPost(author, seed.WithTopics(zeta, alpha), func(p *models.Post) { p.Created = now.Add(-time.Hour) })
	require.NoError(t, err)

	posts, err := repo.Query().Published().Find(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint{newer.ID, older.ID}, ids(posts))

	assert.Equal(t, author.Username, posts[0].Author.Username)
	require.Len(t, posts[0].Topics, 2)
	assert.Equal(t, "Alpha", posts[0].Topics[0].Name)
	assert.Equal(t, "Zeta", posts[0].Topics[1].Name)

	page, err := repo.Query().Published().Page(1, 1).Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{older.ID}, ids(page))
}

func TestPostQuery_IsLazyAndImmutable(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFactory(t, db)
	repo := NewPostRepository(db)
	ctx := context.Background()

	base := repo.Query()
	published := base.Published()
	drafts := base.Draft()

	author, err := f.CreateUser()
	require.NoError(t, err)
	_, err = f.CreatePublishedPost(author)
	require.NoError(t, err)
	_, err = f.CreatePost(author)
	require.NoError(t, err)

	// queries built before the rows existed still see them
	n, err := published.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = drafts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = base.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// both scopes together select nothing
	n, err = published.Draft().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostQuery_WithTopic(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFactory(t, db)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author, err := f.CreateUser()
	require.NoError(t, err)
	goTopic, err := f.CreateTopic(func(tp *models.Topic) { tp.Name = "Go" })
	require.NoError(t, err)

	tagged, err := f.CreatePublishedPost(author, seed.WithTopics(goTopic))
	require.NoError(t, err)
	_, err = f.CreatePublishedPost(author)
	require.NoError(t, err)
	_, err = f.CreatePost(author, seed.WithTopics(goTopic))
	require.NoError(t, err)

	posts, err := repo.Query().Published().WithTopic("go").Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{tagged.ID}, ids(posts))
}

func TestPostRepository_GetByDateSlug(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFactory(t, db)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author, err := f.CreateUser()
	require.NoError(t, err)
	at := time.Date(2030, 6, 1, 23, 30, 0, 0, time.UTC)
	post, err := f.CreatePost(author, func(p *models.Post) {
		p.Slug = "hello"
		p.Status = models.PostStatusPublished
		p.Published = &at
	})
	require.NoError(t, err)
	_, err = f.CreatePost(author, func(p *models.Post) { p.Slug = "hello-draft" })
	require.NoError(t, err)

	got, err := repo.GetByDateSlug(ctx, time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), "hello")
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)

	_, err = repo.GetByDateSlug(ctx, time.Date(2030, 6, 2, 0, 0, 0, 0, time.UTC), "hello")
	assert.True(t, IsNotFound(err))

	_, err = repo.GetByDateSlug(ctx, time.Now(), "hello-draft")
	assert.True(t, IsNotFound(err))
}

func TestPostRepository_SlugTakenForDate(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFactory(t, db)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author, err := f.CreateUser()
	require.NoError(t, err)
	at := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	post, err := f.CreatePost(author, func(p *models.Post) {
		p.Slug = "hello"
		p.Status = models.PostStatusPublished
		p.Published = &at
	})
	require.NoError(t, err)

	taken, err := repo.SlugTakenForDate(ctx, "hello", at.Add(10*time.Hour), 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.SlugTakenForDate(ctx, "hello", at, post.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = repo.SlugTakenForDate(ctx, "hello", at.AddDate(0, 0, 1), 0)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestPostRepository_CreateUpdateDelete(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFactory(t, db)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author, err := f.CreateUser()
	require.NoError(t, err)
	goTopic, err := f.CreateTopic(func(tp *models.Topic) { tp.Name = "Go" })
	require.NoError(t, err)
	webTopic, err := f.CreateTopic(func(tp *models.Topic) { tp.Name = "Web" })
	require.NoError(t, err)

	post := &models.Post{Title: "Hello", Slug: "hello", AuthorID: author.ID, Status: models.PostStatusDraft, Topics: []models.Topic{*goTopic}}
	require.NoError(t, repo.Create(ctx, post))
	require.NotZero(t, post.ID)
	assert.False(t, post.Created.IsZero())

	loaded, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{goTopic.ID}, loaded.TopicIDs())
	assert.Nil(t, loaded.Published)

	loaded.Topics = []models.Topic{*webTopic}
	loaded.Publish()
	require.NoError(t, repo.Update(ctx, loaded))

	reloaded, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, reloaded.Status)
	require.NotNil(t, reloaded.Published)
	assert.Equal(t, []uint{webTopic.ID}, reloaded.TopicIDs())

	require.NoError(t, repo.Delete(ctx, post.ID))
	_, err = repo.GetByID(ctx, post.ID)
	assert.True(t, IsNotFound(err))

	var links int64
	require.NoError(t, db.Table("post_topics").Where("post_id = ?", post.ID).Count(&links).Error)
	assert.Zero(t, links)

	assert.True(t, IsNotFound(repo.Delete(ctx, post.ID)))
}

func TestPostRepository_SlugUniquePerDayEnforcedByDatabase(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFactory(t, db)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author, err := f.CreateUser()
	require.NoError(t, err)
	at := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	later := at.Add(time.Hour)

	first := &models.Post{Title: "A", Slug: "same", AuthorID: author.ID, Status: models.PostStatusPublished, Published: &at}
	require.NoError(t, repo.Create(ctx, first))

	dup := &models.Post{Title: "B", Slug: "same", AuthorID: author.ID, Status: models.PostStatusPublished, Published: &later}
	err = repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestPostRepository_PublishedQueryShape(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE posts.status = $1 ORDER BY posts.created DESC,posts.id DESC`)).
		WithArgs("published").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status"}))

	posts, err := repo.Query().Published().Find(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CountQueryShape(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts" WHERE posts.status = $1`)).
		WithArgs("draft").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.Query().Draft().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
