// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"quill/internal/admin"
	"quill/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// FactoryOptions tunes how the factory generates and persists data.
type FactoryOptions struct {
	// DryRun assigns synthetic IDs instead of writing to the database.
	DryRun bool
	// SkipBcrypt stores the plain default password; only for fast local seeding.
	SkipBcrypt bool
	// MaxDays bounds how far back generated created/published times go.
	MaxDays int
	// Seed makes generated content reproducible when non-zero.
	Seed int64
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts FactoryOptions
	rng  *rand.Rand
	// seq keeps generated usernames, emails and slugs unique
	seq    int
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts FactoryOptions) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

func (f *Factory) next() int {
	f.seq++
	return f.seq
}

func (f *Factory) assignID() uint {
	f.nextID++
	return f.nextID
}

// CreateUser constructs and persists a sample models.User.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	n := f.next()
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), n),
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     fmt.Sprintf("user%d.%s", n, gofakeit.Email()),
	}

	if f.opts.SkipBcrypt {
		user.Password = DefaultPassword
	} else {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		user.ID = f.assignID()
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateTopic persists a topic with a generated or overridden name. The slug
// is derived from the name unless an override sets it.
func (f *Factory) CreateTopic(overrides ...func(*models.Topic)) (*models.Topic, error) {
	topic := &models.Topic{
		Name: fmt.Sprintf("%s %d", gofakeit.HipsterWord(), f.next()),
	}
	for _, override := range overrides {
		override(topic)
	}
	if topic.Slug == "" {
		topic.Slug = admin.Slugify(topic.Name)
	}

	if f.opts.DryRun {
		topic.ID = f.assignID()
		return topic, nil
	}
	if err := f.db.Create(topic).Error; err != nil {
		return nil, err
	}
	return topic, nil
}

// BuildPost constructs a draft post for author without persisting it.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(gofakeit.Sentence(5), ".")
	post := &models.Post{
		Title:    title,
		Slug:     admin.Slugify(fmt.Sprintf("%s %d", title, f.next())),
		AuthorID: author.ID,
		Status:   models.PostStatusDraft,
		Content:  gofakeit.Paragraph(1, 3, 5, "\n"),
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	post.Created = time.Now().UTC().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost persists a post built by BuildPost.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)

	if f.opts.DryRun {
		post.ID = f.assignID()
		log.Printf("[dry-run] CreatePost: author=%d slug=%q", post.AuthorID, post.Slug)
		return post, nil
	}
	if err := f.db.Omit("Author", "Topics.*").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePublishedPost persists a post that has gone through Publish.
func (f *Factory) CreatePublishedPost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	return f.CreatePost(author, append([]func(*models.Post){Published}, overrides...)...)
}

// Published is a post override that runs Publish on the post.
func Published(p *models.Post) {
	p.Publish()
}

// WithTopics is a post override that attaches topics.
func WithTopics(topics ...*models.Topic) func(*models.Post) {
	return func(p *models.Post) {
		for _, t := range topics {
			p.Topics = append(p.Topics, *t)
		}
	}
}
