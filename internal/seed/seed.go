package seed

import (
	_ "embed"
	"fmt"
	"log"

	"quill/internal/admin"
	"quill/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed topics.yml
var topicCatalogue []byte

// TopicSpec is one catalogue entry.
type TopicSpec struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type catalogue struct {
	Topics []TopicSpec `yaml:"topics"`
}

// Options configuration for the seeder
type Options struct {
	NumAuthors int
	NumTopics  int
	NumPosts   int
	// PublishRatio is the share of posts run through Publish, 0..1.
	PublishRatio float64
	ShouldClean  bool
	Factory      FactoryOptions
}

// Result summarizes what a Seed run created.
type Result struct {
	Authors   int
	Topics    int
	Published int
	Drafts    int
}

// LoadTopicCatalogue parses a YAML topic catalogue and fills missing slugs.
func LoadTopicCatalogue(raw []byte) ([]TopicSpec, error) {
	var c catalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse topic catalogue: %w", err)
	}
	for i := range c.Topics {
		if c.Topics[i].Slug == "" {
			c.Topics[i].Slug = admin.Slugify(c.Topics[i].Name)
		}
	}
	return c.Topics, nil
}

// Seed populates the database with demo data.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	log.Printf("Starting database seeding: %d authors, %d topics, %d posts", opts.NumAuthors, opts.NumTopics, opts.NumPosts)

	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f := NewFactory(db, opts.Factory)
	res := &Result{}

	specs, err := LoadTopicCatalogue(topicCatalogue)
	if err != nil {
		return nil, err
	}
	if opts.NumTopics >= 0 && opts.NumTopics < len(specs) {
		specs = specs[:opts.NumTopics]
	}
	topics := make([]*models.Topic, 0, len(specs))
	for _, spec := range specs {
		t, err := getOrCreateTopic(db, f, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to create topic %q: %w", spec.Name, err)
		}
		topics = append(topics, t)
	}
	res.Topics = len(topics)

	numAuthors := opts.NumAuthors
	if numAuthors <= 0 {
		numAuthors = 1
	}
	authors := make([]*models.User, 0, numAuthors)
	for i := 0; i < numAuthors; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create author: %w", err)
		}
		authors = append(authors, u)
	}
	res.Authors = len(authors)

	for i := 0; i < opts.NumPosts; i++ {
		author := authors[i%len(authors)]
		overrides := []func(*models.Post){}
		if len(topics) > 0 {
			overrides = append(overrides, WithTopics(pickTopics(f, topics)...))
		}
		publish := f.rng.Float64() < opts.PublishRatio
		if publish {
			overrides = append(overrides, Published)
		}
		if _, err := f.CreatePost(author, overrides...); err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		if publish {
			res.Published++
		} else {
			res.Drafts++
		}
	}

	log.Printf("Seeding complete: %d published, %d drafts", res.Published, res.Drafts)
	return res, nil
}

func getOrCreateTopic(db *gorm.DB, f *Factory, spec TopicSpec) (*models.Topic, error) {
	if !f.opts.DryRun {
		var existing models.Topic
		err := db.Where("slug = ?", spec.Slug).Limit(1).Find(&existing).Error
		if err != nil {
			return nil, err
		}
		if existing.ID != 0 {
			return &existing, nil
		}
	}
	return f.CreateTopic(func(t *models.Topic) {
		t.Name = spec.Name
		t.Slug = spec.Slug
	})
}

func pickTopics(f *Factory, topics []*models.Topic) []*models.Topic {
	n := f.rng.Intn(3)
	picked := make([]*models.Topic, 0, n)
	seen := map[uint]bool{}
	for len(picked) < n && len(picked) < len(topics) {
		t := topics[f.rng.Intn(len(topics))]
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		picked = append(picked, t)
	}
	return picked
}

// ClearAll removes posts, topics and non-staff users, children first.
func ClearAll(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			"DELETE FROM post_topics",
			"DELETE FROM posts",
			"DELETE FROM topics",
		} {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return tx.Where("is_staff = ?", false).Delete(&models.User{}).Error
	})
}
