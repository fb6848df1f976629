// Package admin holds the declarative back-office configuration for each
// model and the changelist query built from it.
package admin

import (
	"fmt"
	"sort"
	"strings"

	"quill/internal/models"
)

// Lookup maps an admin field name (author__username) to a SQL column and the
// join that makes the column reachable.
type Lookup struct {
	Column string
	Join   string
}

// ModelAdmin is the back-office configuration of one model.
type ModelAdmin struct {
	// Name is the registry key and URL segment, e.g. "posts".
	Name  string
	Table string

	ListDisplay  []string
	SearchFields []string
	ListFilter   []string
	// PrepopulatedFields maps a target field to the fields it is derived from.
	PrepopulatedFields map[string][]string
	Ordering           string

	Lookups map[string]Lookup
	Filters map[string]FilterFunc
}

// Validate checks that every configured field name resolves.
func (a *ModelAdmin) Validate() error {
	for _, f := range a.ListDisplay {
		if _, ok := a.Lookups[f]; !ok {
			return fmt.Errorf("%s: list_display field %q has no lookup", a.Name, f)
		}
	}
	for _, f := range a.SearchFields {
		if _, ok := a.Lookups[f]; !ok {
			return fmt.Errorf("%s: search field %q has no lookup", a.Name, f)
		}
	}
	for _, f := range a.ListFilter {
		if _, ok := a.Filters[f]; !ok {
			return fmt.Errorf("%s: list_filter %q has no filter", a.Name, f)
		}
	}
	return nil
}

// Prepopulate returns a copy of values where every empty prepopulated target
// is derived from its source fields. Non-empty targets are kept.
func (a *ModelAdmin) Prepopulate(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	for target, sources := range a.PrepopulatedFields {
		if strings.TrimSpace(out[target]) != "" {
			continue
		}
		parts := make([]string, 0, len(sources))
		for _, src := range sources {
			if v := strings.TrimSpace(values[src]); v != "" {
				parts = append(parts, v)
			}
		}
		out[target] = Slugify(strings.Join(parts, " "))
	}
	return out
}

// PostAdmin configures the posts changelist.
var PostAdmin = &ModelAdmin{
	Name:         "posts",
	Table:        "posts",
	ListDisplay:  []string{"title", "created", "updated"},
	SearchFields: []string{"title", "author__username", "author__first_name", "author__last_name"},
	ListFilter:   []string{"status", "topics"},
	PrepopulatedFields: map[string][]string{
		"slug": {"title"},
	},
	Ordering: models.PostOrdering,
	Lookups: map[string]Lookup{
		"title":              {Column: "posts.title"},
		"slug":               {Column: "posts.slug"},
		"status":             {Column: "posts.status"},
		"created":            {Column: "posts.created"},
		"updated":            {Column: "posts.updated"},
		"published":          {Column: "posts.published"},
		"author__username":   {Column: "users.username", Join: authorJoin},
		"author__first_name": {Column: "users.first_name", Join: authorJoin},
		"author__last_name":  {Column: "users.last_name", Join: authorJoin},
	},
	Filters: map[string]FilterFunc{
		"status": statusFilter,
		"topics": topicsFilter,
	},
}

// TopicAdmin configures the topics changelist.
var TopicAdmin = &ModelAdmin{
	Name:        "topics",
	Table:       "topics",
	ListDisplay: []string{"name", "slug"},
	PrepopulatedFields: map[string][]string{
		"slug": {"name"},
	},
	Ordering: models.TopicOrdering,
	Lookups: map[string]Lookup{
		"name": {Column: "topics.name"},
		"slug": {Column: "topics.slug"},
	},
	Filters: map[string]FilterFunc{},
}

const authorJoin = "LEFT JOIN users ON users.id = posts.author_id"

// Site is a registry of model admins keyed by name.
type Site struct {
	registry map[string]*ModelAdmin
}

// NewSite returns an empty registry.
func NewSite() *Site {
	return &Site{registry: map[string]*ModelAdmin{}}
}

// Register adds a model admin. Registering a name twice is an error.
func (s *Site) Register(a *ModelAdmin) error {
	if _, ok := s.registry[a.Name]; ok {
		return fmt.Errorf("model %q is already registered", a.Name)
	}
	if err := a.Validate(); err != nil {
		return err
	}
	s.registry[a.Name] = a
	return nil
}

// Get returns the admin registered under name.
func (s *Site) Get(name string) (*ModelAdmin, bool) {
	a, ok := s.registry[name]
	return a, ok
}

// Names returns the registered model names in sorted order.
func (s *Site) Names() []string {
	names := make([]string, 0, len(s.registry))
	for n := range s.registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultSite has PostAdmin and TopicAdmin registered.
var DefaultSite = func() *Site {
	s := NewSite()
	for _, a := range []*ModelAdmin{PostAdmin, TopicAdmin} {
		if err := s.Register(a); err != nil {
			panic(err)
		}
	}
	return s
}()
