// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// PostStatus is the editorial state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Label is the human-readable form used by the back office.
func (s PostStatus) Label() string {
	switch s {
	case PostStatusDraft:
		return "Draft"
	case PostStatusPublished:
		return "Published"
	}
	return string(s)
}

// PostOrdering is the default ordering for post listings: newest first.
const PostOrdering = "posts.created DESC"

// Post represents a blog post.
type Post struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Title string `gorm:"size:255;not null" json:"title" validate:"required,max=255"`
	// Slug is unique per published date, not globally.
	Slug     string     `gorm:"size:50;not null;index" json:"slug" validate:"required,max=50,slug"`
	AuthorID uint       `gorm:"not null;index" json:"author_id" validate:"required"`
	Author   User       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"author" validate:"-"`
	Status   PostStatus `gorm:"size:10;not null;default:draft;index" json:"status" validate:"required,oneof=draft published"`
	Topics   []Topic    `gorm:"many2many:post_topics;constraint:OnDelete:CASCADE" json:"topics" validate:"-"`
	Content  string     `gorm:"type:text;not null" json:"content"`
	// Published is when the post was made public; nil until Publish is called.
	Published *time.Time `gorm:"index" json:"published"`
	Created   time.Time  `gorm:"autoCreateTime" json:"created"`
	Updated   time.Time  `gorm:"autoUpdateTime" json:"updated"`
}

func (p Post) String() string {
	return p.Title
}

// nowFunc is swapped by tests to freeze the clock.
var nowFunc = func() time.Time {
	return time.Now().UTC()
}

// Publish marks the post as published and stamps Published with the current UTC time.
// Calling it again re-stamps the time. It does not persist the post.
func (p *Post) Publish() {
	now := nowFunc()
	p.Status = PostStatusPublished
	p.Published = &now
}

// IsPublished reports whether the post is in the published state.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// PublishedDay returns the UTC calendar day bounds [start, end) of Published.
// ok is false when the post has never been published.
func (p *Post) PublishedDay() (start, end time.Time, ok bool) {
	if p.Published == nil {
		return time.Time{}, time.Time{}, false
	}
	start, end = DayBounds(*p.Published)
	return start, end, true
}

// DayBounds returns the UTC calendar day [start, end) containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// TopicIDs returns the IDs of the attached topics.
func (p *Post) TopicIDs() []uint {
	ids := make([]uint, 0, len(p.Topics))
	for _, t := range p.Topics {
		ids = append(ids, t.ID)
	}
	return ids
}
