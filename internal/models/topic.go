package models

// TopicOrdering is the default ordering for topic listings.
const TopicOrdering = "topics.name ASC"

// Topic is a named tag. Name and slug are each unique across all topics.
type Topic struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;uniqueIndex;not null" json:"name" validate:"required,max=50"`
	Slug string `gorm:"size:50;uniqueIndex;not null" json:"slug" validate:"required,max=50,slug"`
}

func (t Topic) String() string {
	return t.Name
}
