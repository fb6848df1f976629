package models

import "time"

// User is an editorial account. Users author posts; a user with posts cannot be deleted.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username" validate:"required,max=150"`
	FirstName string    `gorm:"size:150" json:"first_name" validate:"max=150"`
	LastName  string    `gorm:"size:150" json:"last_name" validate:"max=150"`
	Email     string    `gorm:"size:254;uniqueIndex;not null" json:"email" validate:"required,email,max=254"`
	Password  string    `gorm:"not null" json:"-"`
	IsStaff   bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) String() string {
	return u.Username
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}
