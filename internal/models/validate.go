package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// IsSlug reports whether s is a valid slug (letters, numbers, underscores or hyphens).
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Validate checks the post's field constraints.
func (p *Post) Validate() error {
	return validationError(validate.Struct(p))
}

// Validate checks the topic's field constraints.
func (t *Topic) Validate() error {
	return validationError(validate.Struct(t))
}

// Validate checks the user's field constraints.
func (u *User) Validate() error {
	return validationError(validate.Struct(u))
}

// validationError converts validator output into a single VALIDATION_ERROR AppError.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return NewValidationError(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "slug":
		return field + " must contain only letters, numbers, underscores or hyphens"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
