// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// notFound maps gorm.ErrRecordNotFound to a NOT_FOUND AppError and passes
// every other error through unchanged.
func notFound(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return err
}
