// Package repository persists pages, conversations and messages with gorm.
package repository

import (
	"errors"

	"helpdesk-inbox/backend/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Migrate creates or updates the tables and indexes used by the inbox.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Page{}, &models.Conversation{}, &models.Message{})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
