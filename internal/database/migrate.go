package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Participant{},
		&models.Grade{},
		&models.Series{},
		&models.Task{},
		&models.SeriesAttachment{},
		&models.Application{},
		&models.Sticker{},
		&models.Submission{},
		&models.Event{},
		&models.EventAttendee{},
		&models.Page{},
		&models.TeamMember{},
		&models.ActivityLog{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
