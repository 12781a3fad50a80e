package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is one graded problem of a series.
type Task struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SeriesID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_task_series_number" json:"series_id"`
	Number    int       `gorm:"not null;uniqueIndex:idx_task_series_number" json:"number"`
	Title     string    `gorm:"size:150;not null" json:"title"`
	Points    int       `gorm:"not null" json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Series    *Series   `json:"series,omitempty"`
}

// BeforeCreate assigns a random identifier when none was provided.
func (t *Task) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// SeriesNumber returns the number of the owning series, or zero when it was not loaded.
func (t Task) SeriesNumber() int {
	if t.Series == nil {
		return 0
	}
	return t.Series.Number
}
