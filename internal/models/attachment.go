package models

import (
	"time"

	"github.com/google/uuid"
)

// SeriesAttachment is a titled supplementary file published with a series.
type SeriesAttachment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SeriesID    uuid.UUID `gorm:"type:uuid;not null;index" json:"series_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	FileKey     string    `gorm:"size:512;not null" json:"file_key"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
