package models

import (
	"time"

	"gorm.io/datatypes"
)

// Page is a static content page with optional group restrictions.
type Page struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	URL           string                      `gorm:"size:100;uniqueIndex;not null" json:"url"`
	Title         string                      `gorm:"size:255;not null" json:"title"`
	Content       string                      `gorm:"type:text" json:"content"`
	Keywords      string                      `gorm:"size:150" json:"keywords"`
	Description   string                      `gorm:"type:text" json:"description"`
	AllowedGroups datatypes.JSONSlice[string] `gorm:"type:json" json:"allowed_groups"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}
