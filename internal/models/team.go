package models

import "time"

// TeamMember is an organiser listed on the public team page. Lower positions come first.
type TeamMember struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Role         string    `gorm:"size:150" json:"role"`
	Bio          string    `gorm:"type:text;not null" json:"bio"`
	ImageURL     string    `gorm:"size:512;not null" json:"image_url"`
	Position     int       `gorm:"not null;default:0;index" json:"position"`
	URLFacebook  string    `gorm:"size:200" json:"url_facebook"`
	URLInstagram string    `gorm:"size:200" json:"url_instagram"`
	URLOther     string    `gorm:"size:200" json:"url_other"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
