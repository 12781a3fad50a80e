package models

// Sticker is a collectible award attached to scored solutions or event attendance.
type Sticker struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Number      int     `gorm:"uniqueIndex;not null" json:"number"`
	Title       string  `gorm:"size:255;not null" json:"title"`
	Description *string `gorm:"type:text" json:"description"`
	Handpicked  bool    `gorm:"not null;default:true;index" json:"handpicked"`
}
