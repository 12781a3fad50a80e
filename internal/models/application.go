package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application enrols a participant into a grade.
type Application struct {
	ID                      uint         `gorm:"primaryKey" json:"id"`
	GradeID                 uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_application_grade_participant" json:"grade_id"`
	ParticipantID           uint         `gorm:"not null;uniqueIndex:idx_application_grade_participant" json:"participant_id"`
	ParticipantCurrentGrade *string      `gorm:"size:10" json:"participant_current_grade"`
	CreatedAt               time.Time    `gorm:"index" json:"created_at"`
	Grade                   *Grade       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grade,omitempty"`
	Participant             Participant  `gorm:"foreignKey:ParticipantID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"participant"`
	Submissions             []Submission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate stores creation timestamps in UTC so range filters compare consistently.
func (a *Application) BeforeCreate(_ *gorm.DB) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return nil
}
