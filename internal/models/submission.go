package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission is a participant's solution to one task. A nil FileKey means the solution came by post.
type Submission struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	ApplicationID   uint        `gorm:"not null;uniqueIndex:idx_submission_application_task" json:"application_id"`
	TaskID          uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_submission_application_task" json:"task_id"`
	FileKey         *string     `gorm:"size:512" json:"file_key"`
	ExportNormalKey *string     `gorm:"size:512" json:"export_normal_key"`
	ExportDuplexKey *string     `gorm:"size:512" json:"export_duplex_key"`
	Score           *float64    `gorm:"type:numeric(5,2)" json:"score"`
	SubmittedAt     time.Time   `gorm:"autoCreateTime" json:"submitted_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Application     Application `json:"application"`
	Task            Task        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"task"`
	Stickers        []Sticker   `gorm:"many2many:submission_stickers" json:"stickers"`
}

// IsPostal reports whether the solution was delivered on paper.
func (s Submission) IsPostal() bool {
	return s.FileKey == nil
}

// IsGraded reports whether a score has been assigned.
func (s Submission) IsGraded() bool {
	return s.Score != nil
}

// CanDelete tells whether the user may delete the submission at the given moment.
// Only the author may do so and only while the series still accepts submissions.
func (s Submission) CanDelete(userID uint, now time.Time) bool {
	if s.Task.Series == nil {
		return false
	}
	isAuthor := userID != 0 && s.Application.ParticipantID == userID
	return isAuthor && s.Task.Series.AcceptsSubmissions(now)
}
