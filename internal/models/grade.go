package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeriesPerGrade is the fixed number of series created with every grade.
const SeriesPerGrade = 4

// Grade represents one competition year.
type Grade struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SchoolYear string    `gorm:"size:50;uniqueIndex;not null" json:"school_year"`
	Errata     string    `gorm:"type:text" json:"errata"`
	StartDate  time.Time `gorm:"type:date;index;not null" json:"start_date"`
	EndDate    time.Time `gorm:"type:date;index;not null" json:"end_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Series     []Series  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"series,omitempty"`
}

// BeforeCreate assigns a random identifier when none was provided.
func (g *Grade) BeforeCreate(_ *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// IsInProgress reports whether the given day falls within the grade date range.
func (g Grade) IsInProgress(today time.Time) bool {
	day := DateOf(today)
	return !day.Before(DateOf(g.StartDate)) && !day.After(DateOf(g.EndDate))
}

// Overlaps reports whether the two date ranges share at least one day.
// This covers a boundary of g falling into other as well as g enclosing other.
func (g Grade) Overlaps(other Grade) bool {
	start, end := DateOf(g.StartDate), DateOf(g.EndDate)
	otherStart, otherEnd := DateOf(other.StartDate), DateOf(other.EndDate)

	return !start.After(otherEnd) && !otherStart.After(end)
}

// ValidateRange checks the grade date range against all other known grades.
func (g Grade) ValidateRange(others []Grade) error {
	if g.StartDate.IsZero() || g.EndDate.IsZero() {
		return NewValidationError("start_date", "start and end dates are required")
	}
	if DateOf(g.StartDate).After(DateOf(g.EndDate)) {
		return NewValidationError("end_date", "grade must not end before it starts")
	}

	for _, other := range others {
		if other.ID == g.ID {
			continue
		}
		if g.Overlaps(other) {
			return &ValidationError{
				Field:   "start_date",
				Message: fmt.Sprintf("date range overlaps with grade '%s'", other.SchoolYear),
				Err:     ErrGradeOverlap,
			}
		}
	}

	return nil
}

// DefaultSchoolYear returns the school year label of a grade created on the given day.
func DefaultSchoolYear(today time.Time) string {
	return fmt.Sprintf("%d/%d", today.Year(), today.Year()+1)
}

// DefaultGradeRange returns the default August 1st - July 31st range for a grade created on the given day.
func DefaultGradeRange(today time.Time) (time.Time, time.Time) {
	start := time.Date(today.Year(), time.August, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(today.Year()+1, time.July, 31, 0, 0, 0, 0, time.UTC)
	return start, end
}

// DateOf truncates a timestamp to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
