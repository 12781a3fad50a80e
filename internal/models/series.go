package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TasksPerSeries is the fixed number of tasks created with every series.
const TasksPerSeries = 5

// Series represents one quarterly problem set of a grade.
type Series struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	GradeID            uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_series_grade_number" json:"grade_id"`
	Number             int                `gorm:"not null;uniqueIndex:idx_series_grade_number" json:"number"`
	SubmissionDeadline time.Time          `gorm:"not null" json:"submission_deadline"`
	TaskFile           *string            `gorm:"size:512" json:"task_file"`
	ResultsPublished   bool               `gorm:"not null;default:false;index" json:"results_published"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	Grade              *Grade             `json:"grade,omitempty"`
	Tasks              []Task             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"tasks,omitempty"`
	Attachments        []SeriesAttachment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"attachments,omitempty"`
}

// BeforeCreate assigns a random identifier when none was provided.
func (s *Series) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// AcceptsSubmissions reports whether participants may still hand in solutions.
// The deadline itself is already closed.
func (s Series) AcceptsSubmissions(now time.Time) bool {
	return s.TaskFile != nil && now.Before(s.SubmissionDeadline)
}

// CurrentSeries returns the accepting series with the earliest deadline.
func CurrentSeries(series []Series, now time.Time) *Series {
	var current *Series
	for i := range series {
		if !series[i].AcceptsSubmissions(now) {
			continue
		}
		if current == nil || series[i].SubmissionDeadline.Before(current.SubmissionDeadline) {
			current = &series[i]
		}
	}
	return current
}

// PreviousSeries returns the closed series with the latest deadline.
func PreviousSeries(series []Series, now time.Time) *Series {
	var previous *Series
	for i := range series {
		if series[i].AcceptsSubmissions(now) {
			continue
		}
		if previous == nil || !series[i].SubmissionDeadline.Before(previous.SubmissionDeadline) {
			previous = &series[i]
		}
	}
	return previous
}

// FutureSeries returns every series due after the current one.
func FutureSeries(series []Series, now time.Time) []Series {
	current := CurrentSeries(series, now)
	if current == nil {
		return []Series{}
	}

	future := make([]Series, 0, len(series))
	for _, s := range series {
		if s.SubmissionDeadline.After(current.SubmissionDeadline) {
			future = append(future, s)
		}
	}
	return future
}

// SortSeriesByNumber orders series by their number within the grade.
func SortSeriesByNumber(series []Series) {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Number < series[j].Number
	})
}
