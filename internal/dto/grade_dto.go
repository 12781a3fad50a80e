package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ksicht/ksicht-api/internal/models"
)

// TaskRequest describes the title and point value of one task.
type TaskRequest struct {
	Title  string `json:"title" validate:"required,max=150"`
	Points int    `json:"points" validate:"required,gte=1"`
}

// SeriesCreateRequest describes a series created together with its grade.
type SeriesCreateRequest struct {
	SubmissionDeadline time.Time     `json:"submission_deadline" validate:"required"`
	Tasks              []TaskRequest `json:"tasks" validate:"len=5,dive"`
}

// GradeCreateRequest creates a grade with its four series. Empty dates and
// school year fall back to the current school year.
type GradeCreateRequest struct {
	SchoolYear string                `json:"school_year" validate:"omitempty,max=50"`
	StartDate  *time.Time            `json:"start_date"`
	EndDate    *time.Time            `json:"end_date"`
	Errata     string                `json:"errata" validate:"max=20000"`
	Series     []SeriesCreateRequest `json:"series" validate:"len=4,dive"`
}

// GradeUpdateRequest captures partial grade updates.
type GradeUpdateRequest struct {
	SchoolYear *string    `json:"school_year" validate:"omitempty,min=1,max=50"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Errata     *string    `json:"errata" validate:"omitempty,max=20000"`
}

// SeriesUpdateRequest captures partial series updates.
type SeriesUpdateRequest struct {
	SubmissionDeadline *time.Time `json:"submission_deadline"`
	ResultsPublished   *bool      `json:"results_published"`
}

// TasksUpdateRequest replaces titles and points of all five tasks of a series.
type TasksUpdateRequest struct {
	Tasks []TaskRequest `json:"tasks" validate:"len=5,dive"`
}

// TaskResponse serializes a task.
type TaskResponse struct {
	ID              uuid.UUID `json:"id"`
	SeriesID        uuid.UUID `json:"series_id"`
	SeriesNumber    int       `json:"series_number"`
	Number          int       `json:"number"`
	Title           string    `json:"title"`
	Points          int       `json:"points"`
	SubmissionCount *int64    `json:"submission_count,omitempty"`
}

// SeriesResponse serializes a series with its tasks.
type SeriesResponse struct {
	ID                 uuid.UUID                  `json:"id"`
	GradeID            uuid.UUID                  `json:"grade_id"`
	Number             int                        `json:"number"`
	SubmissionDeadline time.Time                  `json:"submission_deadline"`
	TaskFile           *string                    `json:"task_file"`
	ResultsPublished   bool                       `json:"results_published"`
	AcceptsSubmissions bool                       `json:"accepts_submissions"`
	Tasks              []TaskResponse             `json:"tasks"`
	Attachments        []SeriesAttachmentResponse `json:"attachments"`
}

// GradeResponse serializes a grade.
type GradeResponse struct {
	ID         uuid.UUID        `json:"id"`
	SchoolYear string           `json:"school_year"`
	Errata     string           `json:"errata"`
	StartDate  time.Time        `json:"start_date"`
	EndDate    time.Time        `json:"end_date"`
	InProgress bool             `json:"in_progress"`
	Series     []SeriesResponse `json:"series"`
}

// GradeOverviewResponse describes where a grade stands in its lifecycle.
type GradeOverviewResponse struct {
	Grade          GradeResponse    `json:"grade"`
	CurrentSeries  *SeriesResponse  `json:"current_series"`
	PreviousSeries *SeriesResponse  `json:"previous_series"`
	FutureSeries   []SeriesResponse `json:"future_series"`
}

// NewTaskResponse converts a task model into a DTO.
func NewTaskResponse(task models.Task) TaskResponse {
	return TaskResponse{
		ID:           task.ID,
		SeriesID:     task.SeriesID,
		SeriesNumber: task.SeriesNumber(),
		Number:       task.Number,
		Title:        task.Title,
		Points:       task.Points,
	}
}

// NewSeriesResponse converts a series model into a DTO.
func NewSeriesResponse(series models.Series, now time.Time) SeriesResponse {
	tasks := make([]TaskResponse, 0, len(series.Tasks))
	for _, task := range series.Tasks {
		response := NewTaskResponse(task)
		response.SeriesNumber = series.Number
		tasks = append(tasks, response)
	}

	attachments := make([]SeriesAttachmentResponse, 0, len(series.Attachments))
	for _, attachment := range series.Attachments {
		attachments = append(attachments, NewSeriesAttachmentResponse(attachment))
	}

	return SeriesResponse{
		ID:                 series.ID,
		GradeID:            series.GradeID,
		Number:             series.Number,
		SubmissionDeadline: series.SubmissionDeadline,
		TaskFile:           series.TaskFile,
		ResultsPublished:   series.ResultsPublished,
		AcceptsSubmissions: series.AcceptsSubmissions(now),
		Tasks:              tasks,
		Attachments:        attachments,
	}
}

// NewSeriesResponseSlice converts series models into DTOs.
func NewSeriesResponseSlice(series []models.Series, now time.Time) []SeriesResponse {
	responses := make([]SeriesResponse, 0, len(series))
	for _, s := range series {
		responses = append(responses, NewSeriesResponse(s, now))
	}
	return responses
}

// NewGradeResponse converts a grade model into a DTO.
func NewGradeResponse(grade models.Grade, now time.Time) GradeResponse {
	return GradeResponse{
		ID:         grade.ID,
		SchoolYear: grade.SchoolYear,
		Errata:     grade.Errata,
		StartDate:  grade.StartDate,
		EndDate:    grade.EndDate,
		InProgress: grade.IsInProgress(now),
		Series:     NewSeriesResponseSlice(grade.Series, now),
	}
}

// NewGradeOverviewResponse resolves the current, previous and future series of a grade.
func NewGradeOverviewResponse(grade models.Grade, now time.Time) GradeOverviewResponse {
	response := GradeOverviewResponse{
		Grade:        NewGradeResponse(grade, now),
		FutureSeries: NewSeriesResponseSlice(models.FutureSeries(grade.Series, now), now),
	}
	if current := models.CurrentSeries(grade.Series, now); current != nil {
		series := NewSeriesResponse(*current, now)
		response.CurrentSeries = &series
	}
	if previous := models.PreviousSeries(grade.Series, now); previous != nil {
		series := NewSeriesResponse(*previous, now)
		response.PreviousSeries = &series
	}
	return response
}
