package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ksicht/ksicht-api/internal/models"
)

// SubmissionUploadRequest describes the multipart payload of a solution upload.
type SubmissionUploadRequest struct {
	TaskID string `form:"task_id" validate:"required,uuid"`
}

// PostalSubmissionRequest records a solution delivered on paper.
type PostalSubmissionRequest struct {
	ApplicationID uint   `json:"application_id" validate:"required,gt=0"`
	TaskID        string `json:"task_id" validate:"required,uuid"`
}

// SubmissionScoreRequest assigns a score and stickers. A nil score clears grading.
type SubmissionScoreRequest struct {
	Score          *float64 `json:"score" validate:"omitempty,gte=0"`
	StickerNumbers []int    `json:"sticker_numbers" validate:"omitempty,dive,gte=1"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	SeriesID *string `query:"series_id" validate:"omitempty,uuid"`
	TaskID   *string `query:"task_id" validate:"omitempty,uuid"`
	Graded   *bool   `query:"graded"`
}

// StickerResponse serializes a sticker.
type StickerResponse struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              uint              `json:"id"`
	ApplicationID   uint              `json:"application_id"`
	TaskID          uuid.UUID         `json:"task_id"`
	SeriesNumber    int               `json:"series_number"`
	TaskNumber      int               `json:"task_number"`
	Postal          bool              `json:"postal"`
	FileKey         *string           `json:"file_key"`
	ExportNormalKey *string           `json:"export_normal_key"`
	ExportDuplexKey *string           `json:"export_duplex_key"`
	Score           *float64          `json:"score"`
	Stickers        []StickerResponse `json:"stickers"`
	SubmittedAt     time.Time         `json:"submitted_at"`
	ParticipantName string            `json:"participant_name,omitempty"`
}

// SubmissionExportResponse reports the outcome of export preparation.
type SubmissionExportResponse struct {
	SubmissionID uint    `json:"submission_id"`
	Exported     bool    `json:"exported"`
	Failed       bool    `json:"failed"`
	Error        string  `json:"error,omitempty"`
	NormalKey    *string `json:"normal_key"`
	DuplexKey    *string `json:"duplex_key"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:              model.ID,
		ApplicationID:   model.ApplicationID,
		TaskID:          model.TaskID,
		SeriesNumber:    model.Task.SeriesNumber(),
		TaskNumber:      model.Task.Number,
		Postal:          model.IsPostal(),
		FileKey:         model.FileKey,
		ExportNormalKey: model.ExportNormalKey,
		ExportDuplexKey: model.ExportDuplexKey,
		Score:           model.Score,
		Stickers:        make([]StickerResponse, 0, len(model.Stickers)),
		SubmittedAt:     model.SubmittedAt,
	}

	for _, sticker := range model.Stickers {
		response.Stickers = append(response.Stickers, StickerResponse{Number: sticker.Number, Title: sticker.Title})
	}

	if model.Application.Participant.UserID != 0 {
		response.ParticipantName = model.Application.Participant.FullName()
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
