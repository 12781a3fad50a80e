package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ksicht/ksicht-api/internal/models"
)

// SeriesAttachmentRequest names a file attached to a series.
type SeriesAttachmentRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

// SeriesAttachmentResponse serializes an attachment. The file itself is served separately.
type SeriesAttachmentResponse struct {
	ID          uint      `json:"id"`
	SeriesID    uuid.UUID `json:"series_id"`
	Title       string    `json:"title"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewSeriesAttachmentResponse converts an attachment model into a DTO.
func NewSeriesAttachmentResponse(model models.SeriesAttachment) SeriesAttachmentResponse {
	return SeriesAttachmentResponse{
		ID:          model.ID,
		SeriesID:    model.SeriesID,
		Title:       model.Title,
		FileName:    model.FileName,
		ContentType: model.ContentType,
		Size:        model.Size,
		CreatedAt:   model.CreatedAt,
	}
}
