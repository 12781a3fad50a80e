package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ksicht/ksicht-api/internal/models"
)

// ParticipantResponse serializes a participant profile, including the postal address used for brochures.
type ParticipantResponse struct {
	UserID          uint       `json:"user_id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Phone           *string    `json:"phone"`
	BirthDate       *time.Time `json:"birth_date"`
	Street          string     `json:"street"`
	City            string     `json:"city"`
	ZipCode         string     `json:"zip_code"`
	Country         string     `json:"country"`
	School          string     `json:"school"`
	SchoolYear      string     `json:"school_year"`
	BrochuresByMail bool       `json:"brochures_by_mail"`
}

// ApplicationResponse serializes a grade application.
type ApplicationResponse struct {
	ID                      uint                 `json:"id"`
	GradeID                 uuid.UUID            `json:"grade_id"`
	ParticipantID           uint                 `json:"participant_id"`
	ParticipantCurrentGrade *string              `json:"participant_current_grade"`
	CreatedAt               time.Time            `json:"created_at"`
	Participant             *ParticipantResponse `json:"participant,omitempty"`
}

// SchoolYearActionRequest selects participants for a bulk school year change.
type SchoolYearActionRequest struct {
	UserIDs []uint `json:"user_ids" validate:"min=1,dive,gt=0"`
}

// BulkActionResponse reports how many records a staff action touched.
type BulkActionResponse struct {
	Affected int64 `json:"affected"`
}

// NewParticipantResponse converts a participant model into a DTO.
func NewParticipantResponse(participant models.Participant) ParticipantResponse {
	return ParticipantResponse{
		UserID:          participant.UserID,
		Email:           participant.User.Email,
		Name:            participant.FullName(),
		Phone:           participant.Phone,
		BirthDate:       participant.BirthDate,
		Street:          participant.Street,
		City:            participant.City,
		ZipCode:         participant.ZipCode,
		Country:         participant.Country,
		School:          participant.SchoolName(),
		SchoolYear:      participant.SchoolYear,
		BrochuresByMail: participant.BrochuresByMail,
	}
}

// NewParticipantResponseSlice converts participant models into DTOs.
func NewParticipantResponseSlice(participants []models.Participant) []ParticipantResponse {
	responses := make([]ParticipantResponse, 0, len(participants))
	for _, participant := range participants {
		responses = append(responses, NewParticipantResponse(participant))
	}
	return responses
}

// NewApplicationResponse converts an application model into a DTO.
func NewApplicationResponse(application models.Application) ApplicationResponse {
	response := ApplicationResponse{
		ID:                      application.ID,
		GradeID:                 application.GradeID,
		ParticipantID:           application.ParticipantID,
		ParticipantCurrentGrade: application.ParticipantCurrentGrade,
		CreatedAt:               application.CreatedAt,
	}
	if application.Participant.UserID != 0 {
		participant := NewParticipantResponse(application.Participant)
		response.Participant = &participant
	}
	return response
}
