package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
)

var (
	// ErrParticipantNotFound indicates the user has no participant profile.
	ErrParticipantNotFound = errors.New("participant profile not found")
	// ErrDuplicateApplication indicates the participant already applied to the grade.
	ErrDuplicateApplication = errors.New("participant already applied to this grade")
	// ErrApplicationsClosed indicates the grade is not in progress.
	ErrApplicationsClosed = errors.New("grade does not accept applications")
)

// ParticipantService covers participant profiles, grade applications and the staff bulk actions on them.
type ParticipantService interface {
	Profile(ctx context.Context, userID uint) (dto.ParticipantResponse, error)
	Apply(ctx context.Context, actor Actor, gradeID uuid.UUID) (dto.ApplicationResponse, error)
	Application(ctx context.Context, actor Actor, gradeID uuid.UUID) (dto.ApplicationResponse, error)
	ListApplications(ctx context.Context, gradeID uuid.UUID) ([]dto.ApplicationResponse, error)
	IncreaseSchoolYear(ctx context.Context, actor Actor, payload dto.SchoolYearActionRequest) (dto.BulkActionResponse, error)
	PasteSchoolYear(ctx context.Context, actor Actor, gradeID uuid.UUID) (dto.BulkActionResponse, error)
}

type participantService struct {
	participants repository.ParticipantRepository
	applications repository.ApplicationRepository
	grades       repository.GradeRepository
	rankings     RankingInvalidator
	validator    *validator.Validate
	activity     ActivityRecorder
	logger       zerolog.Logger
	now          func() time.Time
}

// NewParticipantService constructs the participant service.
func NewParticipantService(
	participants repository.ParticipantRepository,
	applications repository.ApplicationRepository,
	grades repository.GradeRepository,
	rankings RankingInvalidator,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) ParticipantService {
	return &participantService{
		participants: participants,
		applications: applications,
		grades:       grades,
		rankings:     rankings,
		validator:    validate,
		activity:     activity,
		logger:       logger.With().Str("component", "participant_service").Logger(),
		now:          time.Now,
	}
}

func (s *participantService) Profile(ctx context.Context, userID uint) (dto.ParticipantResponse, error) {
	participant, err := s.participants.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ParticipantResponse{}, ErrParticipantNotFound
		}
		return dto.ParticipantResponse{}, err
	}
	return dto.NewParticipantResponse(participant), nil
}

// Apply enrols the caller into a running grade, remembering their school year at that moment.
func (s *participantService) Apply(ctx context.Context, actor Actor, gradeID uuid.UUID) (dto.ApplicationResponse, error) {
	grade, err := s.grades.GetByID(ctx, gradeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrGradeNotFound
		}
		return dto.ApplicationResponse{}, err
	}
	now := s.now()
	if !grade.IsInProgress(now) {
		return dto.ApplicationResponse{}, ErrApplicationsClosed
	}

	participant, err := s.participants.GetByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrParticipantNotFound
		}
		return dto.ApplicationResponse{}, err
	}

	schoolYear := participant.SchoolYear
	application := models.Application{
		GradeID:                 grade.ID,
		ParticipantID:           participant.UserID,
		ParticipantCurrentGrade: &schoolYear,
		CreatedAt:               now,
	}
	if err := s.applications.Create(ctx, &application); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.ApplicationResponse{}, ErrDuplicateApplication
		}
		return dto.ApplicationResponse{}, err
	}
	application.Participant = participant
	invalidateGrade(ctx, s.rankings, grade.ID)

	s.logger.Info().Uint("participant_id", participant.UserID).Str("grade", grade.SchoolYear).Msg("participant applied")
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "application.created",
		EntityType: "grade",
		EntityID:   grade.ID.String(),
		Metadata:   map[string]interface{}{"school_year": schoolYear},
	})

	return dto.NewApplicationResponse(application), nil
}

func (s *participantService) Application(ctx context.Context, actor Actor, gradeID uuid.UUID) (dto.ApplicationResponse, error) {
	application, err := s.applications.GetByGradeAndParticipant(ctx, gradeID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrNotEnrolled
		}
		return dto.ApplicationResponse{}, err
	}
	return dto.NewApplicationResponse(application), nil
}

func (s *participantService) ListApplications(ctx context.Context, gradeID uuid.UUID) ([]dto.ApplicationResponse, error) {
	applications, err := s.applications.ListByGrade(ctx, gradeID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ApplicationResponse, 0, len(applications))
	for _, application := range applications {
		responses = append(responses, dto.NewApplicationResponse(application))
	}
	return responses, nil
}

// IncreaseSchoolYear moves the selected participants one school year up. Final-year students stay.
// Rankings show the application snapshot, so cached results are left alone.
func (s *participantService) IncreaseSchoolYear(ctx context.Context, actor Actor, payload dto.SchoolYearActionRequest) (dto.BulkActionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BulkActionResponse{}, err
	}

	participants, err := s.participants.ListByUserIDs(ctx, payload.UserIDs)
	if err != nil {
		return dto.BulkActionResponse{}, err
	}

	var affected int64
	for _, participant := range participants {
		next := models.NextSchoolYear(participant.SchoolYear)
		if next == participant.SchoolYear {
			continue
		}
		if err := s.participants.UpdateSchoolYear(ctx, participant.UserID, next); err != nil {
			return dto.BulkActionResponse{Affected: affected}, err
		}
		affected++
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "participants.school_year_increased",
		EntityType: "participant",
		Metadata:   map[string]interface{}{"requested": len(payload.UserIDs), "affected": affected},
	})
	return dto.BulkActionResponse{Affected: affected}, nil
}

// PasteSchoolYear refreshes the school year snapshot of every application in the grade.
func (s *participantService) PasteSchoolYear(ctx context.Context, actor Actor, gradeID uuid.UUID) (dto.BulkActionResponse, error) {
	if _, err := s.grades.GetByID(ctx, gradeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BulkActionResponse{}, ErrGradeNotFound
		}
		return dto.BulkActionResponse{}, err
	}

	affected, err := s.applications.PasteSchoolYear(ctx, gradeID)
	if err != nil {
		return dto.BulkActionResponse{}, err
	}
	invalidateGrade(ctx, s.rankings, gradeID)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "applications.school_year_pasted",
		EntityType: "grade",
		EntityID:   gradeID.String(),
		Metadata:   map[string]interface{}{"affected": affected},
	})
	return dto.BulkActionResponse{Affected: affected}, nil
}
