package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
)

var (
	// ErrGradeNotFound indicates the requested grade does not exist.
	ErrGradeNotFound = errors.New("grade not found")
	// ErrNoCurrentGrade indicates no grade is in progress today.
	ErrNoCurrentGrade = errors.New("no grade is in progress")
	// ErrGradeExists indicates another grade already uses the school year label.
	ErrGradeExists = errors.New("grade with this school year already exists")
	// ErrSeriesInUse indicates a series cannot be removed because its tasks carry submissions.
	ErrSeriesInUse = errors.New("series has submissions")
)

// GradeService manages competition years and their fixed series layout.
type GradeService interface {
	Create(ctx context.Context, actor Actor, payload dto.GradeCreateRequest) (dto.GradeResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, payload dto.GradeUpdateRequest) (dto.GradeResponse, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (dto.GradeResponse, error)
	List(ctx context.Context) ([]dto.GradeResponse, error)
	Current(ctx context.Context) (dto.GradeOverviewResponse, error)
	Archive(ctx context.Context) ([]dto.GradeResponse, error)
}

type gradeService struct {
	grades    repository.GradeRepository
	series    repository.SeriesRepository
	validator *validator.Validate
	activity  ActivityRecorder
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewGradeService constructs the grade service.
func NewGradeService(
	grades repository.GradeRepository,
	series repository.SeriesRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) GradeService {
	return &gradeService{
		grades:    grades,
		series:    series,
		validator: validate,
		activity:  activity,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "grade_service").Logger(),
		tracer:    otel.Tracer("github.com/ksicht/ksicht-api/internal/service/grade"),
		now:       time.Now,
	}
}

func (s *gradeService) Create(ctx context.Context, actor Actor, payload dto.GradeCreateRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "grade.create")
	defer span.End()

	now := s.now()
	start, end := models.DefaultGradeRange(now)
	if payload.StartDate != nil {
		start = models.DateOf(*payload.StartDate)
	}
	if payload.EndDate != nil {
		end = models.DateOf(*payload.EndDate)
	}

	schoolYear := strings.TrimSpace(payload.SchoolYear)
	if schoolYear == "" {
		schoolYear = models.DefaultSchoolYear(start)
	}

	grade := models.Grade{
		ID:         uuid.New(),
		SchoolYear: schoolYear,
		Errata:     s.sanitizer.Sanitize(payload.Errata),
		StartDate:  start,
		EndDate:    end,
		Series:     make([]models.Series, 0, models.SeriesPerGrade),
	}

	if err := s.validateRange(ctx, grade); err != nil {
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}

	for i, seriesPayload := range payload.Series {
		series := models.Series{
			ID:                 uuid.New(),
			GradeID:            grade.ID,
			Number:             i + 1,
			SubmissionDeadline: seriesPayload.SubmissionDeadline.UTC(),
			Tasks:              make([]models.Task, 0, models.TasksPerSeries),
		}
		for j, taskPayload := range seriesPayload.Tasks {
			series.Tasks = append(series.Tasks, models.Task{
				ID:       uuid.New(),
				SeriesID: series.ID,
				Number:   j + 1,
				Title:    strings.TrimSpace(taskPayload.Title),
				Points:   taskPayload.Points,
			})
		}
		grade.Series = append(grade.Series, series)
	}

	if err := s.grades.Create(ctx, &grade); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create_failed")
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.GradeResponse{}, ErrGradeExists
		}
		return dto.GradeResponse{}, err
	}

	span.SetAttributes(attribute.String("grade.id", grade.ID.String()))
	s.logger.Info().Str("grade_id", grade.ID.String()).Str("school_year", grade.SchoolYear).Msg("grade created")

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "grade.created",
		EntityType: "grade",
		EntityID:   grade.ID.String(),
		Metadata:   map[string]interface{}{"school_year": grade.SchoolYear},
	})

	return dto.NewGradeResponse(grade, now), nil
}

func (s *gradeService) Update(ctx context.Context, actor Actor, id uuid.UUID, payload dto.GradeUpdateRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, err
	}

	grade, err := s.load(ctx, id)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	if payload.SchoolYear != nil {
		grade.SchoolYear = strings.TrimSpace(*payload.SchoolYear)
	}
	if payload.Errata != nil {
		grade.Errata = s.sanitizer.Sanitize(*payload.Errata)
	}
	if payload.StartDate != nil {
		grade.StartDate = models.DateOf(*payload.StartDate)
	}
	if payload.EndDate != nil {
		grade.EndDate = models.DateOf(*payload.EndDate)
	}

	if err := s.validateRange(ctx, grade); err != nil {
		return dto.GradeResponse{}, err
	}

	if err := s.grades.Update(ctx, &grade); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.GradeResponse{}, ErrGradeExists
		}
		return dto.GradeResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "grade.updated",
		EntityType: "grade",
		EntityID:   grade.ID.String(),
	})

	return dto.NewGradeResponse(grade, s.now()), nil
}

// Delete removes a grade with its series and tasks as long as nobody has submitted a solution yet.
func (s *gradeService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	grade, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	for _, series := range grade.Series {
		used, err := s.series.HasSubmissions(ctx, series.ID)
		if err != nil {
			return err
		}
		if used {
			return ErrSeriesInUse
		}
	}

	if err := s.grades.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGradeNotFound
		}
		return err
	}

	s.logger.Info().Str("grade_id", id.String()).Msg("grade deleted")
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "grade.deleted",
		EntityType: "grade",
		EntityID:   id.String(),
		Metadata:   map[string]interface{}{"school_year": grade.SchoolYear},
	})
	return nil
}

func (s *gradeService) Get(ctx context.Context, id uuid.UUID) (dto.GradeResponse, error) {
	grade, err := s.load(ctx, id)
	if err != nil {
		return dto.GradeResponse{}, err
	}
	return dto.NewGradeResponse(grade, s.now()), nil
}

func (s *gradeService) List(ctx context.Context) ([]dto.GradeResponse, error) {
	grades, err := s.grades.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.responses(grades), nil
}

// Current resolves the grade in progress today together with its current, previous and future series.
func (s *gradeService) Current(ctx context.Context) (dto.GradeOverviewResponse, error) {
	now := s.now()
	grade, err := s.grades.Current(ctx, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeOverviewResponse{}, ErrNoCurrentGrade
		}
		return dto.GradeOverviewResponse{}, err
	}
	return dto.NewGradeOverviewResponse(grade, now), nil
}

func (s *gradeService) Archive(ctx context.Context) ([]dto.GradeResponse, error) {
	grades, err := s.grades.Archive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return s.responses(grades), nil
}

func (s *gradeService) load(ctx context.Context, id uuid.UUID) (models.Grade, error) {
	grade, err := s.grades.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Grade{}, ErrGradeNotFound
		}
		return models.Grade{}, err
	}
	return grade, nil
}

func (s *gradeService) validateRange(ctx context.Context, grade models.Grade) error {
	others, err := s.grades.List(ctx)
	if err != nil {
		return err
	}
	return grade.ValidateRange(others)
}

func (s *gradeService) responses(grades []models.Grade) []dto.GradeResponse {
	now := s.now()
	responses := make([]dto.GradeResponse, 0, len(grades))
	for _, grade := range grades {
		responses = append(responses, dto.NewGradeResponse(grade, now))
	}
	return responses
}
