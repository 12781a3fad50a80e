package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/blob"
	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/observability"
	"github.com/ksicht/ksicht-api/internal/repository"
)

var (
	// ErrSubmissionNotFound indicates the requested submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionExists indicates the application already has a submission for the task.
	ErrSubmissionExists = errors.New("submission for this task already exists")
	// ErrSubmissionsClosed indicates the series no longer accepts solutions.
	ErrSubmissionsClosed = errors.New("series does not accept submissions")
	// ErrNotEnrolled indicates the participant has no application for the grade.
	ErrNotEnrolled = errors.New("participant is not enrolled in the grade")
	// ErrForbidden indicates the caller may not perform the operation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrFileMissing indicates the submission has no stored document.
	ErrFileMissing = errors.New("submission has no stored file")
)

// SubmissionService handles solution uploads, postal records, grading and deletion.
type SubmissionService interface {
	Upload(ctx context.Context, actor Actor, taskID uuid.UUID, reader io.Reader) (dto.SubmissionResponse, error)
	RecordPostal(ctx context.Context, actor Actor, payload dto.PostalSubmissionRequest) (dto.SubmissionResponse, error)
	Score(ctx context.Context, actor Actor, id uint, payload dto.SubmissionScoreRequest) (dto.SubmissionResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	Download(ctx context.Context, actor Actor, id uint) (blob.Info, io.ReadCloser, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	ListOwn(ctx context.Context, actor Actor, seriesID uuid.UUID) ([]dto.SubmissionResponse, error)
}

// SubmissionServiceConfig bundles the collaborators of the submission service.
type SubmissionServiceConfig struct {
	Submissions  repository.SubmissionRepository
	Tasks        repository.TaskRepository
	Series       repository.SeriesRepository
	Applications repository.ApplicationRepository
	Stickers     repository.StickerRepository
	Store        blob.Store
	Rankings     RankingInvalidator
	Activity     ActivityRecorder
	Validator    *validator.Validate
	MaxUpload    int64
}

type submissionService struct {
	submissions  repository.SubmissionRepository
	tasks        repository.TaskRepository
	series       repository.SeriesRepository
	applications repository.ApplicationRepository
	stickers     repository.StickerRepository
	store        blob.Store
	rankings     RankingInvalidator
	activity     ActivityRecorder
	validator    *validator.Validate
	maxUpload    int64
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(cfg SubmissionServiceConfig, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions:  cfg.Submissions,
		tasks:        cfg.Tasks,
		series:       cfg.Series,
		applications: cfg.Applications,
		stickers:     cfg.Stickers,
		store:        cfg.Store,
		rankings:     cfg.Rankings,
		activity:     cfg.Activity,
		validator:    cfg.Validator,
		maxUpload:    cfg.MaxUpload,
		logger:       logger.With().Str("component", "submission_service").Logger(),
		tracer:       otel.Tracer("github.com/ksicht/ksicht-api/internal/service/submission"),
		now:          time.Now,
	}
}

// Upload stores a participant's PDF solution. Uploading again for the same task replaces the
// previous file and drops its stale export artifacts.
func (s *submissionService) Upload(ctx context.Context, actor Actor, taskID uuid.UUID, reader io.Reader) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.upload", trace.WithAttributes(
		attribute.String("submission.task_id", taskID.String()),
		attribute.Int("submission.user_id", int(actor.ID)),
	))
	defer span.End()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrTaskNotFound
		}
		return dto.SubmissionResponse{}, err
	}
	if task.Series == nil || !task.Series.AcceptsSubmissions(s.now()) {
		return dto.SubmissionResponse{}, ErrSubmissionsClosed
	}

	application, err := s.applications.GetByGradeAndParticipant(ctx, task.Series.GradeID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrNotEnrolled
		}
		return dto.SubmissionResponse{}, err
	}

	content, err := readPDF(reader, s.maxUpload)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			observability.UploadRejected().WithLabelValues("too_large").Inc()
		case errors.Is(err, ErrNotPDF):
			observability.UploadRejected().WithLabelValues("not_pdf").Inc()
		}
		return dto.SubmissionResponse{}, err
	}

	key := fmt.Sprintf("reseni/%s/%d/%d/%d-%s.pdf", task.Series.GradeID, task.Series.Number, task.Number, application.ID, uuid.NewString())
	if _, err := s.store.Put(ctx, key, bytes.NewReader(content), blob.PutOptions{
		ContentType: pdfMime,
		Metadata:    map[string]string{"application": fmt.Sprint(application.ID), "task": task.ID.String()},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store_failed")
		return dto.SubmissionResponse{}, err
	}

	existing, err := s.submissions.GetByApplicationAndTask(ctx, application.ID, task.ID)
	switch {
	case err == nil:
		stale := []*string{existing.FileKey, existing.ExportNormalKey, existing.ExportDuplexKey}
		existing.FileKey = &key
		existing.ExportNormalKey = nil
		existing.ExportDuplexKey = nil
		if err := s.submissions.Update(ctx, &existing); err != nil {
			s.discard(ctx, &key)
			return dto.SubmissionResponse{}, err
		}
		for _, old := range stale {
			s.discard(ctx, old)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		submission := models.Submission{ApplicationID: application.ID, TaskID: task.ID, FileKey: &key}
		if err := s.submissions.Create(ctx, &submission); err != nil {
			s.discard(ctx, &key)
			if errors.Is(err, repository.ErrDuplicate) {
				return dto.SubmissionResponse{}, ErrSubmissionExists
			}
			return dto.SubmissionResponse{}, err
		}
		existing = submission
	default:
		s.discard(ctx, &key)
		return dto.SubmissionResponse{}, err
	}

	invalidateGrade(ctx, s.rankings, task.Series.GradeID)
	s.logger.Info().Uint("submission_id", existing.ID).Str("key", key).Msg("submission uploaded")

	return s.respond(ctx, existing.ID)
}

// RecordPostal registers a solution delivered on paper.
func (s *submissionService) RecordPostal(ctx context.Context, actor Actor, payload dto.PostalSubmissionRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return dto.SubmissionResponse{}, models.NewValidationError("task_id", "invalid task id")
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrTaskNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if task.Series == nil {
		return dto.SubmissionResponse{}, ErrSeriesNotFound
	}

	// The application must belong to the grade of the task.
	application, err := s.applications.GetByID(ctx, payload.ApplicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, models.NewValidationError("application_id", "application does not exist")
		}
		return dto.SubmissionResponse{}, err
	}
	if application.GradeID != task.Series.GradeID {
		return dto.SubmissionResponse{}, models.NewValidationError("application_id", "application belongs to a different grade than the task")
	}

	submission := models.Submission{ApplicationID: application.ID, TaskID: task.ID}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.SubmissionResponse{}, ErrSubmissionExists
		}
		return dto.SubmissionResponse{}, err
	}

	invalidateGrade(ctx, s.rankings, task.Series.GradeID)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "submission.postal_recorded",
		EntityType: "submission",
		EntityID:   fmt.Sprint(submission.ID),
		Metadata:   map[string]interface{}{"application_id": payload.ApplicationID, "task_id": task.ID.String()},
	})

	return s.respond(ctx, submission.ID)
}

// Score grades a submission. The score may not exceed the task's points.
func (s *submissionService) Score(ctx context.Context, actor Actor, id uint, payload dto.SubmissionScoreRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "submission.score", trace.WithAttributes(attribute.Int("submission.id", int(id))))
	defer span.End()

	submission, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if payload.Score != nil && *payload.Score > float64(submission.Task.Points) {
		return dto.SubmissionResponse{}, models.NewValidationError("score", fmt.Sprintf("score must not exceed %d points", submission.Task.Points))
	}

	stickers := []models.Sticker{}
	if len(payload.StickerNumbers) > 0 {
		stickers, err = s.stickers.ListByNumbers(ctx, payload.StickerNumbers)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		if missing := missingStickers(payload.StickerNumbers, stickers); len(missing) > 0 {
			return dto.SubmissionResponse{}, models.NewValidationError("sticker_numbers", fmt.Sprintf("unknown stickers %v", missing))
		}
	}

	previous := submission.Score
	submission.Score = payload.Score
	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update_failed")
		return dto.SubmissionResponse{}, err
	}
	if err := s.submissions.ReplaceStickers(ctx, &submission, stickers); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if submission.Task.Series != nil {
		invalidateGrade(ctx, s.rankings, submission.Task.Series.GradeID)
	}

	metadata := map[string]interface{}{
		"participant_email": submission.Application.Participant.User.Email,
		"task_number":       submission.Task.Number,
		"series_number":     submission.Task.SeriesNumber(),
		"stickers":          payload.StickerNumbers,
	}
	if previous != nil {
		metadata["previous_score"] = *previous
	}
	if payload.Score != nil {
		metadata["score"] = *payload.Score
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "submission.scored",
		EntityType: "submission",
		EntityID:   fmt.Sprint(submission.ID),
		Metadata:   metadata,
	})

	return s.respond(ctx, submission.ID)
}

// Delete lets the author withdraw a solution while the series still accepts submissions.
func (s *submissionService) Delete(ctx context.Context, actor Actor, id uint) error {
	submission, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !submission.CanDelete(actor.ID, s.now()) {
		return ErrForbidden
	}

	if err := s.submissions.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	for _, key := range []*string{submission.FileKey, submission.ExportNormalKey, submission.ExportDuplexKey} {
		s.discard(ctx, key)
	}
	invalidateGrade(ctx, s.rankings, submission.Task.Series.GradeID)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "submission.deleted",
		EntityType: "submission",
		EntityID:   fmt.Sprint(id),
		Metadata:   map[string]interface{}{"task_id": submission.TaskID.String()},
	})
	return nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !actor.Staff && submission.Application.ParticipantID != actor.ID {
		return dto.SubmissionResponse{}, ErrForbidden
	}
	return dto.NewSubmissionResponse(submission), nil
}

// Download opens the stored solution for staff or its author.
func (s *submissionService) Download(ctx context.Context, actor Actor, id uint) (blob.Info, io.ReadCloser, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return blob.Info{}, nil, err
	}
	if !actor.Staff && submission.Application.ParticipantID != actor.ID {
		return blob.Info{}, nil, ErrForbidden
	}
	if submission.FileKey == nil {
		return blob.Info{}, nil, ErrFileMissing
	}

	info, body, err := s.store.Get(ctx, *submission.FileKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return blob.Info{}, nil, ErrFileMissing
		}
		return blob.Info{}, nil, err
	}
	return info, body, nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	query := repository.SubmissionFilter{Graded: filter.Graded}
	if filter.SeriesID != nil {
		id, err := uuid.Parse(*filter.SeriesID)
		if err != nil {
			return nil, models.NewValidationError("series_id", "invalid series id")
		}
		query.SeriesID = &id
	}
	if filter.TaskID != nil {
		id, err := uuid.Parse(*filter.TaskID)
		if err != nil {
			return nil, models.NewValidationError("task_id", "invalid task id")
		}
		query.TaskID = &id
	}

	submissions, err := s.submissions.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

// ListOwn returns the caller's submissions in a series.
func (s *submissionService) ListOwn(ctx context.Context, actor Actor, seriesID uuid.UUID) ([]dto.SubmissionResponse, error) {
	series, err := s.series.GetByID(ctx, seriesID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeriesNotFound
		}
		return nil, err
	}

	application, err := s.applications.GetByGradeAndParticipant(ctx, series.GradeID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []dto.SubmissionResponse{}, nil
		}
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{SeriesID: &series.ID, ApplicationID: &application.ID})
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) load(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *submissionService) respond(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

// discard removes a stored object, logging failures only.
func (s *submissionService) discard(ctx context.Context, key *string) {
	if key == nil || *key == "" {
		return
	}
	if _, err := s.store.Delete(ctx, *key); err != nil {
		s.logger.Warn().Err(err).Str("key", *key).Msg("failed to remove stored file")
	}
}

func missingStickers(numbers []int, stickers []models.Sticker) []int {
	found := make(map[int]struct{}, len(stickers))
	for _, sticker := range stickers {
		found[sticker.Number] = struct{}{}
	}

	var missing []int
	for _, number := range numbers {
		if _, ok := found[number]; !ok {
			missing = append(missing, number)
		}
	}
	return missing
}
