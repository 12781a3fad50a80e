package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
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
	"github.com/ksicht/ksicht-api/internal/repository"
)

const pdfMime = "application/pdf"

var (
	// ErrSeriesNotFound indicates the requested series does not exist.
	ErrSeriesNotFound = errors.New("series not found")
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskInUse indicates a task cannot be removed because submissions reference it.
	ErrTaskInUse = errors.New("task has submissions")
	// ErrNotPDF indicates an uploaded document is not a PDF.
	ErrNotPDF = errors.New("file must be a PDF document")
	// ErrFileTooLarge indicates an uploaded document exceeds the configured limit.
	ErrFileTooLarge = errors.New("file exceeds the upload limit")
	// ErrBrochureStorageUnavailable indicates brochure hosting is not configured.
	ErrBrochureStorageUnavailable = errors.New("brochure storage is not configured")
	// ErrAttachmentNotFound indicates the requested series attachment does not exist.
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// BrochureUploader hosts series brochures and returns their public URL.
type BrochureUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// SeriesService manages series settings, tasks and brochures.
type SeriesService interface {
	Get(ctx context.Context, id uuid.UUID, withCounts bool) (dto.SeriesResponse, error)
	ListByGrade(ctx context.Context, gradeID uuid.UUID) ([]dto.SeriesResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, payload dto.SeriesUpdateRequest) (dto.SeriesResponse, error)
	UpdateTasks(ctx context.Context, actor Actor, id uuid.UUID, payload dto.TasksUpdateRequest) (dto.SeriesResponse, error)
	UploadBrochure(ctx context.Context, actor Actor, id uuid.UUID, reader io.Reader) (dto.SeriesResponse, error)
	DeleteTask(ctx context.Context, actor Actor, taskID uuid.UUID) error
	AddAttachment(ctx context.Context, actor Actor, seriesID uuid.UUID, payload dto.SeriesAttachmentRequest, fileName string, reader io.Reader) (dto.SeriesAttachmentResponse, error)
	DeleteAttachment(ctx context.Context, actor Actor, id uint) error
	DownloadAttachment(ctx context.Context, id uint) (models.SeriesAttachment, io.ReadCloser, error)
}

type seriesService struct {
	series      repository.SeriesRepository
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	attachments repository.SeriesAttachmentRepository
	store       blob.Store
	brochures   BrochureUploader
	rankings    RankingInvalidator
	activity    ActivityRecorder
	validator   *validator.Validate
	maxUpload   int64
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// SeriesServiceConfig bundles the collaborators of the series service.
type SeriesServiceConfig struct {
	Series      repository.SeriesRepository
	Tasks       repository.TaskRepository
	Submissions repository.SubmissionRepository
	Attachments repository.SeriesAttachmentRepository
	Store       blob.Store
	Brochures   BrochureUploader
	Rankings    RankingInvalidator
	Activity    ActivityRecorder
	Validator   *validator.Validate
	MaxUpload   int64
}

// NewSeriesService constructs the series service. A nil brochure uploader disables brochure uploads.
func NewSeriesService(cfg SeriesServiceConfig, logger zerolog.Logger) SeriesService {
	return &seriesService{
		series:      cfg.Series,
		tasks:       cfg.Tasks,
		submissions: cfg.Submissions,
		attachments: cfg.Attachments,
		store:       cfg.Store,
		brochures:   cfg.Brochures,
		rankings:    cfg.Rankings,
		activity:    cfg.Activity,
		validator:   cfg.Validator,
		maxUpload:   cfg.MaxUpload,
		logger:      logger.With().Str("component", "series_service").Logger(),
		tracer:      otel.Tracer("github.com/ksicht/ksicht-api/internal/service/series"),
		now:         time.Now,
	}
}

// Get returns the series with its tasks. withCounts adds per-task submission counts for staff views.
func (s *seriesService) Get(ctx context.Context, id uuid.UUID, withCounts bool) (dto.SeriesResponse, error) {
	series, err := s.load(ctx, id)
	if err != nil {
		return dto.SeriesResponse{}, err
	}

	response := dto.NewSeriesResponse(series, s.now())
	if !withCounts {
		return response, nil
	}

	taskIDs := make([]uuid.UUID, 0, len(series.Tasks))
	for _, task := range series.Tasks {
		taskIDs = append(taskIDs, task.ID)
	}
	counts, err := s.submissions.CountByTasks(ctx, taskIDs)
	if err != nil {
		return dto.SeriesResponse{}, err
	}
	for i := range response.Tasks {
		count := counts[response.Tasks[i].ID]
		response.Tasks[i].SubmissionCount = &count
	}

	return response, nil
}

func (s *seriesService) ListByGrade(ctx context.Context, gradeID uuid.UUID) ([]dto.SeriesResponse, error) {
	series, err := s.series.ListByGrade(ctx, gradeID)
	if err != nil {
		return nil, err
	}
	return dto.NewSeriesResponseSlice(series, s.now()), nil
}

func (s *seriesService) Update(ctx context.Context, actor Actor, id uuid.UUID, payload dto.SeriesUpdateRequest) (dto.SeriesResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SeriesResponse{}, err
	}

	series, err := s.load(ctx, id)
	if err != nil {
		return dto.SeriesResponse{}, err
	}

	metadata := map[string]interface{}{"number": series.Number}
	if payload.SubmissionDeadline != nil {
		series.SubmissionDeadline = payload.SubmissionDeadline.UTC()
		metadata["submission_deadline"] = series.SubmissionDeadline.Format(time.RFC3339)
	}
	if payload.ResultsPublished != nil {
		series.ResultsPublished = *payload.ResultsPublished
		metadata["results_published"] = series.ResultsPublished
	}

	if err := s.series.Update(ctx, &series); err != nil {
		return dto.SeriesResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "series.updated",
		EntityType: "series",
		EntityID:   series.ID.String(),
		Metadata:   metadata,
	})

	return dto.NewSeriesResponse(series, s.now()), nil
}

// UpdateTasks rewrites titles and points of the five tasks in order. Point changes alter the
// maximum score, so cached rankings of the grade are dropped.
func (s *seriesService) UpdateTasks(ctx context.Context, actor Actor, id uuid.UUID, payload dto.TasksUpdateRequest) (dto.SeriesResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SeriesResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "series.update_tasks", trace.WithAttributes(attribute.String("series.id", id.String())))
	defer span.End()

	series, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.SeriesResponse{}, err
	}
	if len(series.Tasks) != len(payload.Tasks) {
		return dto.SeriesResponse{}, models.NewValidationError("tasks", fmt.Sprintf("series has %d tasks", len(series.Tasks)))
	}

	for i := range series.Tasks {
		series.Tasks[i].Title = payload.Tasks[i].Title
		series.Tasks[i].Points = payload.Tasks[i].Points
		if err := s.tasks.Update(ctx, &series.Tasks[i]); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "task_update_failed")
			return dto.SeriesResponse{}, err
		}
	}

	invalidateGrade(ctx, s.rankings, series.GradeID)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "series.tasks_updated",
		EntityType: "series",
		EntityID:   series.ID.String(),
		Metadata:   map[string]interface{}{"number": series.Number},
	})

	return dto.NewSeriesResponse(series, s.now()), nil
}

// UploadBrochure publishes the problem set PDF. A series only accepts submissions once it has one.
func (s *seriesService) UploadBrochure(ctx context.Context, actor Actor, id uuid.UUID, reader io.Reader) (dto.SeriesResponse, error) {
	if s.brochures == nil {
		return dto.SeriesResponse{}, ErrBrochureStorageUnavailable
	}

	series, err := s.load(ctx, id)
	if err != nil {
		return dto.SeriesResponse{}, err
	}

	content, err := readPDF(reader, s.maxUpload)
	if err != nil {
		return dto.SeriesResponse{}, err
	}

	year := "rocnik"
	if series.Grade != nil {
		year = strings.ReplaceAll(series.Grade.SchoolYear, "/", "-")
	}
	name := fmt.Sprintf("zadani-%s-serie-%d.pdf", year, series.Number)

	url, err := s.brochures.Upload(ctx, name, bytes.NewReader(content))
	if err != nil {
		s.logger.Error().Err(err).Str("series_id", id.String()).Msg("brochure upload failed")
		return dto.SeriesResponse{}, err
	}

	series.TaskFile = &url
	if err := s.series.Update(ctx, &series); err != nil {
		return dto.SeriesResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "series.brochure_uploaded",
		EntityType: "series",
		EntityID:   series.ID.String(),
		Metadata:   map[string]interface{}{"url": url},
	})

	return dto.NewSeriesResponse(series, s.now()), nil
}

func (s *seriesService) DeleteTask(ctx context.Context, actor Actor, taskID uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	used, err := s.tasks.HasSubmissions(ctx, taskID)
	if err != nil {
		return err
	}
	if used {
		return ErrTaskInUse
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	if task.Series != nil {
		invalidateGrade(ctx, s.rankings, task.Series.GradeID)
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "task.deleted",
		EntityType: "task",
		EntityID:   taskID.String(),
		Metadata:   map[string]interface{}{"number": task.Number, "series_number": task.SeriesNumber()},
	})
	return nil
}

// AddAttachment stores a supplementary file of any type next to the series brochure.
func (s *seriesService) AddAttachment(ctx context.Context, actor Actor, seriesID uuid.UUID, payload dto.SeriesAttachmentRequest, fileName string, reader io.Reader) (dto.SeriesAttachmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SeriesAttachmentResponse{}, err
	}

	series, err := s.load(ctx, seriesID)
	if err != nil {
		return dto.SeriesAttachmentResponse{}, err
	}

	source := reader
	if s.maxUpload > 0 {
		source = io.LimitReader(reader, s.maxUpload+1)
	}
	content, err := io.ReadAll(source)
	if err != nil {
		return dto.SeriesAttachmentResponse{}, err
	}
	if s.maxUpload > 0 && int64(len(content)) > s.maxUpload {
		return dto.SeriesAttachmentResponse{}, ErrFileTooLarge
	}
	if len(content) == 0 {
		return dto.SeriesAttachmentResponse{}, models.NewValidationError("file", "file is empty")
	}

	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		name = "priloha"
	}
	contentType := mimetype.Detect(content).String()
	key := fmt.Sprintf("rocniky/prilohy/%s/%s-%s", series.ID, uuid.NewString(), name)

	if _, err := s.store.Put(ctx, key, bytes.NewReader(content), blob.PutOptions{ContentType: contentType}); err != nil {
		s.logger.Error().Err(err).Str("series_id", series.ID.String()).Msg("attachment upload failed")
		return dto.SeriesAttachmentResponse{}, err
	}

	attachment := models.SeriesAttachment{
		SeriesID:    series.ID,
		Title:       strings.TrimSpace(payload.Title),
		FileKey:     key,
		FileName:    name,
		ContentType: contentType,
		Size:        int64(len(content)),
	}
	if err := s.attachments.Create(ctx, &attachment); err != nil {
		if _, discardErr := s.store.Delete(ctx, key); discardErr != nil {
			s.logger.Warn().Err(discardErr).Str("key", key).Msg("failed to discard attachment file")
		}
		return dto.SeriesAttachmentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "series.attachment_added",
		EntityType: "series",
		EntityID:   series.ID.String(),
		Metadata:   map[string]interface{}{"attachment_id": attachment.ID, "title": attachment.Title},
	})

	return dto.NewSeriesAttachmentResponse(attachment), nil
}

func (s *seriesService) DeleteAttachment(ctx context.Context, actor Actor, id uint) error {
	attachment, err := s.loadAttachment(ctx, id)
	if err != nil {
		return err
	}

	if err := s.attachments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	if _, err := s.store.Delete(ctx, attachment.FileKey); err != nil {
		s.logger.Warn().Err(err).Str("key", attachment.FileKey).Msg("failed to delete attachment file")
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "series.attachment_deleted",
		EntityType: "series",
		EntityID:   attachment.SeriesID.String(),
		Metadata:   map[string]interface{}{"attachment_id": id, "title": attachment.Title},
	})
	return nil
}

// DownloadAttachment opens the stored file. The caller closes the reader.
func (s *seriesService) DownloadAttachment(ctx context.Context, id uint) (models.SeriesAttachment, io.ReadCloser, error) {
	attachment, err := s.loadAttachment(ctx, id)
	if err != nil {
		return models.SeriesAttachment{}, nil, err
	}

	_, body, err := s.store.Get(ctx, attachment.FileKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return models.SeriesAttachment{}, nil, ErrFileMissing
		}
		return models.SeriesAttachment{}, nil, err
	}
	return attachment, body, nil
}

func (s *seriesService) loadAttachment(ctx context.Context, id uint) (models.SeriesAttachment, error) {
	attachment, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.SeriesAttachment{}, ErrAttachmentNotFound
		}
		return models.SeriesAttachment{}, err
	}
	return attachment, nil
}

func (s *seriesService) load(ctx context.Context, id uuid.UUID) (models.Series, error) {
	series, err := s.series.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Series{}, ErrSeriesNotFound
		}
		return models.Series{}, err
	}
	return series, nil
}

// invalidateGrade drops cached rankings when an invalidator is wired.
func invalidateGrade(ctx context.Context, rankings RankingInvalidator, gradeID uuid.UUID) {
	if rankings != nil {
		rankings.InvalidateGrade(ctx, gradeID)
	}
}

// readPDF reads at most limit bytes and checks the content sniffs as a PDF. A non-positive limit disables the size check.
func readPDF(reader io.Reader, limit int64) ([]byte, error) {
	source := reader
	if limit > 0 {
		source = io.LimitReader(reader, limit+1)
	}

	content, err := io.ReadAll(source)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(content)) > limit {
		return nil, ErrFileTooLarge
	}
	if !mimetype.Detect(content).Is(pdfMime) {
		return nil, ErrNotPDF
	}
	return content, nil
}
