package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

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
	"github.com/ksicht/ksicht-api/pkg/renderer"
)

// ErrRendererUnavailable indicates no PDF renderer is configured.
var ErrRendererUnavailable = errors.New("pdf renderer is not configured")

// Renderer stamps a label onto a solution and returns its print-ready variants.
type Renderer interface {
	Render(ctx context.Context, label string, source []byte) (renderer.Result, error)
}

// ExportService prepares labelled print copies of uploaded solutions.
type ExportService interface {
	Export(ctx context.Context, actor Actor, id uint) (dto.SubmissionExportResponse, error)
	ExportSeries(ctx context.Context, actor Actor, seriesID uuid.UUID) ([]dto.SubmissionExportResponse, error)
}

type exportService struct {
	submissions repository.SubmissionRepository
	store       blob.Store
	renderer    Renderer
	activity    ActivityRecorder
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewExportService constructs the export service. A nil renderer makes every export fail with ErrRendererUnavailable.
func NewExportService(submissions repository.SubmissionRepository, store blob.Store, render Renderer, activity ActivityRecorder, logger zerolog.Logger) ExportService {
	return &exportService{
		submissions: submissions,
		store:       store,
		renderer:    render,
		activity:    activity,
		logger:      logger.With().Str("component", "export_service").Logger(),
		tracer:      otel.Tracer("github.com/ksicht/ksicht-api/internal/service/export"),
	}
}

func (s *exportService) Export(ctx context.Context, actor Actor, id uint) (dto.SubmissionExportResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionExportResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionExportResponse{}, err
	}

	response, err := s.export(ctx, submission)
	if err != nil {
		return dto.SubmissionExportResponse{}, err
	}

	if response.Exported {
		recordActivity(ctx, s.activity, s.logger, ActivityEntry{
			Actor:      actor,
			Action:     "submission.exported",
			EntityType: "submission",
			EntityID:   fmt.Sprint(id),
		})
	}
	return response, nil
}

// ExportSeries prepares every uploaded solution of a series. Postal solutions are reported as not exported.
// A failing submission is logged and marked failed, and the remaining ones are still prepared.
func (s *exportService) ExportSeries(ctx context.Context, actor Actor, seriesID uuid.UUID) ([]dto.SubmissionExportResponse, error) {
	if s.renderer == nil {
		return nil, ErrRendererUnavailable
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{SeriesID: &seriesID})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubmissionExportResponse, 0, len(submissions))
	exported, failed := 0, 0
	for _, submission := range submissions {
		response, err := s.export(ctx, submission)
		if err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Str("series_id", seriesID.String()).Msg("series export item failed")
			failed++
			responses = append(responses, dto.SubmissionExportResponse{
				SubmissionID: submission.ID,
				Failed:       true,
				Error:        err.Error(),
				NormalKey:    submission.ExportNormalKey,
				DuplexKey:    submission.ExportDuplexKey,
			})
			continue
		}
		if response.Exported {
			exported++
		}
		responses = append(responses, response)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "series.exported",
		EntityType: "series",
		EntityID:   seriesID.String(),
		Metadata:   map[string]interface{}{"exported": exported, "failed": failed, "total": len(submissions)},
	})
	return responses, nil
}

// export renders the stored solution and saves both variants. A missing source is logged
// and leaves any earlier artifacts in place.
func (s *exportService) export(ctx context.Context, submission models.Submission) (dto.SubmissionExportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.export", trace.WithAttributes(
		attribute.Int("submission.id", int(submission.ID)),
		attribute.Int("submission.application_id", int(submission.ApplicationID)),
	))
	defer span.End()

	response := dto.SubmissionExportResponse{
		SubmissionID: submission.ID,
		NormalKey:    submission.ExportNormalKey,
		DuplexKey:    submission.ExportDuplexKey,
	}

	logger := s.logger.With().Uint("application_id", submission.ApplicationID).Int("task_number", submission.Task.Number).Logger()
	logger.Info().Msg("preparing submission for export")

	source, ok, err := s.source(ctx, submission)
	if err != nil {
		span.RecordError(err)
		observability.Exports().WithLabelValues("failed").Inc()
		return dto.SubmissionExportResponse{}, err
	}
	if !ok {
		logger.Warn().Msg("export skipped, no stored file available")
		observability.Exports().WithLabelValues("skipped").Inc()
		return response, nil
	}

	if s.renderer == nil {
		return dto.SubmissionExportResponse{}, ErrRendererUnavailable
	}

	label := ExportLabel(submission)
	rendered, err := s.renderer.Render(ctx, label, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render_failed")
		observability.Exports().WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("rendering export failed")
		return dto.SubmissionExportResponse{}, err
	}

	normalKey, duplexKey := ExportKeys(submission)
	for key, content := range map[string][]byte{normalKey: rendered.Normal, duplexKey: rendered.Duplex} {
		if _, err := s.store.Put(ctx, key, bytes.NewReader(content), blob.PutOptions{ContentType: pdfMime}); err != nil {
			span.RecordError(err)
			observability.Exports().WithLabelValues("failed").Inc()
			return dto.SubmissionExportResponse{}, err
		}
	}

	submission.ExportNormalKey = &normalKey
	submission.ExportDuplexKey = &duplexKey
	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		observability.Exports().WithLabelValues("failed").Inc()
		return dto.SubmissionExportResponse{}, err
	}

	observability.Exports().WithLabelValues("exported").Inc()
	logger.Debug().Msg("export versions prepared")

	response.Exported = true
	response.NormalKey = &normalKey
	response.DuplexKey = &duplexKey
	return response, nil
}

func (s *exportService) source(ctx context.Context, submission models.Submission) ([]byte, bool, error) {
	if submission.FileKey == nil {
		return nil, false, nil
	}

	_, body, err := s.store.Get(ctx, *submission.FileKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, false, err
	}
	if len(content) == 0 {
		return nil, false, nil
	}
	return content, true, nil
}

// ExportLabel is the header stamped on every page of an exported solution.
func ExportLabel(submission models.Submission) string {
	return fmt.Sprintf("Řešitel: %s       Úloha č. %d", submission.Application.Participant.FullName(), submission.Task.Number)
}

// ExportKeys returns the storage keys of the normal and duplex variants. Keys are stable,
// so exporting again overwrites the previous artifacts.
func ExportKeys(submission models.Submission) (string, string) {
	prefix := fmt.Sprintf("export/%s", submission.Task.SeriesID)
	base := fmt.Sprintf("submission_%d_%d", submission.ApplicationID, submission.Task.Number)
	return fmt.Sprintf("%s/%s_normal.pdf", prefix, base), fmt.Sprintf("%s/%s_duplex.pdf", prefix, base)
}
