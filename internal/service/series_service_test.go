package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/blob"
	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
)

type stubBrochures struct {
	names []string
}

func (s *stubBrochures) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if _, err := io.ReadAll(reader); err != nil {
		return "", err
	}
	s.names = append(s.names, name)
	return "https://res.cloudinary.com/ksicht/raw/upload/" + name, nil
}

func newSeriesService(db *gorm.DB, brochures BrochureUploader, invalidator RankingInvalidator) SeriesService {
	svc := NewSeriesService(SeriesServiceConfig{
		Series:      repository.NewSeriesRepository(db),
		Tasks:       repository.NewTaskRepository(db),
		Submissions: repository.NewSubmissionRepository(db),
		Attachments: repository.NewSeriesAttachmentRepository(db),
		Store:       blob.NewMemoryStore(),
		Brochures:   brochures,
		Rankings:    invalidator,
		Validator:   validator.New(),
		MaxUpload:   1 << 20,
	}, zerolog.Nop())
	svc.(*seriesService).now = func() time.Time { return rankingBase.AddDate(0, 0, -1) }
	return svc
}

func TestSeriesGetWithSubmissionCounts(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	svc := newSeriesService(db, nil, nil)

	series, err := svc.Get(context.Background(), scenario.fixture.Series[1].ID, true)
	require.NoError(t, err)
	require.Len(t, series.Tasks, 5)
	require.True(t, series.AcceptsSubmissions)
	for i, expected := range []int64{1, 1, 1, 0, 0} {
		require.Equal(t, expected, *series.Tasks[i].SubmissionCount, "task %d", i+1)
	}

	plain, err := svc.Get(context.Background(), scenario.fixture.Series[1].ID, false)
	require.NoError(t, err)
	require.Nil(t, plain.Tasks[0].SubmissionCount)

	_, err = svc.Get(context.Background(), uuid.New(), false)
	require.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestSeriesUpdateTasksInvalidatesRankings(t *testing.T) {
	db := setupDB(t)
	fixture := seedGrade(t, db, rankingBase)
	invalidator := &recordingInvalidator{}
	svc := newSeriesService(db, nil, invalidator)

	request := dto.TasksUpdateRequest{}
	for i := 1; i <= 5; i++ {
		request.Tasks = append(request.Tasks, dto.TaskRequest{Title: "Nová úloha", Points: 10})
	}
	updated, err := svc.UpdateTasks(context.Background(), staffActor, fixture.Series[0].ID, request)
	require.NoError(t, err)
	require.Equal(t, 10, updated.Tasks[4].Points)
	require.Equal(t, []uuid.UUID{fixture.Grade.ID}, invalidator.grades)

	total, err := repository.NewTaskRepository(db).SumPoints(context.Background(), fixture.Grade.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 50.0, total)

	request.Tasks = request.Tasks[:2]
	_, err = svc.UpdateTasks(context.Background(), staffActor, fixture.Series[0].ID, request)
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestSeriesUpdatePublishesResults(t *testing.T) {
	db := setupDB(t)
	fixture := seedGrade(t, db, rankingBase)
	svc := newSeriesService(db, nil, nil)

	published := true
	deadline := rankingBase.AddDate(0, 0, 7)
	updated, err := svc.Update(context.Background(), staffActor, fixture.Series[0].ID, dto.SeriesUpdateRequest{
		ResultsPublished:   &published,
		SubmissionDeadline: &deadline,
	})
	require.NoError(t, err)
	require.True(t, updated.ResultsPublished)
	require.True(t, updated.SubmissionDeadline.Equal(deadline))

	listed, err := svc.ListByGrade(context.Background(), fixture.Grade.ID)
	require.NoError(t, err)
	require.Len(t, listed, 4)
	require.True(t, listed[0].ResultsPublished)
}

func TestSeriesUploadBrochure(t *testing.T) {
	db := setupDB(t)
	fixture := seedGrade(t, db, rankingBase)
	brochures := &stubBrochures{}
	svc := newSeriesService(db, brochures, nil)

	_, err := svc.UploadBrochure(context.Background(), staffActor, fixture.Series[2].ID, strings.NewReader("plain text"))
	require.ErrorIs(t, err, ErrNotPDF)

	updated, err := svc.UploadBrochure(context.Background(), staffActor, fixture.Series[2].ID, bytes.NewReader(samplePDF))
	require.NoError(t, err)
	require.Equal(t, []string{"zadani-2025-2026-serie-3.pdf"}, brochures.names)
	require.Contains(t, *updated.TaskFile, "serie-3.pdf")

	_, err = newSeriesService(db, nil, nil).UploadBrochure(context.Background(), staffActor, fixture.Series[2].ID, bytes.NewReader(samplePDF))
	require.ErrorIs(t, err, ErrBrochureStorageUnavailable)
}

func TestSeriesDeleteTaskGuardsSubmissions(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	invalidator := &recordingInvalidator{}
	svc := newSeriesService(db, nil, invalidator)

	err := svc.DeleteTask(context.Background(), staffActor, scenario.fixture.Tasks[0][0].ID)
	require.ErrorIs(t, err, ErrTaskInUse)

	require.NoError(t, svc.DeleteTask(context.Background(), staffActor, scenario.fixture.Tasks[0][4].ID))
	require.Equal(t, []uuid.UUID{scenario.fixture.Grade.ID}, invalidator.grades)

	err = svc.DeleteTask(context.Background(), staffActor, scenario.fixture.Tasks[0][4].ID)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSeriesAttachmentsOrderedByTitle(t *testing.T) {
	db := setupDB(t)
	fixture := seedGrade(t, db, rankingBase)
	svc := newSeriesService(db, nil, nil)
	store := svc.(*seriesService).store.(*blob.MemoryStore)
	seriesID := fixture.Series[0].ID

	spectra, err := svc.AddAttachment(context.Background(), staffActor, seriesID, dto.SeriesAttachmentRequest{Title: "Spektra"}, "C:\\data\\spektra.csv", strings.NewReader("nm;absorbance\n450;0.12\n"))
	require.NoError(t, err)
	require.Equal(t, "spektra.csv", spectra.FileName)
	require.Contains(t, spectra.ContentType, "text/")

	_, err = svc.AddAttachment(context.Background(), staffActor, seriesID, dto.SeriesAttachmentRequest{Title: "Periodická tabulka"}, "tabulka.pdf", bytes.NewReader(samplePDF))
	require.NoError(t, err)

	_, err = svc.AddAttachment(context.Background(), staffActor, seriesID, dto.SeriesAttachmentRequest{Title: "Prázdná"}, "empty.txt", strings.NewReader(""))
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "file", validationErr.Field)

	_, err = svc.AddAttachment(context.Background(), staffActor, seriesID, dto.SeriesAttachmentRequest{Title: "Velká"}, "big.bin", bytes.NewReader(make([]byte, 1<<20+1)))
	require.ErrorIs(t, err, ErrFileTooLarge)

	_, err = svc.AddAttachment(context.Background(), staffActor, uuid.New(), dto.SeriesAttachmentRequest{Title: "Nic"}, "x.pdf", bytes.NewReader(samplePDF))
	require.ErrorIs(t, err, ErrSeriesNotFound)

	series, err := svc.Get(context.Background(), seriesID, false)
	require.NoError(t, err)
	require.Len(t, series.Attachments, 2)
	require.Equal(t, "Periodická tabulka", series.Attachments[0].Title)
	require.Equal(t, "Spektra", series.Attachments[1].Title)
	require.Len(t, store.Keys(), 2)

	attachment, body, err := svc.DownloadAttachment(context.Background(), spectra.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "nm;absorbance\n450;0.12\n", string(content))
	require.Equal(t, int64(len(content)), attachment.Size)

	require.NoError(t, svc.DeleteAttachment(context.Background(), staffActor, spectra.ID))
	require.ErrorIs(t, svc.DeleteAttachment(context.Background(), staffActor, spectra.ID), ErrAttachmentNotFound)
	_, _, err = svc.DownloadAttachment(context.Background(), spectra.ID)
	require.ErrorIs(t, err, ErrAttachmentNotFound)
	require.Len(t, store.Keys(), 1)
}
