package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
)

var staffActor = Actor{ID: 100, Role: "staff", Staff: true}

func newGradeService(db *gorm.DB, now time.Time) (GradeService, *memoryActivityRepo) {
	activity := &memoryActivityRepo{}
	svc := NewGradeService(
		repository.NewGradeRepository(db),
		repository.NewSeriesRepository(db),
		validator.New(),
		NewActivityService(activity, zerolog.Nop()),
		zerolog.Nop(),
	)
	svc.(*gradeService).now = func() time.Time { return now }
	return svc, activity
}

func gradeRequest(firstDeadline time.Time) dto.GradeCreateRequest {
	request := dto.GradeCreateRequest{}
	for i := 0; i < models.SeriesPerGrade; i++ {
		series := dto.SeriesCreateRequest{SubmissionDeadline: firstDeadline.AddDate(0, 2*i, 0)}
		for j := 0; j < models.TasksPerSeries; j++ {
			series.Tasks = append(series.Tasks, dto.TaskRequest{Title: "Úloha", Points: 5})
		}
		request.Series = append(request.Series, series)
	}
	return request
}

func TestGradeServiceCreateAppliesDefaults(t *testing.T) {
	db := setupDB(t)
	now := time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)
	svc, activity := newGradeService(db, now)

	request := gradeRequest(time.Date(2026, time.November, 30, 23, 59, 0, 0, time.UTC))
	request.Errata = `<p>Oprava zadání</p><script>alert(1)</script>`

	grade, err := svc.Create(context.Background(), staffActor, request)
	require.NoError(t, err)
	require.Equal(t, "2026/2027", grade.SchoolYear)
	require.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), grade.StartDate)
	require.Equal(t, time.Date(2027, time.July, 31, 0, 0, 0, 0, time.UTC), grade.EndDate)
	require.True(t, grade.InProgress)
	require.Equal(t, "<p>Oprava zadání</p>", grade.Errata)
	require.Len(t, grade.Series, models.SeriesPerGrade)
	for i, series := range grade.Series {
		require.Equal(t, i+1, series.Number)
		require.Len(t, series.Tasks, models.TasksPerSeries)
		require.False(t, series.AcceptsSubmissions, "no brochure yet")
		for j, task := range series.Tasks {
			require.Equal(t, j+1, task.Number)
		}
	}

	var tasks int64
	require.NoError(t, db.Model(&models.Task{}).Count(&tasks).Error)
	require.Equal(t, int64(models.SeriesPerGrade*models.TasksPerSeries), tasks)
	require.Len(t, activity.entries, 1)
	require.Equal(t, "grade.created", activity.entries[0].Action)
}

func TestGradeServiceCreateRequiresFourSeriesOfFiveTasks(t *testing.T) {
	db := setupDB(t)
	svc, _ := newGradeService(db, time.Now())

	request := gradeRequest(time.Now().AddDate(0, 1, 0))
	request.Series = request.Series[:3]
	_, err := svc.Create(context.Background(), staffActor, request)
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	request = gradeRequest(time.Now().AddDate(0, 1, 0))
	request.Series[1].Tasks = request.Series[1].Tasks[:4]
	_, err = svc.Create(context.Background(), staffActor, request)
	require.ErrorAs(t, err, &validationErrs)
}

func TestGradeServiceCreateRejectsOverlapAndDuplicates(t *testing.T) {
	db := setupDB(t)
	now := time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)
	svc, _ := newGradeService(db, now)

	_, err := svc.Create(context.Background(), staffActor, gradeRequest(now.AddDate(0, 1, 0)))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), staffActor, gradeRequest(now.AddDate(0, 1, 0)))
	require.ErrorIs(t, err, models.ErrGradeOverlap)

	start := time.Date(2030, time.August, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2031, time.July, 31, 0, 0, 0, 0, time.UTC)
	request := gradeRequest(start.AddDate(0, 3, 0))
	request.StartDate, request.EndDate = &start, &end
	request.SchoolYear = "2026/2027"
	_, err = svc.Create(context.Background(), staffActor, request)
	require.ErrorIs(t, err, ErrGradeExists)
}

func TestGradeServiceUpdateValidatesRange(t *testing.T) {
	db := setupDB(t)
	first := seedGrade(t, db, time.Date(2024, time.October, 31, 23, 59, 0, 0, time.UTC))
	second := seedGrade(t, db, time.Date(2026, time.October, 31, 23, 59, 0, 0, time.UTC))
	svc, _ := newGradeService(db, time.Now())

	overlapping := second.Grade.StartDate.AddDate(0, 1, 0)
	_, err := svc.Update(context.Background(), staffActor, first.Grade.ID, dto.GradeUpdateRequest{EndDate: &overlapping})
	require.ErrorIs(t, err, models.ErrGradeOverlap)

	errata := "<b>Errata</b>"
	updated, err := svc.Update(context.Background(), staffActor, first.Grade.ID, dto.GradeUpdateRequest{Errata: &errata})
	require.NoError(t, err)
	require.Equal(t, errata, updated.Errata)

	_, err = svc.Update(context.Background(), staffActor, uuid.New(), dto.GradeUpdateRequest{Errata: &errata})
	require.ErrorIs(t, err, ErrGradeNotFound)
}

func TestGradeServiceCurrentOverview(t *testing.T) {
	db := setupDB(t)
	fixture := seedGrade(t, db, rankingBase)
	now := rankingBase.AddDate(0, 0, 10)
	svc, _ := newGradeService(db, now)

	overview, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, fixture.Grade.ID, overview.Grade.ID)
	require.NotNil(t, overview.CurrentSeries)
	require.Equal(t, 2, overview.CurrentSeries.Number)
	require.NotNil(t, overview.PreviousSeries)
	require.Equal(t, 1, overview.PreviousSeries.Number)
	require.Len(t, overview.FutureSeries, 2)

	svc, _ = newGradeService(db, rankingBase.AddDate(3, 0, 0))
	_, err = svc.Current(context.Background())
	require.ErrorIs(t, err, ErrNoCurrentGrade)

	archive, err := svc.Archive(context.Background())
	require.NoError(t, err)
	require.Len(t, archive, 1)
}

func TestGradeServiceDeleteGuardsSubmissions(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	empty := seedGrade(t, db, rankingBase.AddDate(2, 0, 0))
	svc, _ := newGradeService(db, time.Now())

	err := svc.Delete(context.Background(), staffActor, scenario.fixture.Grade.ID)
	require.ErrorIs(t, err, ErrSeriesInUse)

	require.NoError(t, svc.Delete(context.Background(), staffActor, empty.Grade.ID))
	_, err = svc.Get(context.Background(), empty.Grade.ID)
	require.ErrorIs(t, err, ErrGradeNotFound)

	var tasks int64
	require.NoError(t, db.Model(&models.Task{}).Where("series_id = ?", empty.Series[0].ID).Count(&tasks).Error)
	require.Zero(t, tasks)
}
