package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/observability"
	"github.com/ksicht/ksicht-api/internal/repository"
)

var rankingBase = time.Date(2025, time.October, 31, 23, 59, 0, 0, time.UTC)

func newRankingService(db *gorm.DB, cache *redis.Client) RankingService {
	return NewRankingService(
		repository.NewSeriesRepository(db),
		repository.NewTaskRepository(db),
		repository.NewApplicationRepository(db),
		repository.NewSubmissionRepository(db),
		cache,
		time.Minute,
		zerolog.Nop(),
	)
}

type rankingScenario struct {
	fixture gradeFixture
	alice   models.Application
	bob     models.Application
	cyril   models.Application
}

// seedRankingScenario enrols three participants before the first deadline.
// Alice solves tasks in series one and two, Bob only in series two, Cyril never submits.
func seedRankingScenario(t *testing.T, db *gorm.DB) rankingScenario {
	t.Helper()

	fixture := seedGrade(t, db, rankingBase)
	early := rankingBase.AddDate(0, -1, 0)

	seedParticipant(t, db, 1, "Alice", "Nováková", models.SchoolYearSecond)
	seedParticipant(t, db, 2, "Bob", "Svoboda", models.SchoolYearThird)
	seedParticipant(t, db, 3, "Cyril", "Dvořák", models.SchoolYearFirst)

	scenario := rankingScenario{
		fixture: fixture,
		alice:   seedApplication(t, db, fixture.Grade.ID, 1, early),
		bob:     seedApplication(t, db, fixture.Grade.ID, 2, early.Add(time.Hour)),
		cyril:   seedApplication(t, db, fixture.Grade.ID, 3, early.Add(2*time.Hour)),
	}

	seedSubmission(t, db, scenario.alice.ID, fixture.Tasks[0][0].ID, points(3))
	seedSubmission(t, db, scenario.alice.ID, fixture.Tasks[1][0].ID, points(1.5))
	seedSubmission(t, db, scenario.bob.ID, fixture.Tasks[1][1].ID, points(4))
	seedSubmission(t, db, scenario.bob.ID, fixture.Tasks[1][2].ID, nil)

	return scenario
}

func TestRankingComputeIsCumulative(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	svc := newRankingService(db, nil)

	result, err := svc.Compute(context.Background(), scenario.fixture.Series[1].ID, RankingOptions{})
	require.NoError(t, err)
	require.Equal(t, 60.0, result.MaxScore)
	require.Len(t, result.Listing, 2)

	first, second := result.Listing[0], result.Listing[1]
	require.Equal(t, scenario.alice.ID, first.Application.ID)
	require.Equal(t, 1, first.Rank)
	require.InDelta(t, 4.5, first.Total, 1e-9)
	require.Len(t, first.Scores, models.TasksPerSeries)
	require.InDelta(t, 1.5, *first.Scores[scenario.fixture.Tasks[1][0].ID], 1e-9)
	_, tracked := first.Scores[scenario.fixture.Tasks[0][0].ID]
	require.False(t, tracked, "earlier series count towards the total only")

	require.Equal(t, scenario.bob.ID, second.Application.ID)
	require.Equal(t, 2, second.Rank)
	require.InDelta(t, 4.0, second.Total, 1e-9)
	slot, present := second.Scores[scenario.fixture.Tasks[1][2].ID]
	require.True(t, present)
	require.Nil(t, slot, "ungraded submission leaves an empty slot")
}

func TestRankingComputeFirstSeriesIgnoresLaterSubmissions(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	svc := newRankingService(db, nil)

	result, err := svc.Compute(context.Background(), scenario.fixture.Series[0].ID, RankingOptions{})
	require.NoError(t, err)
	require.Equal(t, 30.0, result.MaxScore)
	require.Len(t, result.Listing, 2)
	require.Equal(t, scenario.alice.ID, result.Listing[0].Application.ID)
	require.InDelta(t, 3.0, result.Listing[0].Total, 1e-9)
	require.Equal(t, scenario.bob.ID, result.Listing[1].Application.ID)
	require.Zero(t, result.Listing[1].Total)
}

func TestRankingComputeIncludesSubmissionlessOnRequest(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	svc := newRankingService(db, nil)

	result, err := svc.Compute(context.Background(), scenario.fixture.Series[1].ID, RankingOptions{IncludeSubmissionless: true})
	require.NoError(t, err)
	require.Len(t, result.Listing, 3)
	require.Equal(t, scenario.cyril.ID, result.Listing[2].Application.ID)
	require.Equal(t, 3, result.Listing[2].Rank)
	require.Zero(t, result.Listing[2].Total)
}

func TestRankingComputeTiesKeepEnrolmentOrder(t *testing.T) {
	db := setupDB(t)
	fixture := seedGrade(t, db, rankingBase)
	seedParticipant(t, db, 1, "Eva", "Malá", models.SchoolYearFirst)
	seedParticipant(t, db, 2, "Filip", "Velký", models.SchoolYearFirst)

	later := seedApplication(t, db, fixture.Grade.ID, 2, rankingBase.AddDate(0, 0, -5))
	earlier := seedApplication(t, db, fixture.Grade.ID, 1, rankingBase.AddDate(0, 0, -10))
	seedSubmission(t, db, later.ID, fixture.Tasks[0][0].ID, points(2))
	seedSubmission(t, db, earlier.ID, fixture.Tasks[0][1].ID, points(2))

	result, err := newRankingService(db, nil).Compute(context.Background(), fixture.Series[0].ID, RankingOptions{})
	require.NoError(t, err)
	require.Equal(t, earlier.ID, result.Listing[0].Application.ID)
	require.Equal(t, 1, result.Listing[0].Rank)
	require.Equal(t, later.ID, result.Listing[1].Application.ID)
	require.Equal(t, 2, result.Listing[1].Rank)
}

func TestRankingComputeWithSharedCaches(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	svc := newRankingService(db, nil)

	applications, err := repository.NewApplicationRepository(db).ListByGrade(context.Background(), scenario.fixture.Grade.ID)
	require.NoError(t, err)
	submissions, err := repository.NewSubmissionRepository(db).ListByGradeUpTo(context.Background(), scenario.fixture.Grade.ID, models.SeriesPerGrade)
	require.NoError(t, err)

	cached, err := svc.Compute(context.Background(), scenario.fixture.Series[1].ID, RankingOptions{
		Applications: applications,
		Submissions:  submissions,
	})
	require.NoError(t, err)

	fetched, err := svc.Compute(context.Background(), scenario.fixture.Series[1].ID, RankingOptions{IncludeSubmissionless: true})
	require.NoError(t, err)

	require.Len(t, cached.Listing, len(fetched.Listing))
	for i := range fetched.Listing {
		require.Equal(t, fetched.Listing[i].Application.ID, cached.Listing[i].Application.ID)
		require.InDelta(t, fetched.Listing[i].Total, cached.Listing[i].Total, 1e-9)
	}
}

func TestRankingComputeEmptyCachesDiffer(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	svc := newRankingService(db, nil)
	seriesID := scenario.fixture.Series[1].ID

	fetched, err := svc.Compute(context.Background(), seriesID, RankingOptions{})
	require.NoError(t, err)

	withEmptyTasks, err := svc.Compute(context.Background(), seriesID, RankingOptions{Tasks: []models.Task{}})
	require.NoError(t, err)
	require.Equal(t, fetched.MaxScore, withEmptyTasks.MaxScore)
	require.Len(t, withEmptyTasks.Listing, len(fetched.Listing))

	withoutApplications, err := svc.Compute(context.Background(), seriesID, RankingOptions{Applications: []models.Application{}})
	require.NoError(t, err)
	require.Empty(t, withoutApplications.Listing)
	require.Equal(t, fetched.MaxScore, withoutApplications.MaxScore)
}

func TestRankingComputeUnknownSeries(t *testing.T) {
	db := setupDB(t)
	_, err := newRankingService(db, nil).Compute(context.Background(), uuid.New(), RankingOptions{})
	require.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestRankingsRespectPublication(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	svc := newRankingService(db, nil)

	_, err := svc.Rankings(context.Background(), scenario.fixture.Series[0].ID, RankingQuery{PublishedOnly: true})
	require.ErrorIs(t, err, ErrResultsNotPublished)

	require.NoError(t, db.Model(&models.Series{}).Where("id = ?", scenario.fixture.Series[0].ID).Update("results_published", true).Error)

	response, err := svc.Rankings(context.Background(), scenario.fixture.Series[0].ID, RankingQuery{PublishedOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, response.SeriesNumber)
	require.Len(t, response.Tasks, models.TasksPerSeries)
	require.Equal(t, "Alice Nováková", response.Listing[0].ParticipantName)
	require.Equal(t, "Gymnázium Brno", response.Listing[0].School)
	require.Len(t, response.Listing[0].Scores, models.TasksPerSeries)
	require.InDelta(t, 3.0, *response.Listing[0].Scores[0], 1e-9)
	require.Nil(t, response.Listing[0].Scores[1])
}

func TestRankingsCacheUntilInvalidated(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := newRankingService(db, client)
	seriesID := scenario.fixture.Series[1].ID

	hits := testutil.ToFloat64(observability.RankingCache().WithLabelValues("hit"))

	first, err := svc.Rankings(context.Background(), seriesID, RankingQuery{})
	require.NoError(t, err)
	require.InDelta(t, 4.5, first.Listing[0].Total, 1e-9)

	require.NoError(t, db.Model(&models.Submission{}).
		Where("application_id = ? AND task_id = ?", scenario.bob.ID, scenario.fixture.Tasks[1][2].ID).
		Update("score", 5).Error)

	cached, err := svc.Rankings(context.Background(), seriesID, RankingQuery{})
	require.NoError(t, err)
	require.Equal(t, first, cached)
	require.Equal(t, hits+1, testutil.ToFloat64(observability.RankingCache().WithLabelValues("hit")))

	svc.InvalidateGrade(context.Background(), scenario.fixture.Grade.ID)
	version, err := client.Get(context.Background(), gradeVersionKey(scenario.fixture.Grade.ID)).Int()
	require.NoError(t, err)
	require.Equal(t, 1, version)

	fresh, err := svc.Rankings(context.Background(), seriesID, RankingQuery{})
	require.NoError(t, err)
	require.Equal(t, scenario.bob.ID, fresh.Listing[0].ApplicationID)
	require.InDelta(t, 9.0, fresh.Listing[0].Total, 1e-9)
}

func TestGradeRankingsMatchesSingleSeries(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	svc := newRankingService(db, nil)

	all, err := svc.GradeRankings(context.Background(), scenario.fixture.Grade.ID, RankingQuery{})
	require.NoError(t, err)
	require.Len(t, all, models.SeriesPerGrade)

	for i, series := range scenario.fixture.Series {
		single, err := svc.Rankings(context.Background(), series.ID, RankingQuery{})
		require.NoError(t, err)
		require.Equal(t, single.SeriesNumber, all[i].SeriesNumber)
		require.Equal(t, single.MaxScore, all[i].MaxScore)
		require.Equal(t, single.Listing, all[i].Listing)
	}

	published, err := svc.GradeRankings(context.Background(), scenario.fixture.Grade.ID, RankingQuery{PublishedOnly: true})
	require.NoError(t, err)
	require.Empty(t, published)
}

func TestActiveParticipants(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	grade := scenario.fixture.Grade.ID
	first, second := scenario.fixture.Series[0], scenario.fixture.Series[1]

	seedParticipant(t, db, 4, "Dana", "Černá", models.SchoolYearFourth)
	seedParticipant(t, db, 5, "Emil", "Bílý", models.SchoolYearLower)
	seedParticipant(t, db, 6, "Hana", "Zelená", models.SchoolYearFirst)
	// Dana applied exactly at the first deadline, which still belongs to the first series.
	seedApplication(t, db, grade, 4, first.SubmissionDeadline)
	// Emil applied between the first and second deadline.
	emil := seedApplication(t, db, grade, 5, first.SubmissionDeadline.Add(24*time.Hour))
	// Hana applied exactly at the second deadline, the last moment of the window.
	hana := seedApplication(t, db, grade, 6, second.SubmissionDeadline)

	svc := newRankingService(db, nil)

	active, err := svc.ActiveParticipants(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{1, 2}, participantIDs(active))

	active, err = svc.ActiveParticipants(context.Background(), second.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{1, 2, emil.ParticipantID, hana.ParticipantID}, participantIDs(active))
	require.Equal(t, "Emil Bílý", active[2].FullName())

	// A late applicant who also submitted appears once.
	seedSubmission(t, db, emil.ID, scenario.fixture.Tasks[1][4].ID, nil)
	active, err = svc.ActiveParticipants(context.Background(), second.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{1, 2, 5, 6}, participantIDs(active))
}

func TestActiveParticipantsUnknownSeries(t *testing.T) {
	db := setupDB(t)
	_, err := newRankingService(db, nil).ActiveParticipants(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrSeriesNotFound)
}

func participantIDs(participants []models.Participant) []uint {
	ids := make([]uint, 0, len(participants))
	for _, participant := range participants {
		ids = append(ids, participant.UserID)
	}
	return ids
}
