package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
)

func newParticipantService(db *gorm.DB, now time.Time) ParticipantService {
	return newParticipantServiceWithRankings(db, now, nil)
}

func newParticipantServiceWithRankings(db *gorm.DB, now time.Time, rankings RankingInvalidator) ParticipantService {
	svc := NewParticipantService(
		repository.NewParticipantRepository(db),
		repository.NewApplicationRepository(db),
		repository.NewGradeRepository(db),
		rankings,
		validator.New(),
		NewActivityService(&memoryActivityRepo{}, zerolog.Nop()),
		zerolog.Nop(),
	)
	svc.(*participantService).now = func() time.Time { return now }
	return svc
}

func TestParticipantApplySnapshotsSchoolYear(t *testing.T) {
	db := setupDB(t)
	fixture := seedGrade(t, db, rankingBase)
	seedParticipant(t, db, 1, "Alice", "Nováková", models.SchoolYearSecond)
	svc := newParticipantService(db, rankingBase)

	application, err := svc.Apply(context.Background(), Actor{ID: 1}, fixture.Grade.ID)
	require.NoError(t, err)
	require.Equal(t, models.SchoolYearSecond, *application.ParticipantCurrentGrade)
	require.Equal(t, "Alice Nováková", application.Participant.Name)

	_, err = svc.Apply(context.Background(), Actor{ID: 1}, fixture.Grade.ID)
	require.ErrorIs(t, err, ErrDuplicateApplication)

	_, err = svc.Apply(context.Background(), Actor{ID: 7}, fixture.Grade.ID)
	require.ErrorIs(t, err, ErrParticipantNotFound)

	own, err := svc.Application(context.Background(), Actor{ID: 1}, fixture.Grade.ID)
	require.NoError(t, err)
	require.Equal(t, application.ID, own.ID)
}

func TestParticipantApplyRequiresRunningGrade(t *testing.T) {
	db := setupDB(t)
	fixture := seedGrade(t, db, rankingBase)
	seedParticipant(t, db, 1, "Alice", "Nováková", models.SchoolYearSecond)

	svc := newParticipantService(db, fixture.Grade.EndDate.AddDate(0, 0, 1))
	_, err := svc.Apply(context.Background(), Actor{ID: 1}, fixture.Grade.ID)
	require.ErrorIs(t, err, ErrApplicationsClosed)
}

func TestParticipantSchoolYearActions(t *testing.T) {
	db := setupDB(t)
	fixture := seedGrade(t, db, rankingBase)
	seedParticipant(t, db, 1, "Alice", "Nováková", models.SchoolYearLower)
	seedParticipant(t, db, 2, "Bob", "Svoboda", models.SchoolYearFourth)
	seedParticipant(t, db, 3, "Cyril", "Dvořák", models.SchoolYearSecond)
	seedApplication(t, db, fixture.Grade.ID, 1, rankingBase)
	seedApplication(t, db, fixture.Grade.ID, 2, rankingBase)
	svc := newParticipantService(db, rankingBase)

	result, err := svc.IncreaseSchoolYear(context.Background(), staffActor, dto.SchoolYearActionRequest{UserIDs: []uint{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, int64(2), result.Affected, "final year students stay")

	profile, err := svc.Profile(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.SchoolYearFirst, profile.SchoolYear)
	profile, err = svc.Profile(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, models.SchoolYearThird, profile.SchoolYear)

	pasted, err := svc.PasteSchoolYear(context.Background(), staffActor, fixture.Grade.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), pasted.Affected)

	applications, err := svc.ListApplications(context.Background(), fixture.Grade.ID)
	require.NoError(t, err)
	require.Len(t, applications, 2)
	require.Equal(t, models.SchoolYearFirst, *applications[0].ParticipantCurrentGrade)
	require.Equal(t, models.SchoolYearFourth, *applications[1].ParticipantCurrentGrade)

	_, err = svc.IncreaseSchoolYear(context.Background(), staffActor, dto.SchoolYearActionRequest{})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestParticipantWritesRefreshCachedRankings(t *testing.T) {
	db := setupDB(t)
	scenario := seedRankingScenario(t, db)
	seedParticipant(t, db, 4, "Dana", "Černá", models.SchoolYearFourth)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rankings := newRankingService(db, client)
	svc := newParticipantServiceWithRankings(db, rankingBase, rankings)

	seriesID := scenario.fixture.Series[0].ID
	query := RankingQuery{IncludeSubmissionless: true}
	before, err := rankings.Rankings(context.Background(), seriesID, query)
	require.NoError(t, err)
	require.Len(t, before.Listing, 3)

	_, err = svc.Apply(context.Background(), Actor{ID: 4}, scenario.fixture.Grade.ID)
	require.NoError(t, err)

	after, err := rankings.Rankings(context.Background(), seriesID, query)
	require.NoError(t, err)
	require.Len(t, after.Listing, 4)

	require.NoError(t, db.Model(&models.Participant{}).Where("user_id = ?", 1).Update("school_year", models.SchoolYearFourth).Error)
	_, err = svc.PasteSchoolYear(context.Background(), staffActor, scenario.fixture.Grade.ID)
	require.NoError(t, err)

	pasted, err := rankings.Rankings(context.Background(), seriesID, query)
	require.NoError(t, err)
	for _, row := range pasted.Listing {
		if row.ApplicationID == scenario.alice.ID {
			require.NotNil(t, row.SchoolYear)
			require.Equal(t, models.SchoolYearFourth, *row.SchoolYear)
		}
	}
}
