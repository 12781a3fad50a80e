package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Append(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) Search(ctx context.Context, query repository.AuditQuery) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func (m *memoryActivityRepo) History(ctx context.Context, entityType, entityID string) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	for _, entry := range m.entries {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func TestActivityServiceRecordMasksContactDetails(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, zerolog.Nop())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		Actor:      Actor{ID: 1, Role: "Staff"},
		Action:     "Submission.Scored",
		EntityType: "submission",
		EntityID:   "5",
		Metadata: map[string]interface{}{
			"participant_email": "jana@example.com",
			"phone":             "+420123456789",
			"score":             2.5,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["participant_email"])
	require.Equal(t, "***", entry.Metadata["phone"])
	require.Equal(t, 2.5, entry.Metadata["score"])
	require.Equal(t, "staff", entry.ActorRole)
	require.Equal(t, "submission.scored", entry.Action)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, zerolog.Nop())
	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "submission"})
	require.Error(t, err)
}

func TestActivityServiceListPaginates(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, zerolog.Nop())
	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{Action: "grade.created", EntityType: "grade"})
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), dto.ActivityListRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), list.Pagination.TotalItems)
	require.Equal(t, 2, list.Pagination.TotalPages)
	require.Equal(t, "system", list.Items[0].ActorRole)
}

func TestActivityServiceSearchesAuditTrail(t *testing.T) {
	db := setupDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []models.ActivityLog{
		{ActorID: 1, ActorRole: "staff", Action: "submission.scored", EntityType: "submission", EntityID: "7", CreatedAt: base},
		{ActorID: 2, ActorRole: "staff", Action: "grade.created", EntityType: "grade", EntityID: "g", CreatedAt: base.Add(time.Hour)},
		{ActorID: 1, ActorRole: "staff", Action: "submission.scored", EntityType: "submission", EntityID: "7", CreatedAt: base.Add(2 * time.Hour)},
		{ActorID: 5, ActorRole: "participant", Action: "submission.uploaded", EntityType: "submission", EntityID: "8", CreatedAt: base.Add(3 * time.Hour)},
		{ActorID: 1, ActorRole: "staff", Action: "submissions.exported", EntityType: "series", EntityID: "s", CreatedAt: base.Add(4 * time.Hour)},
	}
	for i := range entries {
		require.NoError(t, db.Create(&entries[i]).Error)
	}

	list, err := svc.List(context.Background(), dto.ActivityListRequest{Page: 1, PageSize: 10, Area: "Submission"})
	require.NoError(t, err)
	require.Equal(t, int64(3), list.Pagination.TotalItems)
	require.Equal(t, "submission.uploaded", list.Items[0].Action)

	since := base.Add(time.Hour)
	until := base.Add(3 * time.Hour)
	list, err = svc.List(context.Background(), dto.ActivityListRequest{Page: 1, PageSize: 10, Since: &since, Until: &until})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, "submission.scored", list.Items[0].Action)
	require.Equal(t, "grade.created", list.Items[1].Action)

	_, err = svc.List(context.Background(), dto.ActivityListRequest{Since: &until, Until: &since})
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "until", validationErr.Field)

	history, err := svc.History(context.Background(), "Submission", "7")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.True(t, history[0].CreatedAt.Before(history[1].CreatedAt))
}
