package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// AuditQuery selects audit trail entries. Area matches the action family, so
// "submission" finds submission.scored as well as submission.postal_recorded.
type AuditQuery struct {
	Page       int
	PageSize   int
	ActorID    *uint
	Area       string
	Action     string
	EntityType string
	EntityID   string
	Since      *time.Time
	Until      *time.Time
}

// ActivityLogRepository persists the audit trail of scoring, enrolment and content changes.
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	Search(ctx context.Context, query AuditQuery) ([]models.ActivityLog, int64, error)
	History(ctx context.Context, entityType, entityID string) ([]models.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the audit trail repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Search returns one page of matching entries, newest first, with the total match count.
func (r *activityLogRepository) Search(ctx context.Context, query AuditQuery) ([]models.ActivityLog, int64, error) {
	scoped := r.scope(ctx, query)

	var total int64
	if err := scoped.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.PageSize > 0 {
		page := max(query.Page, 1)
		scoped = scoped.Offset((page - 1) * query.PageSize).Limit(query.PageSize)
	}

	var entries []models.ActivityLog
	if err := scoped.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// History returns every entry about one record in the order it happened, e.g. all score changes of a submission.
func (r *activityLogRepository) History(ctx context.Context, entityType, entityID string) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *activityLogRepository) scope(ctx context.Context, query AuditQuery) *gorm.DB {
	scoped := r.db.WithContext(ctx).Model(&models.ActivityLog{})

	if query.ActorID != nil {
		scoped = scoped.Where("actor_id = ?", *query.ActorID)
	}
	if query.Area != "" {
		scoped = scoped.Where("action LIKE ?", strings.TrimSuffix(query.Area, ".")+".%")
	}
	if query.Action != "" {
		scoped = scoped.Where("action = ?", query.Action)
	}
	if query.EntityType != "" {
		scoped = scoped.Where("entity_type = ?", query.EntityType)
	}
	if query.EntityID != "" {
		scoped = scoped.Where("entity_id = ?", query.EntityID)
	}
	if query.Since != nil {
		scoped = scoped.Where("created_at >= ?", query.Since.UTC())
	}
	if query.Until != nil {
		scoped = scoped.Where("created_at < ?", query.Until.UTC())
	}
	return scoped
}
