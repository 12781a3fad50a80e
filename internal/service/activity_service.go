package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
)

// Actor identifies who performs an action.
type Actor struct {
	ID    uint
	Role  string
	Staff bool
}

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	Actor      Actor
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]interface{}
}

// ActivityRecorder defines behaviour for recording activity logs.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService exposes methods to query and persist the audit trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	History(ctx context.Context, entityType, entityID string) ([]dto.ActivityResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return dto.ActivityResponse{}, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return dto.ActivityResponse{}, fmt.Errorf("entity type is required")
	}

	model := models.ActivityLog{
		ActorID:    entry.Actor.ID,
		ActorRole:  normalizeRole(entry.Actor.Role),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   strings.TrimSpace(entry.EntityID),
		Metadata:   sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Append(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if req.Since != nil && req.Until != nil && !req.Until.After(*req.Since) {
		return dto.ActivityListResponse{}, models.NewValidationError("until", "until must be after since")
	}

	query := repository.AuditQuery{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Area:       strings.ToLower(strings.TrimSpace(req.Area)),
		Action:     strings.ToLower(strings.TrimSpace(req.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(req.EntityType)),
		EntityID:   strings.TrimSpace(req.EntityID),
		Since:      req.Since,
		Until:      req.Until,
	}
	if req.ActorID > 0 {
		query.ActorID = &req.ActorID
	}

	entries, total, err := s.repo.Search(ctx, query)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       max(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: 1,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	}

	return dto.ActivityListResponse{Items: responses, Pagination: pagination}, nil
}

// History lists what happened to one record, oldest first.
func (s *activityService) History(ctx context.Context, entityType, entityID string) ([]dto.ActivityResponse, error) {
	entries, err := s.repo.History(ctx, strings.ToLower(strings.TrimSpace(entityType)), strings.TrimSpace(entityID))
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}
	return responses, nil
}

// sanitizeMetadata masks contact details so the audit trail carries no personal data.
func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "phone") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}

// recordActivity stores an audit entry without failing the calling operation.
func recordActivity(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record activity")
	}
}
