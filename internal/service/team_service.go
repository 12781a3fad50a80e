package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
)

// ErrTeamMemberNotFound indicates the requested roster entry does not exist.
var ErrTeamMemberNotFound = errors.New("team member not found")

// TeamService maintains the organiser roster shown on the public team page.
type TeamService interface {
	List(ctx context.Context) ([]dto.TeamMemberResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.TeamMemberCreateRequest) (dto.TeamMemberResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.TeamMemberUpdateRequest) (dto.TeamMemberResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type teamService struct {
	members   repository.TeamMemberRepository
	validator *validator.Validate
	activity  ActivityRecorder
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewTeamService constructs the team service.
func NewTeamService(members repository.TeamMemberRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) TeamService {
	return &teamService{
		members:   members,
		validator: validate,
		activity:  activity,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "team_service").Logger(),
	}
}

func (s *teamService) List(ctx context.Context) ([]dto.TeamMemberResponse, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TeamMemberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, dto.NewTeamMemberResponse(member))
	}
	return responses, nil
}

func (s *teamService) Create(ctx context.Context, actor Actor, payload dto.TeamMemberCreateRequest) (dto.TeamMemberResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TeamMemberResponse{}, err
	}

	member := models.TeamMember{
		Name:         strings.TrimSpace(payload.Name),
		Role:         strings.TrimSpace(payload.Role),
		Bio:          s.sanitizer.Sanitize(payload.Bio),
		ImageURL:     payload.ImageURL,
		Position:     payload.Position,
		URLFacebook:  payload.URLFacebook,
		URLInstagram: payload.URLInstagram,
		URLOther:     payload.URLOther,
	}
	if err := s.members.Create(ctx, &member); err != nil {
		return dto.TeamMemberResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "team_member.created",
		EntityType: "team_member",
		EntityID:   fmt.Sprint(member.ID),
		Metadata:   map[string]interface{}{"name": member.Name},
	})
	return dto.NewTeamMemberResponse(member), nil
}

func (s *teamService) Update(ctx context.Context, actor Actor, id uint, payload dto.TeamMemberUpdateRequest) (dto.TeamMemberResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TeamMemberResponse{}, err
	}

	member, err := s.load(ctx, id)
	if err != nil {
		return dto.TeamMemberResponse{}, err
	}

	if payload.Name != nil {
		member.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Role != nil {
		member.Role = strings.TrimSpace(*payload.Role)
	}
	if payload.Bio != nil {
		member.Bio = s.sanitizer.Sanitize(*payload.Bio)
	}
	if payload.ImageURL != nil {
		member.ImageURL = *payload.ImageURL
	}
	if payload.Position != nil {
		member.Position = *payload.Position
	}
	if payload.URLFacebook != nil {
		member.URLFacebook = *payload.URLFacebook
	}
	if payload.URLInstagram != nil {
		member.URLInstagram = *payload.URLInstagram
	}
	if payload.URLOther != nil {
		member.URLOther = *payload.URLOther
	}

	if err := s.members.Update(ctx, &member); err != nil {
		return dto.TeamMemberResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "team_member.updated",
		EntityType: "team_member",
		EntityID:   fmt.Sprint(member.ID),
	})
	return dto.NewTeamMemberResponse(member), nil
}

func (s *teamService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := s.members.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamMemberNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "team_member.deleted",
		EntityType: "team_member",
		EntityID:   fmt.Sprint(id),
	})
	return nil
}

func (s *teamService) load(ctx context.Context, id uint) (models.TeamMember, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TeamMember{}, ErrTeamMemberNotFound
		}
		return models.TeamMember{}, err
	}
	return member, nil
}
