package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
)

var (
	// ErrEventNotFound indicates the event does not exist or is hidden from the caller.
	ErrEventNotFound = errors.New("event not found")
	// ErrEnlistmentClosed indicates the event does not accept enlistments.
	ErrEnlistmentClosed = errors.New("event does not accept enlistments")
	// ErrAlreadyEnlisted indicates the user is already on the attendee list.
	ErrAlreadyEnlisted = errors.New("already enlisted")
)

// EventService lists events and manages enlistments.
type EventService interface {
	List(ctx context.Context, actor Actor, req dto.EventListRequest) ([]dto.EventResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.EventResponse, error)
	Enlist(ctx context.Context, actor Actor, id uint) (dto.AttendeeResponse, error)
	Attendees(ctx context.Context, id uint) ([]dto.AttendeeResponse, error)
}

type eventService struct {
	events       repository.EventRepository
	participants repository.ParticipantRepository
	validator    *validator.Validate
	activity     ActivityRecorder
	logger       zerolog.Logger
	now          func() time.Time
}

// NewEventService constructs the event service.
func NewEventService(
	events repository.EventRepository,
	participants repository.ParticipantRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) EventService {
	return &eventService{
		events:       events,
		participants: participants,
		validator:    validate,
		activity:     activity,
		logger:       logger.With().Str("component", "event_service").Logger(),
		now:          time.Now,
	}
}

func (s *eventService) List(ctx context.Context, actor Actor, req dto.EventListRequest) ([]dto.EventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	today := s.now()
	events, err := s.events.List(ctx, repository.EventFilter{
		UserID:     actor.ID,
		Privileged: actor.Staff,
		Future:     req.When == "future",
		Past:       req.When == "past",
		Today:      today,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		response, err := s.respond(ctx, event, today)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}
	return responses, nil
}

func (s *eventService) Get(ctx context.Context, actor Actor, id uint) (dto.EventResponse, error) {
	event, err := s.load(ctx, actor, id)
	if err != nil {
		return dto.EventResponse{}, err
	}
	return s.respond(ctx, event, s.now())
}

// Enlist signs the caller up. Events may demand a birth date or phone number in the
// participant profile; the values are copied onto the enlistment.
func (s *eventService) Enlist(ctx context.Context, actor Actor, id uint) (dto.AttendeeResponse, error) {
	event, err := s.load(ctx, actor, id)
	if err != nil {
		return dto.AttendeeResponse{}, err
	}
	if !event.IsAcceptingEnlistments(s.now()) {
		return dto.AttendeeResponse{}, ErrEnlistmentClosed
	}

	participant, err := s.participants.GetByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendeeResponse{}, ErrParticipantNotFound
		}
		return dto.AttendeeResponse{}, err
	}

	if event.RequireBirthDate && participant.BirthDate == nil {
		return dto.AttendeeResponse{}, models.NewValidationError("birth_date", "birth date must be filled in the profile first")
	}
	if event.RequirePhoneNumber && (participant.Phone == nil || *participant.Phone == "") {
		return dto.AttendeeResponse{}, models.NewValidationError("phone", "phone number must be filled in the profile first")
	}

	attendee := models.EventAttendee{
		UserID:        actor.ID,
		EventID:       event.ID,
		SignupDate:    s.now(),
		UserBirthDate: participant.BirthDate,
		UserPhone:     participant.Phone,
	}
	if err := s.events.CreateAttendee(ctx, &attendee); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.AttendeeResponse{}, ErrAlreadyEnlisted
		}
		return dto.AttendeeResponse{}, err
	}
	attendee.User = participant.User

	s.logger.Info().Uint("event_id", event.ID).Uint("user_id", actor.ID).Msg("user enlisted")
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "event.enlisted",
		EntityType: "event",
		EntityID:   fmt.Sprint(event.ID),
		Metadata:   map[string]interface{}{"title": event.Title},
	})

	return dto.NewAttendeeResponse(attendee), nil
}

func (s *eventService) Attendees(ctx context.Context, id uint) ([]dto.AttendeeResponse, error) {
	if _, err := s.load(ctx, Actor{Staff: true}, id); err != nil {
		return nil, err
	}

	attendees, err := s.events.ListAttendees(ctx, id)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AttendeeResponse, 0, len(attendees))
	for _, attendee := range attendees {
		responses = append(responses, dto.NewAttendeeResponse(attendee))
	}
	return responses, nil
}

func (s *eventService) load(ctx context.Context, actor Actor, id uint) (models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, err
	}
	if !actor.Staff && !event.IsVisibleTo(actor.ID) {
		return models.Event{}, ErrEventNotFound
	}
	return event, nil
}

func (s *eventService) respond(ctx context.Context, event models.Event, today time.Time) (dto.EventResponse, error) {
	response := dto.NewEventResponse(event, today)
	if !event.PublishOccupancy {
		return response, nil
	}

	count, err := s.events.CountAttendees(ctx, event.ID)
	if err != nil {
		return dto.EventResponse{}, err
	}
	response.Occupancy = &count
	return response, nil
}
