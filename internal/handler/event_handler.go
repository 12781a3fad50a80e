package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// EventHandler exposes events and enlistments.
type EventHandler struct {
	service service.EventService
	logger  zerolog.Logger
}

// NewEventHandler constructs the handler.
func NewEventHandler(service service.EventService, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger.With().Str("component", "event_handler").Logger(),
	}
}

// Register attaches the event listing routes. Hidden events show up only for invited users.
func (h *EventHandler) Register(router fiber.Router) {
	router.Get("/events", h.list)
	router.Get("/events/:id", h.get)
}

// RegisterParticipant attaches the enlistment route.
func (h *EventHandler) RegisterParticipant(router fiber.Router) {
	router.Post("/events/:id/enlistment", h.enlist)
}

// RegisterAdmin attaches the staff attendee listing.
func (h *EventHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/events/:id/attendees", h.attendees)
}

func (h *EventHandler) list(c *fiber.Ctx) error {
	req := dto.EventListRequest{When: c.Query("when")}

	events, err := h.service.List(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "events retrieved", events)
}

func (h *EventHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	event, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "event retrieved", event)
}

func (h *EventHandler) enlist(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attendee, err := h.service.Enlist(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enlisted", attendee)
}

func (h *EventHandler) attendees(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attendees, err := h.service.Attendees(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "attendees retrieved", attendees)
}
