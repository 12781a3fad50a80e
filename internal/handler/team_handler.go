package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// TeamHandler serves the organiser roster.
type TeamHandler struct {
	service service.TeamService
	logger  zerolog.Logger
}

// NewTeamHandler constructs the handler.
func NewTeamHandler(service service.TeamService, logger zerolog.Logger) *TeamHandler {
	return &TeamHandler{
		service: service,
		logger:  logger.With().Str("component", "team_handler").Logger(),
	}
}

// Register attaches the public roster route.
func (h *TeamHandler) Register(router fiber.Router) {
	router.Get("/team", h.list)
}

// RegisterAdmin attaches roster maintenance routes.
func (h *TeamHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/team", h.create)
	router.Patch("/team/:id", h.update)
	router.Delete("/team/:id", h.delete)
}

func (h *TeamHandler) list(c *fiber.Ctx) error {
	members, err := h.service.List(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "team retrieved", members)
}

func (h *TeamHandler) create(c *fiber.Ctx) error {
	var payload dto.TeamMemberCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	member, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "team member created", member)
}

func (h *TeamHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TeamMemberUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	member, err := h.service.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "team member updated", member)
}

func (h *TeamHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "team member deleted", nil)
}
