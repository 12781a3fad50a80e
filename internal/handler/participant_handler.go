package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// ParticipantHandler exposes profiles, grade applications and school year actions.
type ParticipantHandler struct {
	service service.ParticipantService
	logger  zerolog.Logger
}

// NewParticipantHandler constructs the handler.
func NewParticipantHandler(service service.ParticipantService, logger zerolog.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		service: service,
		logger:  logger.With().Str("component", "participant_handler").Logger(),
	}
}

// RegisterParticipant attaches the routes of the signed-in participant.
func (h *ParticipantHandler) RegisterParticipant(router fiber.Router) {
	router.Get("/profile", h.profile)
	router.Post("/grades/:id/application", h.apply)
	router.Get("/grades/:id/application", h.application)
}

// RegisterAdmin attaches the staff participant routes.
func (h *ParticipantHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/grades/:id/applications", h.listApplications)
	router.Post("/grades/:id/applications/school-year", h.pasteSchoolYear)
	router.Post("/participants/school-year/increase", h.increaseSchoolYear)
}

func (h *ParticipantHandler) profile(c *fiber.Ctx) error {
	profile, err := h.service.Profile(c.UserContext(), actorFromContext(c).ID)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "participant profile", profile)
}

func (h *ParticipantHandler) apply(c *fiber.Ctx) error {
	gradeID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	application, err := h.service.Apply(c.UserContext(), actorFromContext(c), gradeID)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application created", application)
}

func (h *ParticipantHandler) application(c *fiber.Ctx) error {
	gradeID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	application, err := h.service.Application(c.UserContext(), actorFromContext(c), gradeID)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "application retrieved", application)
}

func (h *ParticipantHandler) listApplications(c *fiber.Ctx) error {
	gradeID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	applications, err := h.service.ListApplications(c.UserContext(), gradeID)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "applications retrieved", applications)
}

func (h *ParticipantHandler) pasteSchoolYear(c *fiber.Ctx) error {
	gradeID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.PasteSchoolYear(c.UserContext(), actorFromContext(c), gradeID)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "school years copied", result)
}

func (h *ParticipantHandler) increaseSchoolYear(c *fiber.Ctx) error {
	var payload dto.SchoolYearActionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.IncreaseSchoolYear(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "school years increased", result)
}
