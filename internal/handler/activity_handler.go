package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// ActivityHandler exposes the staff audit trail.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// RegisterAdmin attaches activity log routes to the staff router.
func (h *ActivityHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/activity", h.list)
	router.Get("/activity/:entity_type/:entity_id", h.history)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 25
	} else if pageSize > 200 {
		pageSize = 200
	}

	actorID, err := parseQueryInt(c, "actor_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid actor id")
	}

	req := dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		Area:       c.Query("area"),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
	}
	if actorID > 0 {
		req.ActorID = uint(actorID)
	}
	if req.Since, err = parseQueryTime(c, "since"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid since")
	}
	if req.Until, err = parseQueryTime(c, "until"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid until")
	}

	response, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "activity logs", response)
}

func (h *ActivityHandler) history(c *fiber.Ctx) error {
	entries, err := h.service.History(c.UserContext(), c.Params("entity_type"), c.Params("entity_id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "activity history", entries)
}
