package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// GradeHandler exposes competition year endpoints.
type GradeHandler struct {
	grades service.GradeService
	series service.SeriesService
	logger zerolog.Logger
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(grades service.GradeService, series service.SeriesService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		grades: grades,
		series: series,
		logger: logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the public grade routes.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Get("/grades/current", h.current)
	router.Get("/grades/archive", h.archive)
	router.Get("/grades/:id", h.get)
	router.Get("/grades/:id/series", h.listSeries)
}

// RegisterAdmin attaches the staff grade routes.
func (h *GradeHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/grades", h.list)
	router.Post("/grades", h.create)
	router.Patch("/grades/:id", h.update)
	router.Delete("/grades/:id", h.delete)
}

func (h *GradeHandler) current(c *fiber.Ctx) error {
	overview, err := h.grades.Current(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "current grade", overview)
}

func (h *GradeHandler) archive(c *fiber.Ctx) error {
	grades, err := h.grades.Archive(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "archived grades", grades)
}

func (h *GradeHandler) get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grade, err := h.grades.Get(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grade retrieved", grade)
}

func (h *GradeHandler) listSeries(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if _, err := h.grades.Get(c.UserContext(), id); err != nil {
		return handleError(c, h.logger, err)
	}
	series, err := h.series.ListByGrade(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "series retrieved", series)
}

func (h *GradeHandler) list(c *fiber.Ctx) error {
	grades, err := h.grades.List(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grades retrieved", grades)
}

func (h *GradeHandler) create(c *fiber.Ctx) error {
	var payload dto.GradeCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	grade, err := h.grades.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grade created", grade)
}

func (h *GradeHandler) update(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	grade, err := h.grades.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grade updated", grade)
}

func (h *GradeHandler) delete(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.grades.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grade deleted", nil)
}
