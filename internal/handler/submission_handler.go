package handler

import (
	"fmt"
	"path"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// SubmissionHandler manages solution endpoints for participants and staff.
type SubmissionHandler struct {
	service   service.SubmissionService
	exports   service.ExportService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, exports service.ExportService, validator *validator.Validate, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		exports:   exports,
		validator: validator,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// RegisterParticipant attaches the routes participants use for their own solutions.
func (h *SubmissionHandler) RegisterParticipant(router fiber.Router) {
	router.Post("/submissions", h.upload)
	router.Get("/series/:id/submissions", h.listOwn)
	router.Get("/submissions/:id", h.get)
	router.Get("/submissions/:id/file", h.download)
	router.Delete("/submissions/:id", h.delete)
}

// RegisterAdmin attaches the staff grading and export routes.
func (h *SubmissionHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/submissions", h.list)
	router.Post("/submissions/postal", h.recordPostal)
	router.Get("/submissions/:id", h.get)
	router.Get("/submissions/:id/file", h.download)
	router.Patch("/submissions/:id/score", h.score)
	router.Post("/submissions/:id/export", h.export)
	router.Post("/series/:id/export", h.exportSeries)
}

func (h *SubmissionHandler) upload(c *fiber.Ctx) error {
	payload := dto.SubmissionUploadRequest{TaskID: c.FormValue("task_id")}
	if err := h.validator.Struct(payload); err != nil {
		return handleError(c, h.logger, err)
	}
	taskID := uuid.MustParse(payload.TaskID)

	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	file, err := header.Open()
	if err != nil {
		return handleError(c, h.logger, err)
	}
	defer file.Close()

	submission, err := h.service.Upload(c.UserContext(), actorFromContext(c), taskID, file)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission uploaded", submission)
}

func (h *SubmissionHandler) listOwn(c *fiber.Ctx) error {
	seriesID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.service.ListOwn(c.UserContext(), actorFromContext(c), seriesID)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) download(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	info, body, err := h.service.Download(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", path.Base(info.Key)))
	return c.SendStream(body, int(info.Size))
}

func (h *SubmissionHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission deleted", nil)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	var filter dto.SubmissionFilter
	if err := c.QueryParser(&filter); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid filter")
	}

	submissions, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) recordPostal(c *fiber.Ctx) error {
	var payload dto.PostalSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.RecordPostal(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "postal submission recorded", submission)
}

func (h *SubmissionHandler) score(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.Score(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission scored", submission)
}

func (h *SubmissionHandler) export(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.exports.Export(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission exported", result)
}

func (h *SubmissionHandler) exportSeries(c *fiber.Ctx) error {
	seriesID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	results, err := h.exports.ExportSeries(c.UserContext(), actorFromContext(c), seriesID)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "series exported", results)
}
