package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// SeriesHandler exposes series, task and brochure endpoints.
type SeriesHandler struct {
	service service.SeriesService
	logger  zerolog.Logger
}

// NewSeriesHandler constructs the handler.
func NewSeriesHandler(service service.SeriesService, logger zerolog.Logger) *SeriesHandler {
	return &SeriesHandler{
		service: service,
		logger:  logger.With().Str("component", "series_handler").Logger(),
	}
}

// Register attaches the public series routes.
func (h *SeriesHandler) Register(router fiber.Router) {
	router.Get("/series/:id", h.get(false))
	router.Get("/attachments/:id/file", h.downloadAttachment)
}

// RegisterAdmin attaches the staff series routes.
func (h *SeriesHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/series/:id", h.get(true))
	router.Patch("/series/:id", h.update)
	router.Put("/series/:id/tasks", h.updateTasks)
	router.Post("/series/:id/brochure", h.uploadBrochure)
	router.Post("/series/:id/attachments", h.addAttachment)
	router.Delete("/attachments/:id", h.deleteAttachment)
	router.Delete("/tasks/:id", h.deleteTask)
}

func (h *SeriesHandler) get(withCounts bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUUIDParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		series, err := h.service.Get(c.UserContext(), id, withCounts)
		if err != nil {
			return handleError(c, h.logger, err)
		}
		return utils.SendSuccess(c, "series retrieved", series)
	}
}

func (h *SeriesHandler) update(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SeriesUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	series, err := h.service.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "series updated", series)
}

func (h *SeriesHandler) updateTasks(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TasksUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	series, err := h.service.UpdateTasks(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "tasks updated", series)
}

func (h *SeriesHandler) uploadBrochure(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	file, err := header.Open()
	if err != nil {
		return handleError(c, h.logger, err)
	}
	defer file.Close()

	series, err := h.service.UploadBrochure(c.UserContext(), actorFromContext(c), id, file)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "brochure uploaded", series)
}

func (h *SeriesHandler) deleteTask(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteTask(c.UserContext(), actorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "task deleted", nil)
}

func (h *SeriesHandler) addAttachment(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	file, err := header.Open()
	if err != nil {
		return handleError(c, h.logger, err)
	}
	defer file.Close()

	payload := dto.SeriesAttachmentRequest{Title: c.FormValue("title")}
	attachment, err := h.service.AddAttachment(c.UserContext(), actorFromContext(c), id, payload, header.Filename, file)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attachment uploaded", attachment)
}

func (h *SeriesHandler) deleteAttachment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteAttachment(c.UserContext(), actorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "attachment deleted", nil)
}

func (h *SeriesHandler) downloadAttachment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attachment, body, err := h.service.DownloadAttachment(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	return c.SendStream(body, int(attachment.Size))
}
