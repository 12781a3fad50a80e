package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// PageHandler serves CMS pages guarded by group membership.
type PageHandler struct {
	service service.PageService
	logger  zerolog.Logger
}

// NewPageHandler constructs the handler.
func NewPageHandler(service service.PageService, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		service: service,
		logger:  logger.With().Str("component", "page_handler").Logger(),
	}
}

// Register attaches the page route. The page URL is the path after /pages.
func (h *PageHandler) Register(router fiber.Router) {
	router.Get("/pages/*", h.get)
}

func (h *PageHandler) get(c *fiber.Ctx) error {
	page, err := h.service.Get(c.UserContext(), c.Params("*"), subjectFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "page retrieved", page)
}
