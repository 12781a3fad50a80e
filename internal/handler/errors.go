package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
	"github.com/ksicht/ksicht-api/pkg/renderer"
)

// handleError translates service errors into API responses. Anything unknown is logged and hidden behind a 500.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var modelErr *models.ValidationError
	switch {
	case isValidationError(err):
		return utils.SendFieldErrors(c, fiber.StatusBadRequest, "validation failed", validationFields(err))
	case errors.As(err, &modelErr):
		return utils.SendFieldErrors(c, fiber.StatusBadRequest, "validation failed", map[string]string{modelErr.Field: modelErr.Message})

	case errors.Is(err, service.ErrGradeNotFound),
		errors.Is(err, service.ErrSeriesNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrParticipantNotFound),
		errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrPageNotFound),
		errors.Is(err, service.ErrAttachmentNotFound),
		errors.Is(err, service.ErrTeamMemberNotFound),
		errors.Is(err, service.ErrNoCurrentGrade),
		errors.Is(err, service.ErrFileMissing):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrLoginRequired):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotEnrolled),
		errors.Is(err, service.ErrResultsNotPublished):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())

	case errors.Is(err, service.ErrGradeExists),
		errors.Is(err, service.ErrSeriesInUse),
		errors.Is(err, service.ErrTaskInUse),
		errors.Is(err, service.ErrSubmissionExists),
		errors.Is(err, service.ErrDuplicateApplication),
		errors.Is(err, service.ErrAlreadyEnlisted),
		errors.Is(err, service.ErrSubmissionsClosed),
		errors.Is(err, service.ErrApplicationsClosed),
		errors.Is(err, service.ErrEnlistmentClosed):
		return utils.SendError(c, fiber.StatusConflict, err.Error())

	case errors.Is(err, service.ErrFileTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrNotPDF):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())

	case errors.Is(err, service.ErrBrochureStorageUnavailable),
		errors.Is(err, service.ErrRendererUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, renderer.ErrRenderFailed):
		requestLogger(logger, c).Warn().Err(err).Msg("renderer failed")
		return utils.SendError(c, fiber.StatusBadGateway, "renderer failed")

	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
