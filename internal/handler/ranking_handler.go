package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/service"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// RankingHandler serves series results and eligibility listings.
type RankingHandler struct {
	service service.RankingService
	logger  zerolog.Logger
}

// NewRankingHandler constructs the handler.
func NewRankingHandler(service service.RankingService, logger zerolog.Logger) *RankingHandler {
	return &RankingHandler{
		service: service,
		logger:  logger.With().Str("component", "ranking_handler").Logger(),
	}
}

// Register attaches the results routes. Only staff see unpublished results.
func (h *RankingHandler) Register(router fiber.Router) {
	router.Get("/series/:id/rankings", h.seriesRankings)
	router.Get("/grades/:id/rankings", h.gradeRankings)
}

// RegisterAdmin attaches the staff eligibility routes.
func (h *RankingHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/series/:id/participants", h.activeParticipants)
}

func (h *RankingHandler) query(c *fiber.Ctx) (service.RankingQuery, error) {
	includeSubmissionless, err := parseQueryBool(c, "include_submissionless")
	if err != nil {
		return service.RankingQuery{}, err
	}
	return service.RankingQuery{
		IncludeSubmissionless: includeSubmissionless,
		PublishedOnly:         !actorFromContext(c).Staff,
	}, nil
}

func (h *RankingHandler) seriesRankings(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	query, err := h.query(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid include_submissionless")
	}

	response, err := h.service.Rankings(c.UserContext(), id, query)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "rankings", response)
}

func (h *RankingHandler) gradeRankings(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	query, err := h.query(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid include_submissionless")
	}

	response, err := h.service.GradeRankings(c.UserContext(), id, query)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "rankings", response)
}

func (h *RankingHandler) activeParticipants(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	participants, err := h.service.ActiveParticipants(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "active participants", dto.NewParticipantResponseSlice(participants))
}
