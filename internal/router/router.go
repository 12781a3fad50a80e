package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ksicht/ksicht-api/internal/config"
	"github.com/ksicht/ksicht-api/internal/handler"
	"github.com/ksicht/ksicht-api/internal/middleware"
	"github.com/ksicht/ksicht-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradeHandler       *handler.GradeHandler
	SeriesHandler      *handler.SeriesHandler
	RankingHandler     *handler.RankingHandler
	SubmissionHandler  *handler.SubmissionHandler
	ParticipantHandler *handler.ParticipantHandler
	EventHandler       *handler.EventHandler
	PageHandler        *handler.PageHandler
	ActivityHandler    *handler.ActivityHandler
	TeamHandler        *handler.TeamHandler
	DependencyChecks   map[string]handler.DependencyCheck

	// JWTMiddleware authenticates requests when a token is present. Defaults to JWTOptional with cfg.JWTSecret.
	JWTMiddleware fiber.Handler
	// UploadLimiter throttles solution, brochure and attachment uploads. Nil disables throttling.
	UploadLimiter fiber.Handler
	ExposeMetrics bool
}

// Register wires the HTTP routes into the fiber application.
//
// Public routes live under /api/v1, participant routes under /api/v1/me and
// staff routes under /api/v1/admin.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.ExposeMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTOptional(cfg.JWTSecret)
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DependencyChecks))

	api.Use(jwtMiddleware)
	if deps.UploadLimiter != nil {
		api.Post("/me/submissions", deps.UploadLimiter)
		api.Post("/admin/series/:id/brochure", deps.UploadLimiter)
		api.Post("/admin/series/:id/attachments", deps.UploadLimiter)
	}

	me := api.Group("/me", middleware.RequireParticipant())
	admin := api.Group("/admin", middleware.RequireStaff())

	if deps.GradeHandler != nil {
		deps.GradeHandler.Register(api)
		deps.GradeHandler.RegisterAdmin(admin)
	}
	if deps.SeriesHandler != nil {
		deps.SeriesHandler.Register(api)
		deps.SeriesHandler.RegisterAdmin(admin)
	}
	if deps.RankingHandler != nil {
		deps.RankingHandler.Register(api)
		deps.RankingHandler.RegisterAdmin(admin)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.RegisterParticipant(me)
		deps.SubmissionHandler.RegisterAdmin(admin)
	}
	if deps.ParticipantHandler != nil {
		deps.ParticipantHandler.RegisterParticipant(me)
		deps.ParticipantHandler.RegisterAdmin(admin)
	}
	if deps.EventHandler != nil {
		deps.EventHandler.Register(api)
		deps.EventHandler.RegisterParticipant(me)
		deps.EventHandler.RegisterAdmin(admin)
	}
	if deps.PageHandler != nil {
		deps.PageHandler.Register(api)
	}
	if deps.TeamHandler != nil {
		deps.TeamHandler.Register(api)
		deps.TeamHandler.RegisterAdmin(admin)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.RegisterAdmin(admin)
	}
}
