package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ksicht/ksicht-api/internal/config"
	"github.com/ksicht/ksicht-api/internal/utils"
)

// DependencyCheck checks one backing service.
type DependencyCheck func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Components  map[string]string `json:"components,omitempty"`
}

// HealthCheck returns a handler that reports application health information.
// A failing check turns the response into a 503 with status "degraded".
func HealthCheck(cfg config.Config, checks map[string]DependencyCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(checks) > 0 {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()

			payload.Components = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(ctx); err != nil {
					payload.Components[name] = err.Error()
					payload.Status = "degraded"
					continue
				}
				payload.Components[name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
				Success: false,
				Data:    payload,
				Message: "service degraded",
			})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
