package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/observability"
)

// Observability counts API requests per route template and writes one access log line per request.
// Routes outside /api (such as /metrics) are not measured.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), "/api/") {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		// Errors returned past the handlers are rendered by fiber's error handler later on.
		status := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); ok {
			status = fiberErr.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		method := c.Method()
		route := routeTemplate(c)
		code := strconv.Itoa(status)

		observability.APIRequests().WithLabelValues(method, route, code).Inc()
		observability.APILatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.APIErrors().WithLabelValues(method, route, code).Inc()
		}

		event := logger.Debug()
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error().Err(err)
		case status >= fiber.StatusBadRequest:
			event = logger.Warn()
		}

		event = event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed)
		if principal, ok := PrincipalFromContext(c); ok {
			event = event.Uint("user_id", principal.UserID).Str("role", principal.Role)
		}
		event.Msg("request handled")

		return err
	}
}

// routeTemplate returns the matched route pattern, or "unmatched".
func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" && route.Path != "/" {
		return route.Path
	}
	return "unmatched"
}
