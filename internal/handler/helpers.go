package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ksicht/ksicht-api/internal/access"
	"github.com/ksicht/ksicht-api/internal/middleware"
	"github.com/ksicht/ksicht-api/internal/service"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryBool(c *fiber.Ctx, key string) (bool, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

// parseQueryTime reads an optional RFC 3339 timestamp.
func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := c.Params(key)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func parseUUIDParam(c *fiber.Ctx, key string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Params(key))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return service.Actor{}
	}
	return service.Actor{
		ID:    principal.UserID,
		Role:  principal.Role,
		Staff: principal.IsStaff(),
	}
}

func subjectFromContext(c *fiber.Ctx) access.Subject {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return access.Subject{}
	}
	return access.Subject{
		Authenticated: true,
		Privileged:    principal.IsStaff(),
		Groups:        principal.Groups,
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationFields(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldKey(fieldErr.Namespace())] = fieldErr.Tag()
	}
	return fields
}

// fieldKey drops the struct name from a validator namespace: "GradeCreateRequest.Series[0].Tasks" becomes "series[0].tasks".
func fieldKey(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		namespace = namespace[idx+1:]
	}
	return strings.ToLower(namespace)
}
