package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ksicht/ksicht-api/internal/utils"
)

// Roles carried in the "role" claim.
const (
	RoleStaff       = "staff"
	RoleParticipant = "participant"
)

const principalKey = "principal"

// Principal is the identity extracted from a verified token.
type Principal struct {
	UserID    uint
	Role      string
	Groups    []string
	Superuser bool
}

// IsStaff reports whether the principal may use staff endpoints.
func (p Principal) IsStaff() bool {
	return p.Superuser || p.Role == RoleStaff
}

// JWTProtected returns a middleware that requires a valid JWT bearer token.
func JWTProtected(secret string) fiber.Handler {
	return jwtMiddleware(secret, true)
}

// JWTOptional verifies a bearer token when present and lets anonymous requests through.
func JWTOptional(secret string) fiber.Handler {
	return jwtMiddleware(secret, false)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *fiber.Ctx) (Principal, bool) {
	principal, ok := c.Locals(principalKey).(Principal)
	return principal, ok
}

// WithPrincipal stores the principal on the request, as the JWT middleware does.
func WithPrincipal(c *fiber.Ctx, principal Principal) {
	c.Locals(principalKey, principal)
	c.Locals("user_id", principal.UserID)
	c.Locals("user_role", principal.Role)
}

func jwtMiddleware(secret string, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			if !required {
				return c.Next()
			}
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		principal, err := principalFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		WithPrincipal(c, principal)
		return c.Next()
	}
}

func principalFromClaims(claims jwt.MapClaims) (Principal, error) {
	subject, ok := claims["sub"]
	if !ok {
		return Principal{}, fmt.Errorf("subject missing")
	}
	userID, err := normalizeUserID(subject)
	if err != nil {
		return Principal{}, err
	}

	principal := Principal{UserID: userID}
	if role, ok := claims["role"].(string); ok {
		principal.Role = strings.ToLower(strings.TrimSpace(role))
	}
	if superuser, ok := claims["superuser"].(bool); ok {
		principal.Superuser = superuser
	}
	if groups, ok := claims["groups"].([]interface{}); ok {
		for _, item := range groups {
			if group, ok := item.(string); ok && strings.TrimSpace(group) != "" {
				principal.Groups = append(principal.Groups, strings.TrimSpace(group))
			}
		}
	}

	return principal, nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v <= 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil || parsed == 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}
