package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func appWithPrincipal(principal *Principal, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if principal != nil {
			WithPrincipal(c, *principal)
		}
		return c.Next()
	})
	app.Use(guard)
	app.Get("/admin", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireStaff(t *testing.T) {
	cases := []struct {
		name      string
		principal *Principal
		status    int
	}{
		{"staff", &Principal{UserID: 1, Role: RoleStaff}, fiber.StatusOK},
		{"superuser", &Principal{UserID: 1, Superuser: true}, fiber.StatusOK},
		{"participant", &Principal{UserID: 2, Role: RoleParticipant}, fiber.StatusForbidden},
		{"anonymous", nil, fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := appWithPrincipal(tc.principal, RequireStaff())
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRequireParticipant(t *testing.T) {
	app := appWithPrincipal(&Principal{UserID: 2, Role: RoleParticipant}, RequireParticipant())
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	app = appWithPrincipal(&Principal{UserID: 2, Role: "guest"}, RequireParticipant())
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
