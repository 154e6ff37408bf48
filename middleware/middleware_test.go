package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newGatewayApp(token string) *fiber.App {
	app := fiber.New()
	app.Use(UserContextMiddleware())
	admin := app.Group("/admin", GatewayAuthMiddleware(token, nil))
	admin.Get("/ping", func(c *fiber.Ctx) error { return c.SendString(UserID(c)) })
	return app
}

func TestGatewayAuth(t *testing.T) {
	app := newGatewayApp("s3cret")
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "Bearer nope", fiber.StatusUnauthorized},
		{"bearer", "Bearer s3cret", fiber.StatusOK},
		{"raw", "s3cret", fiber.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/admin/ping", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if resp.StatusCode != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, resp.StatusCode, tc.want)
		}
	}
}

func TestGatewayAuthFailsClosedWithoutToken(t *testing.T) {
	app := newGatewayApp("")
	for _, header := range []string{"", "Bearer ", "Bearer anything"} {
		req := httptest.NewRequest("GET", "/admin/ping", nil)
		req.Header.Set("X-User-ID", "u42")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%q: %v", header, err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("%q: status = %d, want 401", header, resp.StatusCode)
		}
	}
}
