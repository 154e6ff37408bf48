package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const UserIDLocal = "user_id"

// UserContextMiddleware copies the caller identity set by the gateway into
// locals. Handlers fall back to it when a request names no user_id.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(UserIDLocal, strings.TrimSpace(c.Get("X-User-ID")))
		return c.Next()
	}
}

// UserID returns the gateway-supplied user id, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDLocal).(string)
	return id
}
