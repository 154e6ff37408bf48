package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/logger"
)

// GatewayAuthMiddleware checks the bearer token the gateway attaches to
// administrative calls. An empty token rejects every request.
func GatewayAuthMiddleware(expectedToken string, log *zap.SugaredLogger) fiber.Handler {
	log = logger.OrNop(log)
	if expectedToken == "" {
		log.Error("❌ [GATEWAY_AUTH] GAME_SERVICE_TOKEN is not set, admin routes are locked")
		return func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "gateway authentication is not configured",
			})
		}
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Warnw("🚫 [GATEWAY_AUTH] missing Authorization header", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "gateway authentication token missing",
			})
		}

		// the gateway may send the raw token without the Bearer prefix
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Warnw("❌ [GATEWAY_AUTH] invalid token", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}
