package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/logger"
)

// RequestLogger logs one line per request. Server errors log at error level.
func RequestLogger(log *zap.SugaredLogger) fiber.Handler {
	log = logger.OrNop(log)
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		fields := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
			"ip", c.IP(),
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Errorw("[HTTP] request failed", append(fields, "error", err)...)
		case c.Path() == "/health" || c.Path() == "/metrics":
		default:
			log.Debugw("[HTTP] request", fields...)
		}
		return err
	}
}
