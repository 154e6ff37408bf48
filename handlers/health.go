package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupHealthRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.Metrics.Registry(), promhttp.HandlerOpts{})))
}

func (h *Handler) Health(c *fiber.Ctx) error {
	resp := fiber.Map{"status": "ok", "timestamp": time.Now().UTC()}
	if h.QueueDepth != nil {
		resp["queue_depth"] = h.QueueDepth()
	}
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			h.Log.Warnw("⚠️ health check: store unreachable", "error", err)
			resp["status"] = "degraded"
			resp["store"] = "unreachable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		resp["store"] = "ok"
	}
	return c.JSON(resp)
}
