package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
)

func setupEventRoutes(app *fiber.App, h *Handler) {
	app.Post("/api/events", h.IngestEvents)
}

// IngestEvents acknowledges a telemetry batch as soon as it is queued. It
// answers 200 even for unreadable bodies since clients cannot act on it.
func (h *Handler) IngestEvents(c *fiber.Ctx) error {
	count, err := h.Events.Ingest(c.UserContext(), c.Body())
	if err != nil && !apperr.Is(err, apperr.KindValidation) {
		h.Log.Errorw("❌ [INGEST] batch not queued", "error", err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"count":     count,
		"timestamp": time.Now().UTC(),
	})
}
