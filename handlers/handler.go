package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/middleware"
	"github.com/erezos/flappyjet-backend-sub006/realtime"
	"github.com/erezos/flappyjet-backend-sub006/services"
)

// Handler holds the services behind the HTTP API.
type Handler struct {
	Events      *services.EventService
	Leaderboard *services.LeaderboardService
	Tournaments *services.TournamentService
	Prizes      *services.PrizeService
	Hub         *realtime.Hub
	Metrics     *metrics.Metrics
	// Ping checks the store for /health. Optional.
	Ping func(ctx context.Context) error
	// QueueDepth reports the ingestion backlog for /health. Optional.
	QueueDepth func() int
	Log        *zap.SugaredLogger
	// AdminAuthDisabled mounts admin routes without the gateway check when no
	// token is configured. Local development only.
	AdminAuthDisabled bool
}

// SetupRoutes mounts every route. Admin routes sit behind the gateway token.
func SetupRoutes(app *fiber.App, h *Handler, gatewayToken string) {
	if h.Log == nil {
		h.Log = logger.OrNop(nil)
	}
	h.Metrics = metrics.OrNew(h.Metrics)

	setupHealthRoutes(app, h)
	setupEventRoutes(app, h)

	api := app.Group("/api/v2", middleware.UserContextMiddleware())
	setupLeaderboardRoutes(api, h)
	setupTournamentRoutes(api, h)
	setupPrizeRoutes(api, h)

	var admin fiber.Router
	if gatewayToken == "" && h.AdminAuthDisabled {
		h.Log.Warn("⚠️ [GATEWAY_AUTH] ADMIN_AUTH_DISABLED is set, admin routes are unauthenticated")
		admin = api.Group("/admin")
	} else {
		admin = api.Group("/admin", middleware.GatewayAuthMiddleware(gatewayToken, h.Log))
	}
	setupAdminRoutes(admin, h)
}

// fail renders err as {"success": false, "error": ...} with its mapped status.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.Log.Errorw("❌ request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   apperr.PublicMessage(err),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": msg})
}

// callerID returns the identity the gateway authenticated. The body or
// ?user_id= value is only used when no gateway header is present.
func callerID(c *fiber.Ctx, explicit string) string {
	if id := middleware.UserID(c); id != "" {
		return id
	}
	if explicit != "" {
		return explicit
	}
	return c.Query("user_id")
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
