package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func setupPrizeRoutes(api fiber.Router, h *Handler) {
	api.Get("/prizes/pending", h.GetPendingPrizes)
	api.Post("/prizes/claim", h.ClaimPrize)
	api.Get("/prizes/history", h.GetPrizeHistory)
	api.Get("/prizes/stats", h.GetPrizeStats)
}

func (h *Handler) GetPendingPrizes(c *fiber.Ctx) error {
	userID := callerID(c, "")
	if userID == "" {
		return badRequest(c, "user_id is required")
	}
	prizes, err := h.Prizes.PendingPrizes(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "prizes": nonNil(prizes)})
}

func (h *Handler) ClaimPrize(c *fiber.Ctx) error {
	var body struct {
		PrizeID string `json:"prize_id"`
		UserID  string `json:"user_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.PrizeID == "" {
		return badRequest(c, "prize_id is required")
	}
	prize, err := h.Prizes.ClaimPrize(c.UserContext(), body.PrizeID, callerID(c, body.UserID))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "prize": prize})
}

func (h *Handler) GetPrizeHistory(c *fiber.Ctx) error {
	prizes, err := h.Prizes.History(c.UserContext(), callerID(c, ""), queryInt(c, "limit", 50))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "prizes": nonNil(prizes)})
}

func (h *Handler) GetPrizeStats(c *fiber.Ctx) error {
	stats, err := h.Prizes.Stats(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}
