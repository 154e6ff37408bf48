package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func setupLeaderboardRoutes(api fiber.Router, h *Handler) {
	api.Get("/leaderboard/global", h.GetGlobalLeaderboard)
	api.Post("/leaderboard/update-nickname", h.UpdateNickname)
}

func (h *Handler) GetGlobalLeaderboard(c *fiber.Ctx) error {
	lb, err := h.Leaderboard.GlobalLeaderboard(c.UserContext(), callerID(c, ""))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"leaderboard": lb.Leaderboard,
		"user_rank":   lb.UserRank,
	})
}

func (h *Handler) UpdateNickname(c *fiber.Ctx) error {
	var body struct {
		UserID   string `json:"user_id"`
		Nickname string `json:"nickname"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	name, err := h.Leaderboard.UpdateNickname(c.UserContext(), callerID(c, body.UserID), body.Nickname)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "nickname": name})
}
