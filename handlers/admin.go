package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/erezos/flappyjet-backend-sub006/services"
)

func setupAdminRoutes(admin fiber.Router, h *Handler) {
	admin.Post("/tournaments", h.CreateTournament)
	admin.Post("/tournaments/:id/start", h.StartTournament)
	admin.Post("/tournaments/:id/end", h.EndTournament)
	admin.Post("/prizes/process-last-week", h.ProcessLastWeekPrizes)
	admin.Post("/leaderboard/aggregate", h.AggregateLeaderboards)
}

func (h *Handler) CreateTournament(c *fiber.Ctx) error {
	var opts services.CreateTournamentOptions
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&opts); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	t, err := h.Tournaments.CreateWeeklyTournament(c.UserContext(), opts)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "tournament": t})
}

func (h *Handler) StartTournament(c *fiber.Ctx) error {
	t, err := h.Tournaments.StartTournament(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "tournament": t})
}

func (h *Handler) EndTournament(c *fiber.Ctx) error {
	res, err := h.Tournaments.EndTournament(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"tournament":      res.Tournament,
		"final_standings": nonNil(res.FinalStandings),
		"prizes":          res.Prizes,
		"already_ended":   res.AlreadyEnded,
		"archive_url":     res.ArchiveURL,
	})
}

func (h *Handler) ProcessLastWeekPrizes(c *fiber.Ctx) error {
	res, err := h.Prizes.ProcessLastWeekPrizes(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"tournament_id":  res.TournamentID,
		"prizes_awarded": res.PrizesAwarded,
		"prize_details":  res.PrizeDetails,
		"message":        res.Message,
	})
}

func (h *Handler) AggregateLeaderboards(c *fiber.Ctx) error {
	ctx := c.UserContext()
	global := h.Leaderboard.UpdateGlobalLeaderboard(ctx)
	tournament := h.Leaderboard.UpdateTournamentLeaderboard(ctx)
	status := fiber.StatusOK
	if !global.Success || !tournament.Success {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{
		"success":    global.Success && tournament.Success,
		"global":     global,
		"tournament": tournament,
	})
}
