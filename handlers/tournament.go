package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/erezos/flappyjet-backend-sub006/realtime"
	"github.com/erezos/flappyjet-backend-sub006/services"
)

const (
	streamBuffer    = 32
	streamKeepAlive = 25 * time.Second
)

func setupTournamentRoutes(api fiber.Router, h *Handler) {
	api.Get("/tournaments/current", h.GetCurrentTournament)
	api.Get("/tournaments/:id/leaderboard", h.GetTournamentLeaderboard)
	api.Get("/tournaments/:id/prizes", h.GetTournamentPrizes)
	api.Get("/tournaments/:id/stream", h.StreamTournament)
	api.Post("/tournaments/:id/register", h.RegisterForTournament)
	api.Post("/tournaments/:id/scores", h.SubmitTournamentScore)
}

func (h *Handler) GetCurrentTournament(c *fiber.Ctx) error {
	t, err := h.Tournaments.CurrentTournament(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "tournament": t})
}

func (h *Handler) GetTournamentLeaderboard(c *fiber.Ctx) error {
	lb, err := h.Tournaments.Leaderboard(c.UserContext(), c.Params("id"), callerID(c, ""))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"tournament":  lb.Tournament,
		"leaderboard": lb.Leaderboard,
		"user_rank":   lb.UserRank,
	})
}

func (h *Handler) GetTournamentPrizes(c *fiber.Ctx) error {
	prizes, err := h.Prizes.TournamentPrizes(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "prizes": nonNil(prizes)})
}

func (h *Handler) RegisterForTournament(c *fiber.Ctx) error {
	var body struct {
		PlayerID   string `json:"player_id"`
		PlayerName string `json:"player_name"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	p, err := h.Tournaments.RegisterPlayer(c.UserContext(), c.Params("id"), callerID(c, body.PlayerID), body.PlayerName)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "participant": p})
}

func (h *Handler) SubmitTournamentScore(c *fiber.Ctx) error {
	var req services.SubmitScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.PlayerID = callerID(c, req.PlayerID)

	res, err := h.Tournaments.SubmitScore(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"new_best":      res.NewBest,
		"previous_best": res.PreviousBest,
		"best_score":    res.BestScore,
		"rank":          res.Rank,
		"total_games":   res.TotalGames,
	})
}

// StreamTournament relays the tournament room as server-sent events.
func (h *Handler) StreamTournament(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.Tournaments.Leaderboard(c.UserContext(), id, ""); err != nil {
		return h.fail(c, err)
	}
	if h.Hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "error": "live updates unavailable"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	sub := h.Hub.Subscribe(realtime.TournamentRoom(id), streamBuffer)
	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		_, _ = w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case msg, ok := <-sub.C():
				if !ok {
					return
				}
				payload, err := json.Marshal(msg)
				if err != nil {
					h.Log.Warnw("[REALTIME] unencodable message", "type", msg.Type, "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, payload)
				if err := w.Flush(); err != nil {
					// client disconnected
					return
				}
			case <-keepAlive.C:
				_, _ = w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
