// Package realtime fans tournament updates out to subscribed clients.
package realtime

import (
	"context"
	"time"
)

const (
	TypeTournamentStarted = "tournament_started"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeTournamentEnded   = "tournament_ended"
	TypePlayerRegistered  = "tournament_registered"
)

type Message struct {
	Type         string    `json:"type"`
	TournamentID string    `json:"tournament_id,omitempty"`
	Data         any       `json:"data,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type Broadcaster interface {
	Broadcast(ctx context.Context, room string, msg Message) error
}

func TournamentRoom(tournamentID string) string { return "tournament_" + tournamentID }

func PlayerRoom(playerID string) string { return "player_" + playerID }

// Noop drops every message.
type Noop struct{}

func (Noop) Broadcast(context.Context, string, Message) error { return nil }
