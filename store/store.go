// Package store is the relational source of truth. Implementations live in
// store/postgres (gorm) and store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/models"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrConflict means a conditional update matched no row.
	ErrConflict = errors.New("store: conditional update did not apply")
)

type Store interface {
	// WithTx runs fn against a transactional view. Nothing fn wrote is
	// visible if it returns an error.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	EventStore
	LeaderboardStore
	TournamentStore
	PrizeStore
}

type EventStore interface {
	// InsertEvents skips IDs that are already stored so a retried batch is harmless.
	InsertEvents(ctx context.Context, events []models.RawEvent) error
	// UnprocessedGameEnded returns pending game_ended events, oldest first.
	// tournamentMode selects game_mode=tournament, otherwise every other mode.
	UnprocessedGameEnded(ctx context.Context, tournamentMode bool, limit int) ([]models.RawEvent, error)
	// MarkEventProcessed flips processed false->true and reports whether it did.
	MarkEventProcessed(ctx context.Context, id string, at time.Time) (bool, error)
}

type LeaderboardStore interface {
	// UpsertHighScore keeps GREATEST(existing, score) and bumps total_games.
	UpsertHighScore(ctx context.Context, playerID, scope string, score int64, at time.Time) error
	TopEntries(ctx context.Context, scope string, limit int) ([]models.RankedEntry, error)
	EntryRank(ctx context.Context, scope, playerID string) (*models.RankedEntry, error)

	RecordScore(ctx context.Context, rec *models.ScoreRecord) error
	// RecentScores returns the player's accepted scores, newest first.
	RecentScores(ctx context.Context, playerID string, limit int) ([]models.ScoreRecord, error)

	UpsertNickname(ctx context.Context, playerID, nickname string) error
	UpsertCountry(ctx context.Context, playerID, countryCode string) error
	GetProfile(ctx context.Context, playerID string) (*models.PlayerProfile, error)
}

type TournamentStore interface {
	CreateTournament(ctx context.Context, t *models.Tournament) error
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	// CurrentTournament is the active tournament, or else the next upcoming one.
	CurrentTournament(ctx context.Context) (*models.Tournament, error)
	// TransitionTournament moves id from -> to only if it is still in from and
	// the lifecycle allows the move.
	TransitionTournament(ctx context.Context, id string, from, to models.TournamentStatus, at time.Time) (bool, error)
	// DueTournaments lists upcoming tournaments whose start has passed, or
	// active ones whose end has passed, depending on status.
	DueTournaments(ctx context.Context, status models.TournamentStatus, now time.Time) ([]models.Tournament, error)
	LatestEndedWithoutPrizes(ctx context.Context) (*models.Tournament, error)
	MarkPrizesDistributed(ctx context.Context, id string, at time.Time) error

	AddParticipant(ctx context.Context, p *models.TournamentParticipant) error
	GetParticipant(ctx context.Context, tournamentID, playerID string) (*models.TournamentParticipant, error)
	ListParticipants(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error)
	CountParticipants(ctx context.Context, tournamentID string) (int64, error)
	// RecordParticipantScore atomically raises best_score to score if higher and
	// increments total_games. It returns the best score before the update, or
	// ErrConflict when the tournament is no longer active.
	RecordParticipantScore(ctx context.Context, tournamentID, playerID string, score int64, at time.Time) (int64, *models.TournamentParticipant, error)
	CountHigherScores(ctx context.Context, tournamentID string, score int64) (int64, error)
	// Standings lists participants with at least one game by best_score desc,
	// ties broken by registration order. limit <= 0 means all.
	Standings(ctx context.Context, tournamentID string, limit int) ([]models.TournamentParticipant, error)
	SetFinalRanks(ctx context.Context, tournamentID string, ranks map[string]int) error
	SaveSnapshots(ctx context.Context, snaps []models.LeaderboardSnapshot) error
}

type PrizeStore interface {
	// InsertPrize returns ErrDuplicate when (tournament_id, player_id) already has a prize.
	InsertPrize(ctx context.Context, p *models.Prize) error
	TournamentPrizes(ctx context.Context, tournamentID string) ([]models.Prize, error)
	PendingPrizes(ctx context.Context, playerID string) ([]models.Prize, error)
	// ClaimPrize stamps claimed_at if unclaimed. playerID, when set, must own the prize.
	ClaimPrize(ctx context.Context, prizeID, playerID string, at time.Time) (*models.Prize, error)
	PrizeHistory(ctx context.Context, playerID string, limit int) ([]models.Prize, error)
	PrizeStats(ctx context.Context) (*models.PrizeStats, error)
}
