package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
	"github.com/erezos/flappyjet-backend-sub006/cache"
	"github.com/erezos/flappyjet-backend-sub006/events"
	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/store"
	"github.com/erezos/flappyjet-backend-sub006/telemetry"
)

// AggregationResult reports one aggregation batch. A failed batch commits
// nothing, so Processed is zero whenever Success is false.
type AggregationResult struct {
	Success   bool   `json:"success"`
	Processed int    `json:"processed"`
	Updated   int    `json:"updated"`
	Rejected  int    `json:"rejected"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
}

type GlobalLeaderboard struct {
	Leaderboard []models.RankedEntry `json:"leaderboard"`
	UserRank    *models.RankedEntry  `json:"user_rank,omitempty"`
}

type LeaderboardService struct {
	store     store.Store
	cache     *cache.Safe
	antiCheat *AntiCheat
	batchSize int
	log       *zap.SugaredLogger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewLeaderboardService(st store.Store, c *cache.Safe, ac *AntiCheat, batchSize int, log *zap.SugaredLogger, m *metrics.Metrics) *LeaderboardService {
	if batchSize <= 0 {
		batchSize = 500
	}
	if ac == nil {
		ac = NewAntiCheat(DefaultAntiCheatConfig())
	}
	return &LeaderboardService{
		store:     st,
		cache:     c,
		antiCheat: ac,
		batchSize: batchSize,
		log:       logger.OrNop(log),
		metrics:   metrics.OrNew(m),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UpdateGlobalLeaderboard folds pending non-tournament game_ended events into
// the global scope.
func (s *LeaderboardService) UpdateGlobalLeaderboard(ctx context.Context) AggregationResult {
	return s.aggregate(ctx, false)
}

// UpdateTournamentLeaderboard folds pending tournament game_ended events into
// the global scope and the event's tournament scope.
func (s *LeaderboardService) UpdateTournamentLeaderboard(ctx context.Context) AggregationResult {
	return s.aggregate(ctx, true)
}

func (s *LeaderboardService) aggregate(ctx context.Context, tournamentMode bool) AggregationResult {
	ctx, span := telemetry.Tracer().Start(ctx, "leaderboard.aggregate")
	span.SetAttributes(attribute.Bool("leaderboard.tournament", tournamentMode))
	defer span.End()

	var res AggregationResult
	var globalTouched bool
	var tournaments []string

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		res, globalTouched, tournaments = AggregationResult{}, false, nil
		pending, err := tx.UnprocessedGameEnded(ctx, tournamentMode, s.batchSize)
		if err != nil {
			return fmt.Errorf("loading pending events: %w", err)
		}
		seen := map[string]bool{}
		for _, ev := range pending {
			tid, updated, err := s.apply(ctx, tx, ev, tournamentMode, &res)
			if err != nil {
				return fmt.Errorf("event %s: %w", ev.ID, err)
			}
			ok, err := tx.MarkEventProcessed(ctx, ev.ID, s.now())
			if err != nil {
				return fmt.Errorf("marking event %s: %w", ev.ID, err)
			}
			if !ok {
				return fmt.Errorf("event %s was processed by another worker", ev.ID)
			}
			res.Processed++
			if updated {
				res.Updated++
				globalTouched = true
				if tid != "" && !seen[tid] {
					seen[tid] = true
					tournaments = append(tournaments, tid)
				}
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.AggregationFailures.Add(1)
		span.RecordError(err)
		s.log.Errorw("[AGGREGATOR] batch aborted", "tournament", tournamentMode, "error", err)
		return AggregationResult{Success: false, Error: err.Error()}
	}

	res.Success = true
	s.metrics.EventsAggregated.Add(int64(res.Processed))
	if globalTouched {
		s.cache.DeletePattern(ctx, cache.GlobalLeaderboardPattern)
	}
	for _, tid := range tournaments {
		s.cache.Delete(ctx, cache.TournamentLeaderboardKey(tid))
	}
	if res.Processed > 0 {
		s.log.Infow("[AGGREGATOR] batch committed", "tournament", tournamentMode,
			"processed", res.Processed, "updated", res.Updated, "rejected", res.Rejected, "skipped", res.Skipped)
	}
	return res
}

// apply folds one event into the leaderboards. Events that cannot contribute
// are counted and left for the caller to mark processed.
func (s *LeaderboardService) apply(ctx context.Context, tx store.Store, ev models.RawEvent, tournamentMode bool, res *AggregationResult) (string, bool, error) {
	game, err := events.ParseGameEnded(ev.Payload)
	if err != nil {
		res.Skipped++
		s.log.Warnw("[AGGREGATOR] unreadable game_ended payload", "event_id", ev.ID, "error", err)
		return "", false, nil
	}
	tid := game.TournamentID
	if tid == "" {
		tid = ev.TournamentID
	}
	if tournamentMode && tid == "" {
		res.Skipped++
		s.log.Warnw("[AGGREGATOR] tournament game without tournament_id", "event_id", ev.ID, "user_id", ev.UserID)
		return "", false, nil
	}

	recent, err := tx.RecentScores(ctx, ev.UserID, s.antiCheat.HistoryWindow())
	if err != nil {
		return "", false, err
	}
	sub := ScoreSubmission{
		Score:        game.ScoreValue(),
		SurvivalTime: time.Duration(game.SurvivalMs()) * time.Millisecond,
		SubmittedAt:  ev.Timestamp,
	}
	if v := s.antiCheat.ValidateScore(ev.UserID, sub, recent); !v.IsValid {
		res.Rejected++
		s.metrics.AntiCheatRejections.Add(1)
		s.log.Warnw("[AGGREGATOR] score rejected", "event_id", ev.ID, "user_id", ev.UserID, "score", sub.Score, "reason", v.Reason)
		return "", false, nil
	}

	if err := tx.UpsertHighScore(ctx, ev.UserID, models.ScopeGlobal, sub.Score, ev.Timestamp); err != nil {
		return "", false, err
	}
	if !tournamentMode {
		tid = ""
	}
	if tid != "" {
		if err := tx.UpsertHighScore(ctx, ev.UserID, models.TournamentScope(tid), sub.Score, ev.Timestamp); err != nil {
			return "", false, err
		}
	}
	rec := &models.ScoreRecord{
		PlayerID:       ev.UserID,
		TournamentID:   tid,
		Score:          sub.Score,
		SurvivalTimeMs: game.SurvivalMs(),
		Source:         models.ScoreSourceEvent,
		RecordedAt:     ev.Timestamp,
	}
	if err := tx.RecordScore(ctx, rec); err != nil {
		return "", false, err
	}
	return tid, true, nil
}

// GlobalLeaderboard returns the top of the global board and, when userID is
// set, that player's own rank.
func (s *LeaderboardService) GlobalLeaderboard(ctx context.Context, userID string) (*GlobalLeaderboard, error) {
	out := &GlobalLeaderboard{}
	key := cache.GlobalTopKey(LeaderboardSize)
	if !s.cache.Load(ctx, key, &out.Leaderboard) {
		top, err := s.store.TopEntries(ctx, models.ScopeGlobal, LeaderboardSize)
		if err != nil {
			return nil, storeErr(err, "leaderboard not found")
		}
		out.Leaderboard = top
		s.cache.Store(ctx, key, top, cache.LeaderboardTTL)
	}
	if out.Leaderboard == nil {
		out.Leaderboard = []models.RankedEntry{}
	}

	if userID != "" {
		rank, err := s.store.EntryRank(ctx, models.ScopeGlobal, userID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, storeErr(err, "player not found")
		default:
			out.UserRank = rank
		}
	}
	return out, nil
}

// UpdateNickname stores a validated nickname and returns its normalized form.
func (s *LeaderboardService) UpdateNickname(ctx context.Context, playerID, nickname string) (string, error) {
	if strings.TrimSpace(playerID) == "" {
		return "", apperr.Validation("user_id is required")
	}
	name, err := ValidateNickname(nickname)
	if err != nil {
		return "", err
	}
	if err := s.store.UpsertNickname(ctx, playerID, name); err != nil {
		return "", storeErr(err, "player not found")
	}
	s.cache.DeletePattern(ctx, cache.GlobalLeaderboardPattern)
	return name, nil
}

// ValidateNickname folds full-width forms, composes to NFC and then requires
// 3-50 letters, digits or spaces.
func ValidateNickname(raw string) (string, error) {
	name := norm.NFC.String(width.Fold.String(strings.TrimSpace(raw)))
	n := utf8.RuneCountInString(name)
	if n < 3 || n > 50 {
		return "", apperr.Validation("nickname must be between 3 and 50 characters")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return "", apperr.Validation("nickname may only contain letters, numbers and spaces")
		}
	}
	return name, nil
}
