package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/store"
)

type PrizeTier struct {
	MinRank int
	MaxRank int
	Coins   int64
	Gems    int64
}

// DefaultPrizeTiers applies to tournaments without a prize distribution.
var DefaultPrizeTiers = []PrizeTier{
	{MinRank: 1, MaxRank: 1, Coins: 5000, Gems: 250},
	{MinRank: 2, MaxRank: 2, Coins: 3000, Gems: 150},
	{MinRank: 3, MaxRank: 3, Coins: 2000, Gems: 100},
	{MinRank: 4, MaxRank: 10, Coins: 1000, Gems: 50},
	{MinRank: 11, MaxRank: 50, Coins: 500, Gems: 25},
}

type PrizeAmount struct {
	Coins int64 `json:"coins"`
	Gems  int64 `json:"gems"`
}

// GetPrizeForRank looks rank up in the default tiers. Ranks past the last
// tier get nil.
func GetPrizeForRank(rank int) *PrizeAmount {
	for _, t := range DefaultPrizeTiers {
		if rank >= t.MinRank && rank <= t.MaxRank {
			return &PrizeAmount{Coins: t.Coins, Gems: t.Gems}
		}
	}
	return nil
}

// PrizeForRank uses the tournament's distribution when it has one: ranks in
// the map get floor(pool x share) coins, every other rank gets nothing.
func PrizeForRank(t *models.Tournament, rank int) *PrizeAmount {
	dist := t.Distribution()
	if len(dist) == 0 {
		return GetPrizeForRank(rank)
	}
	share, ok := dist[rank]
	if !ok || share <= 0 {
		return nil
	}
	coins := decimal.NewFromInt(t.PrizePool).Mul(decimal.NewFromFloat(share)).Floor().IntPart()
	if coins <= 0 {
		return nil
	}
	return &PrizeAmount{Coins: coins}
}

type PrizeResult struct {
	TournamentID  string         `json:"tournament_id,omitempty"`
	PrizesAwarded int            `json:"prizes_awarded"`
	Skipped       int            `json:"skipped"`
	PrizeDetails  []models.Prize `json:"prize_details"`
	Message       string         `json:"message,omitempty"`
}

type PrizeService struct {
	store   store.Store
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPrizeService(st store.Store, log *zap.SugaredLogger, m *metrics.Metrics) *PrizeService {
	return &PrizeService{
		store:   st,
		log:     logger.OrNop(log),
		metrics: metrics.OrNew(m),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CalculateTournamentPrizes awards every ranked participant of a tournament
// at most once. Rerunning it awards only what an earlier pass missed.
func (s *PrizeService) CalculateTournamentPrizes(ctx context.Context, tournamentID, tournamentName string) (*PrizeResult, error) {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	if tournamentName == "" {
		tournamentName = t.Name
	}
	res := &PrizeResult{TournamentID: t.ID, PrizeDetails: []models.Prize{}}

	standings, err := s.store.Standings(ctx, t.ID, 0)
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	if len(standings) == 0 {
		res.Message = "No participants"
		if err := s.store.MarkPrizesDistributed(ctx, t.ID, s.now()); err != nil {
			return nil, storeErr(err, "tournament not found")
		}
		return res, nil
	}

	for i, p := range standings {
		rank := i + 1
		amount := PrizeForRank(t, rank)
		if amount == nil {
			continue
		}
		prize := &models.Prize{
			ID:             uuid.NewString(),
			TournamentID:   t.ID,
			PlayerID:       p.PlayerID,
			PlayerName:     p.PlayerName,
			TournamentName: tournamentName,
			Rank:           rank,
			Coins:          amount.Coins,
			Gems:           amount.Gems,
			AwardedAt:      s.now(),
		}
		err := s.store.InsertPrize(ctx, prize)
		if errors.Is(err, store.ErrDuplicate) {
			res.Skipped++
			s.log.Debugw("[PRIZES] already awarded", "tournament_id", t.ID, "player_id", p.PlayerID)
			continue
		}
		if err != nil {
			// no stamp: processLastWeekPrizes will pick the tournament up again
			return nil, apperr.Transient(fmt.Sprintf("awarding rank %d", rank), err)
		}
		res.PrizesAwarded++
		res.PrizeDetails = append(res.PrizeDetails, *prize)
		s.metrics.PrizesAwarded.Add(1)
	}

	if err := s.store.MarkPrizesDistributed(ctx, t.ID, s.now()); err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	res.Message = fmt.Sprintf("Awarded %d prizes", res.PrizesAwarded)
	s.log.Infow("[PRIZES] pass complete", "tournament_id", t.ID, "awarded", res.PrizesAwarded, "skipped", res.Skipped)
	return res, nil
}

// ProcessLastWeekPrizes reruns the prize pass for the most recently ended
// tournament whose pass never completed.
func (s *PrizeService) ProcessLastWeekPrizes(ctx context.Context) (*PrizeResult, error) {
	t, err := s.store.LatestEndedWithoutPrizes(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return &PrizeResult{PrizeDetails: []models.Prize{}, Message: "No tournament awaiting prizes"}, nil
	}
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	s.log.Infow("[PRIZES] recovering prize pass", "tournament_id", t.ID, "name", t.Name)
	return s.CalculateTournamentPrizes(ctx, t.ID, t.Name)
}

func (s *PrizeService) TournamentPrizes(ctx context.Context, tournamentID string) ([]models.Prize, error) {
	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	prizes, err := s.store.TournamentPrizes(ctx, tournamentID)
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	return prizes, nil
}

func (s *PrizeService) PendingPrizes(ctx context.Context, playerID string) ([]models.Prize, error) {
	if playerID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	prizes, err := s.store.PendingPrizes(ctx, playerID)
	if err != nil {
		return nil, storeErr(err, "player not found")
	}
	return prizes, nil
}

func (s *PrizeService) ClaimPrize(ctx context.Context, prizeID, playerID string) (*models.Prize, error) {
	if prizeID == "" {
		return nil, apperr.Validation("prize_id is required")
	}
	if playerID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	p, err := s.store.ClaimPrize(ctx, prizeID, playerID, s.now())
	switch {
	case errors.Is(err, store.ErrConflict):
		return nil, apperr.Conflict("prize already claimed")
	case err != nil:
		return nil, storeErr(err, "prize not found")
	}
	s.log.Infow("[PRIZES] claimed", "prize_id", p.ID, "player_id", playerID, "coins", p.Coins, "gems", p.Gems)
	return p, nil
}

// History lists awarded prizes newest first. An empty playerID lists everyone's.
func (s *PrizeService) History(ctx context.Context, playerID string, limit int) ([]models.Prize, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	prizes, err := s.store.PrizeHistory(ctx, playerID, limit)
	if err != nil {
		return nil, storeErr(err, "player not found")
	}
	return prizes, nil
}

func (s *PrizeService) Stats(ctx context.Context) (*models.PrizeStats, error) {
	stats, err := s.store.PrizeStats(ctx)
	if err != nil {
		return nil, storeErr(err, "no prizes")
	}
	return stats, nil
}
