package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
	"github.com/erezos/flappyjet-backend-sub006/cache"
	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/realtime"
	"github.com/erezos/flappyjet-backend-sub006/store"
	"github.com/erezos/flappyjet-backend-sub006/telemetry"
)

const (
	DefaultPrizePool = 10000
	// broadcastTop is how many standings a leaderboard_update carries.
	broadcastTop = 10
	// endedTop is how many final standings tournament_ended carries.
	endedTop = 100
)

func DefaultPrizeDistribution() models.PrizeDistribution {
	return models.PrizeDistribution{1: 0.5, 2: 0.3, 3: 0.2}
}

// StandingsArchiver stores a copy of a finished tournament's standings and
// returns where it went.
type StandingsArchiver interface {
	ArchiveStandings(ctx context.Context, t *models.Tournament, standings []models.LeaderboardSnapshot, prizes []models.Prize) (string, error)
}

type CreateTournamentOptions struct {
	Name      string     `json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	PrizePool *int64     `json:"prize_pool"`
	// nil means the default split; an empty map means the default tier table.
	PrizeDistribution models.PrizeDistribution `json:"prize_distribution"`
}

type SubmitScoreRequest struct {
	PlayerID       string         `json:"player_id"`
	Score          int64          `json:"score"`
	SurvivalTimeMs int64          `json:"survival_time"`
	GameData       map[string]any `json:"game_data,omitempty"`
}

type SubmitScoreResult struct {
	NewBest      bool  `json:"new_best"`
	PreviousBest int64 `json:"previous_best"`
	BestScore    int64 `json:"best_score"`
	Rank         int64 `json:"rank"`
	TotalGames   int64 `json:"total_games"`
}

// StandingEntry is a participant's place on a tournament board.
type StandingEntry struct {
	Rank       int64  `json:"rank"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	BestScore  int64  `json:"best_score"`
	TotalGames int64  `json:"total_games"`
	Coins      int64  `json:"coins,omitempty"`
	Gems       int64  `json:"gems,omitempty"`
}

type TournamentLeaderboard struct {
	Tournament  *models.Tournament `json:"tournament"`
	Leaderboard []StandingEntry    `json:"leaderboard"`
	UserRank    *StandingEntry     `json:"user_rank,omitempty"`
}

type EndTournamentResult struct {
	Tournament     *models.Tournament `json:"tournament"`
	FinalStandings []StandingEntry    `json:"final_standings"`
	Prizes         *PrizeResult       `json:"prizes"`
	AlreadyEnded   bool               `json:"already_ended"`
	ArchiveURL     string             `json:"archive_url,omitempty"`
}

type TournamentService struct {
	store       store.Store
	cache       *cache.Safe
	broadcaster realtime.Broadcaster
	antiCheat   *AntiCheat
	prizes      *PrizeService
	archiver    StandingsArchiver
	log         *zap.SugaredLogger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewTournamentService(st store.Store, c *cache.Safe, b realtime.Broadcaster, ac *AntiCheat, prizes *PrizeService, archiver StandingsArchiver, log *zap.SugaredLogger, m *metrics.Metrics) *TournamentService {
	if b == nil {
		b = realtime.Noop{}
	}
	if ac == nil {
		ac = NewAntiCheat(DefaultAntiCheatConfig())
	}
	log = logger.OrNop(log)
	m = metrics.OrNew(m)
	if prizes == nil {
		prizes = NewPrizeService(st, log, m)
	}
	return &TournamentService{
		store:       st,
		cache:       c,
		broadcaster: b,
		antiCheat:   ac,
		prizes:      prizes,
		archiver:    archiver,
		log:         log,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WeeklyName names a tournament after the ISO week it starts in.
func WeeklyName(start time.Time) string {
	year, week := start.ISOWeek()
	return fmt.Sprintf("Weekly Championship %d-W%02d", year, week)
}

func validateDistribution(d models.PrizeDistribution) error {
	var total float64
	for rank, share := range d {
		if rank < 1 {
			return apperr.Validationf("prize_distribution rank %d must be at least 1", rank)
		}
		if share <= 0 || share > 1 || math.IsNaN(share) {
			return apperr.Validationf("prize_distribution share for rank %d must be in (0, 1]", rank)
		}
		total += share
	}
	if total > 1+1e-9 {
		return apperr.Validation("prize_distribution shares must not add up to more than 1")
	}
	return nil
}

// CreateWeeklyTournament stores a new upcoming tournament. Unset options
// fall back to a week starting now with the default pool and split.
func (s *TournamentService) CreateWeeklyTournament(ctx context.Context, opts CreateTournamentOptions) (*models.Tournament, error) {
	pool := int64(DefaultPrizePool)
	if opts.PrizePool != nil {
		pool = *opts.PrizePool
	}
	if pool < 0 {
		return nil, apperr.Validation("prize_pool must be non-negative")
	}

	start := s.now()
	if opts.StartDate != nil {
		start = opts.StartDate.UTC()
	}
	end := start.Add(7 * 24 * time.Hour)
	if opts.EndDate != nil {
		end = opts.EndDate.UTC()
	}
	if !end.After(start) {
		return nil, apperr.Validation("end_date must be after start_date")
	}

	dist := opts.PrizeDistribution
	if dist == nil {
		dist = DefaultPrizeDistribution()
	}
	if err := validateDistribution(dist); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = WeeklyName(start)
	}

	t := &models.Tournament{
		ID:                uuid.NewString(),
		Name:              name,
		Status:            models.TournamentUpcoming,
		StartDate:         start,
		EndDate:           end,
		PrizePool:         pool,
		PrizeDistribution: datatypes.NewJSONType(dist),
	}
	if err := s.store.CreateTournament(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("tournament already exists")
		}
		return nil, apperr.Transient("creating tournament", err)
	}
	s.cache.Delete(ctx, cache.CurrentTournamentKey)
	s.log.Infow("[TOURNAMENT] created", "tournament_id", t.ID, "name", t.Name, "start", t.StartDate, "end", t.EndDate, "prize_pool", t.PrizePool)
	return t, nil
}

// RegisterPlayer enrolls a player. The unique (tournament, player) index is
// what rejects a second registration.
func (s *TournamentService) RegisterPlayer(ctx context.Context, tournamentID, playerID, playerName string) (*models.TournamentParticipant, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, apperr.Validation("player_id is required")
	}
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	if t.Status == models.TournamentEnded {
		return nil, apperr.Conflict("registration is closed")
	}

	name := strings.TrimSpace(playerName)
	if name == "" {
		if profile, err := s.store.GetProfile(ctx, playerID); err == nil && profile.Nickname != "" {
			name = profile.Nickname
		} else {
			name = playerID
		}
	}

	p := &models.TournamentParticipant{
		ID:           uuid.NewString(),
		TournamentID: t.ID,
		PlayerID:     playerID,
		PlayerName:   name,
		RegisteredAt: s.now(),
	}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("already registered")
		}
		return nil, apperr.Transient("registering player", err)
	}
	s.cache.Delete(ctx, cache.CurrentTournamentKey)

	broadcast(ctx, s.broadcaster, s.log, s.metrics, realtime.PlayerRoom(playerID), realtime.Message{
		Type:         realtime.TypePlayerRegistered,
		TournamentID: t.ID,
		Data:         map[string]any{"tournament_name": t.Name, "player_name": name},
		Timestamp:    s.now(),
	})
	s.log.Infow("[TOURNAMENT] player registered", "tournament_id", t.ID, "player_id", playerID)
	return p, nil
}

// SubmitScore records a tournament run synchronously and returns the
// player's live rank.
func (s *TournamentService) SubmitScore(ctx context.Context, tournamentID string, req SubmitScoreRequest) (*SubmitScoreResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "tournament.submit_score")
	span.SetAttributes(attribute.String("tournament.id", tournamentID), attribute.String("player.id", req.PlayerID))
	defer span.End()

	if strings.TrimSpace(req.PlayerID) == "" {
		return nil, apperr.Validation("player_id is required")
	}
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	if t.Status != models.TournamentActive {
		return nil, apperr.Conflict(fmt.Sprintf("tournament is %s", t.Status))
	}
	if _, err := s.store.GetParticipant(ctx, t.ID, req.PlayerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Forbidden("not registered")
		}
		return nil, apperr.Transient("loading participant", err)
	}

	now := s.now()
	recent, err := s.store.RecentScores(ctx, req.PlayerID, s.antiCheat.HistoryWindow())
	if err != nil {
		return nil, apperr.Transient("loading score history", err)
	}
	sub := ScoreSubmission{
		Score:        req.Score,
		SurvivalTime: time.Duration(req.SurvivalTimeMs) * time.Millisecond,
		SubmittedAt:  now,
	}
	if v := s.antiCheat.ValidateScore(req.PlayerID, sub, recent); !v.IsValid {
		s.metrics.AntiCheatRejections.Add(1)
		s.log.Warnw("[TOURNAMENT] score rejected", "tournament_id", t.ID, "player_id", req.PlayerID, "score", req.Score, "reason", v.Reason)
		return nil, apperr.AntiCheat(v.Reason)
	}

	var prev int64
	var p *models.TournamentParticipant
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		prev, p, err = tx.RecordParticipantScore(ctx, t.ID, req.PlayerID, req.Score, now)
		if err != nil {
			return err
		}
		return tx.RecordScore(ctx, &models.ScoreRecord{
			PlayerID:       req.PlayerID,
			TournamentID:   t.ID,
			Score:          req.Score,
			SurvivalTimeMs: req.SurvivalTimeMs,
			Source:         models.ScoreSourceTournament,
			RecordedAt:     now,
		})
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Conflict("tournament is not active")
		}
		return nil, storeErr(err, "not registered")
	}

	higher, err := s.store.CountHigherScores(ctx, t.ID, p.BestScore)
	if err != nil {
		return nil, apperr.Transient("computing rank", err)
	}
	res := &SubmitScoreResult{
		NewBest:      req.Score > prev,
		PreviousBest: prev,
		BestScore:    p.BestScore,
		Rank:         higher + 1,
		TotalGames:   p.TotalGames,
	}
	s.metrics.ScoresSubmitted.Add(1)
	s.cache.Delete(ctx, cache.TournamentLeaderboardKey(t.ID))

	if top, err := s.standings(ctx, t.ID, broadcastTop); err != nil {
		s.log.Warnw("[TOURNAMENT] could not load standings for broadcast", "tournament_id", t.ID, "error", err)
	} else {
		broadcast(ctx, s.broadcaster, s.log, s.metrics, realtime.TournamentRoom(t.ID), realtime.Message{
			Type:         realtime.TypeLeaderboardUpdate,
			TournamentID: t.ID,
			Data: map[string]any{
				"leaderboard": top,
				"player_id":   req.PlayerID,
				"score":       req.Score,
				"rank":        res.Rank,
				"new_best":    res.NewBest,
			},
			Timestamp: now,
		})
	}
	return res, nil
}

// standings returns live competition ranks: equal best scores share a rank.
func (s *TournamentService) standings(ctx context.Context, tournamentID string, limit int) ([]StandingEntry, error) {
	rows, err := s.store.Standings(ctx, tournamentID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]StandingEntry, len(rows))
	for i, p := range rows {
		rank := int64(i + 1)
		if i > 0 && p.BestScore == rows[i-1].BestScore {
			rank = out[i-1].Rank
		}
		out[i] = standingOf(p, rank)
	}
	return out, nil
}

func standingOf(p models.TournamentParticipant, rank int64) StandingEntry {
	return StandingEntry{
		Rank:       rank,
		PlayerID:   p.PlayerID,
		PlayerName: p.PlayerName,
		BestScore:  p.BestScore,
		TotalGames: p.TotalGames,
	}
}

func (s *TournamentService) StartTournament(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	ok, err := s.store.TransitionTournament(ctx, t.ID, models.TournamentUpcoming, models.TournamentActive, s.now())
	if err != nil {
		return nil, apperr.Transient("starting tournament", err)
	}
	if !ok {
		current, err := s.store.GetTournament(ctx, t.ID)
		if err != nil {
			return nil, storeErr(err, "tournament not found")
		}
		return nil, apperr.Conflict(fmt.Sprintf("tournament is %s, cannot start", current.Status))
	}
	t, err = s.store.GetTournament(ctx, t.ID)
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	participants, err := s.store.ListParticipants(ctx, t.ID)
	if err != nil {
		return nil, apperr.Transient("loading participants", err)
	}
	t.ParticipantCount = int64(len(participants))
	s.cache.Delete(ctx, cache.CurrentTournamentKey)

	broadcast(ctx, s.broadcaster, s.log, s.metrics, realtime.TournamentRoom(t.ID), realtime.Message{
		Type:         realtime.TypeTournamentStarted,
		TournamentID: t.ID,
		Data: map[string]any{
			"name":              t.Name,
			"end_date":          t.EndDate,
			"prize_pool":        t.PrizePool,
			"participant_count": len(participants),
		},
		Timestamp: s.now(),
	})
	s.log.Infow("[TOURNAMENT] started", "tournament_id", t.ID, "participants", len(participants))
	return t, nil
}

// EndTournament closes an active tournament: final ranks and snapshots are
// written, prizes awarded and the status flipped to ended. Ending an ended
// tournament only reruns the idempotent prize pass.
func (s *TournamentService) EndTournament(ctx context.Context, tournamentID string) (*EndTournamentResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "tournament.end")
	span.SetAttributes(attribute.String("tournament.id", tournamentID))
	defer span.End()

	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	switch t.Status {
	case models.TournamentUpcoming:
		return nil, apperr.Conflict("tournament has not started")
	case models.TournamentEnded:
		return s.alreadyEnded(ctx, t)
	}

	rows, err := s.store.Standings(ctx, t.ID, 0)
	if err != nil {
		return nil, apperr.Transient("loading final standings", err)
	}
	prizes, err := s.prizes.CalculateTournamentPrizes(ctx, t.ID, t.Name)
	if err != nil {
		return nil, err
	}

	// final ranks are positional; ties keep registration order
	ranks := make(map[string]int, len(rows))
	snaps := make([]models.LeaderboardSnapshot, len(rows))
	for i, p := range rows {
		ranks[p.PlayerID] = i + 1
		snaps[i] = models.LeaderboardSnapshot{
			TournamentID: t.ID,
			PlayerID:     p.PlayerID,
			PlayerName:   p.PlayerName,
			Rank:         i + 1,
			Score:        p.BestScore,
			TotalGames:   p.TotalGames,
		}
	}
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.SetFinalRanks(ctx, t.ID, ranks); err != nil {
			return err
		}
		return tx.SaveSnapshots(ctx, snaps)
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Transient("saving final standings", err)
	}

	flipped, err := s.store.TransitionTournament(ctx, t.ID, models.TournamentActive, models.TournamentEnded, s.now())
	if err != nil {
		return nil, apperr.Transient("ending tournament", err)
	}
	if !flipped {
		// lost the race to a concurrent end; that caller announces it
		current, err := s.store.GetTournament(ctx, t.ID)
		if err != nil {
			return nil, storeErr(err, "tournament not found")
		}
		return s.alreadyEnded(ctx, current)
	}
	if t, err = s.store.GetTournament(ctx, t.ID); err != nil {
		return nil, storeErr(err, "tournament not found")
	}

	awarded, err := s.store.TournamentPrizes(ctx, t.ID)
	if err != nil {
		return nil, apperr.Transient("loading prizes", err)
	}
	final := finalStandings(snaps, awarded)
	res := &EndTournamentResult{Tournament: t, FinalStandings: final, Prizes: prizes}

	if s.archiver != nil {
		url, err := s.archiver.ArchiveStandings(ctx, t, snaps, awarded)
		if err != nil {
			s.log.Warnw("[TOURNAMENT] archiving standings failed", "tournament_id", t.ID, "error", err)
		} else {
			res.ArchiveURL = url
		}
	}

	s.cache.Delete(ctx, cache.TournamentLeaderboardKey(t.ID), cache.CurrentTournamentKey)

	announced := final
	if len(announced) > endedTop {
		announced = announced[:endedTop]
	}
	broadcast(ctx, s.broadcaster, s.log, s.metrics, realtime.TournamentRoom(t.ID), realtime.Message{
		Type:         realtime.TypeTournamentEnded,
		TournamentID: t.ID,
		Data: map[string]any{
			"name":            t.Name,
			"final_standings": announced,
			"prizes_awarded":  prizes.PrizesAwarded,
		},
		Timestamp: s.now(),
	})
	s.log.Infow("[TOURNAMENT] ended", "tournament_id", t.ID, "participants", len(rows), "prizes_awarded", prizes.PrizesAwarded)
	return res, nil
}

func (s *TournamentService) alreadyEnded(ctx context.Context, t *models.Tournament) (*EndTournamentResult, error) {
	prizes, err := s.prizes.CalculateTournamentPrizes(ctx, t.ID, t.Name)
	if err != nil {
		return nil, err
	}
	awarded, err := s.store.TournamentPrizes(ctx, t.ID)
	if err != nil {
		return nil, apperr.Transient("loading prizes", err)
	}
	snaps, err := s.finalSnapshots(ctx, t.ID)
	if err != nil {
		return nil, apperr.Transient("loading final standings", err)
	}
	return &EndTournamentResult{
		Tournament:     t,
		FinalStandings: finalStandings(snaps, awarded),
		Prizes:         prizes,
		AlreadyEnded:   true,
	}, nil
}

// finalSnapshots rebuilds final standings from final_rank annotations.
func (s *TournamentService) finalSnapshots(ctx context.Context, tournamentID string) ([]models.LeaderboardSnapshot, error) {
	rows, err := s.store.Standings(ctx, tournamentID, 0)
	if err != nil {
		return nil, err
	}
	snaps := make([]models.LeaderboardSnapshot, 0, len(rows))
	for i, p := range rows {
		rank := p.FinalRank
		if rank == 0 {
			rank = i + 1
		}
		snaps = append(snaps, models.LeaderboardSnapshot{
			TournamentID: tournamentID,
			PlayerID:     p.PlayerID,
			PlayerName:   p.PlayerName,
			Rank:         rank,
			Score:        p.BestScore,
			TotalGames:   p.TotalGames,
		})
	}
	return snaps, nil
}

func finalStandings(snaps []models.LeaderboardSnapshot, prizes []models.Prize) []StandingEntry {
	byPlayer := make(map[string]models.Prize, len(prizes))
	for _, p := range prizes {
		byPlayer[p.PlayerID] = p
	}
	out := make([]StandingEntry, len(snaps))
	for i, sn := range snaps {
		out[i] = StandingEntry{
			Rank:       int64(sn.Rank),
			PlayerID:   sn.PlayerID,
			PlayerName: sn.PlayerName,
			BestScore:  sn.Score,
			TotalGames: sn.TotalGames,
		}
		if p, ok := byPlayer[sn.PlayerID]; ok {
			out[i].Coins, out[i].Gems = p.Coins, p.Gems
		}
	}
	return out
}

// StartDueTournaments starts every upcoming tournament whose start date has
// passed. Tournaments another instance started first are skipped.
func (s *TournamentService) StartDueTournaments(ctx context.Context) (int, error) {
	due, err := s.store.DueTournaments(ctx, models.TournamentUpcoming, s.now())
	if err != nil {
		return 0, apperr.Transient("listing due tournaments", err)
	}
	started := 0
	for _, t := range due {
		if _, err := s.StartTournament(ctx, t.ID); err != nil {
			if apperr.Is(err, apperr.KindStateConflict) {
				continue
			}
			s.log.Errorw("[TOURNAMENT] scheduled start failed", "tournament_id", t.ID, "error", err)
			continue
		}
		started++
	}
	return started, nil
}

// EndDueTournaments ends every active tournament whose end date has passed.
func (s *TournamentService) EndDueTournaments(ctx context.Context) (int, error) {
	due, err := s.store.DueTournaments(ctx, models.TournamentActive, s.now())
	if err != nil {
		return 0, apperr.Transient("listing due tournaments", err)
	}
	ended := 0
	for _, t := range due {
		res, err := s.EndTournament(ctx, t.ID)
		if err != nil {
			s.log.Errorw("[TOURNAMENT] scheduled end failed", "tournament_id", t.ID, "error", err)
			continue
		}
		if !res.AlreadyEnded {
			ended++
		}
	}
	return ended, nil
}

// CurrentTournament is the active tournament, or the next upcoming one.
func (s *TournamentService) CurrentTournament(ctx context.Context) (*models.Tournament, error) {
	var t models.Tournament
	if s.cache.Load(ctx, cache.CurrentTournamentKey, &t) {
		return &t, nil
	}
	current, err := s.store.CurrentTournament(ctx)
	if err != nil {
		return nil, storeErr(err, "no active tournament")
	}
	if current.ParticipantCount, err = s.store.CountParticipants(ctx, current.ID); err != nil {
		return nil, apperr.Transient("counting participants", err)
	}
	s.cache.Store(ctx, cache.CurrentTournamentKey, current, cache.TournamentTTL)
	return current, nil
}

// Leaderboard returns the top of a tournament board and, when userID is set,
// that participant's rank.
func (s *TournamentService) Leaderboard(ctx context.Context, tournamentID, userID string) (*TournamentLeaderboard, error) {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, storeErr(err, "tournament not found")
	}
	if t.ParticipantCount, err = s.store.CountParticipants(ctx, t.ID); err != nil {
		return nil, apperr.Transient("counting participants", err)
	}
	out := &TournamentLeaderboard{Tournament: t}

	key := cache.TournamentLeaderboardKey(t.ID)
	if !s.cache.Load(ctx, key, &out.Leaderboard) {
		top, err := s.standings(ctx, t.ID, LeaderboardSize)
		if err != nil {
			return nil, apperr.Transient("loading standings", err)
		}
		out.Leaderboard = top
		s.cache.Store(ctx, key, top, cache.LeaderboardTTL)
	}
	if out.Leaderboard == nil {
		out.Leaderboard = []StandingEntry{}
	}

	if userID != "" {
		p, err := s.store.GetParticipant(ctx, t.ID, userID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, apperr.Transient("loading participant", err)
		case p.TotalGames > 0:
			higher, err := s.store.CountHigherScores(ctx, t.ID, p.BestScore)
			if err != nil {
				return nil, apperr.Transient("computing rank", err)
			}
			entry := standingOf(*p, higher+1)
			out.UserRank = &entry
		}
	}
	return out, nil
}
