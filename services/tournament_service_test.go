package services

import (
	"context"
	"testing"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/realtime"
	"github.com/erezos/flappyjet-backend-sub006/store"
)

func createTournament(t *testing.T, f *fixture, pool int64, dist models.PrizeDistribution) *models.Tournament {
	t.Helper()
	start := t0
	tour, err := f.tournaments.CreateWeeklyTournament(context.Background(), CreateTournamentOptions{
		StartDate:         &start,
		PrizePool:         &pool,
		PrizeDistribution: dist,
	})
	if err != nil {
		t.Fatalf("CreateWeeklyTournament: %v", err)
	}
	return tour
}

func submit(t *testing.T, f *fixture, tid, player string, score int64) *SubmitScoreResult {
	t.Helper()
	res, err := f.tournaments.SubmitScore(context.Background(), tid, SubmitScoreRequest{
		PlayerID:       player,
		Score:          score,
		SurvivalTimeMs: score * 1000,
	})
	if err != nil {
		t.Fatalf("SubmitScore(%s, %d): %v", player, score, err)
	}
	return res
}

func TestCreateWeeklyTournamentDefaults(t *testing.T) {
	f := newFixture(t)
	f.tournaments.now = func() time.Time { return t0 }

	tour, err := f.tournaments.CreateWeeklyTournament(context.Background(), CreateTournamentOptions{})
	if err != nil {
		t.Fatalf("CreateWeeklyTournament: %v", err)
	}
	if tour.Status != models.TournamentUpcoming || tour.PrizePool != DefaultPrizePool {
		t.Fatalf("tournament = %+v", tour)
	}
	if tour.Name != "Weekly Championship 2026-W10" {
		t.Fatalf("name = %q", tour.Name)
	}
	if !tour.EndDate.Equal(t0.Add(7 * 24 * time.Hour)) {
		t.Fatalf("end = %v", tour.EndDate)
	}
	if d := tour.Distribution(); d[1] != 0.5 || d[2] != 0.3 || d[3] != 0.2 {
		t.Fatalf("distribution = %v", d)
	}
}

func TestCreateWeeklyTournamentValidation(t *testing.T) {
	f := newFixture(t)
	neg := int64(-1)
	start := t0
	end := t0.Add(-time.Hour)
	cases := []CreateTournamentOptions{
		{PrizePool: &neg},
		{StartDate: &start, EndDate: &end},
		{PrizeDistribution: models.PrizeDistribution{1: 0.7, 2: 0.5}},
		{PrizeDistribution: models.PrizeDistribution{0: 0.5}},
	}
	for i, opts := range cases {
		if _, err := f.tournaments.CreateWeeklyTournament(context.Background(), opts); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("case %d: err = %v", i, err)
		}
	}
}

func TestRegisterPlayerRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := createTournament(t, f, 1000, nil)

	p, err := f.tournaments.RegisterPlayer(ctx, tour.ID, "p1", "Pilot One")
	if err != nil || p.PlayerName != "Pilot One" {
		t.Fatalf("RegisterPlayer = %+v, %v", p, err)
	}
	_, err = f.tournaments.RegisterPlayer(ctx, tour.ID, "p1", "Pilot One")
	if !apperr.Is(err, apperr.KindStateConflict) || apperr.PublicMessage(err) != "already registered" {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := f.tournaments.RegisterPlayer(ctx, "missing", "p1", ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing tournament err = %v", err)
	}
	if got := f.broadcaster.ofType(realtime.TypePlayerRegistered); len(got) != 1 || got[0].room != realtime.PlayerRoom("p1") {
		t.Fatalf("registration broadcasts = %+v", got)
	}

	if _, err := f.tournaments.StartTournament(ctx, tour.ID); err != nil {
		t.Fatalf("StartTournament: %v", err)
	}
	if _, err := f.tournaments.EndTournament(ctx, tour.ID); err != nil {
		t.Fatalf("EndTournament: %v", err)
	}
	_, err = f.tournaments.RegisterPlayer(ctx, tour.ID, "p2", "")
	if !apperr.Is(err, apperr.KindStateConflict) || apperr.PublicMessage(err) != "registration is closed" {
		t.Fatalf("closed err = %v", err)
	}
}

func TestSubmitScoreRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := createTournament(t, f, 1000, nil)
	_, _ = f.tournaments.RegisterPlayer(ctx, tour.ID, "p1", "")

	req := SubmitScoreRequest{PlayerID: "p1", Score: 10, SurvivalTimeMs: 10000}
	if _, err := f.tournaments.SubmitScore(ctx, tour.ID, req); !apperr.Is(err, apperr.KindStateConflict) {
		t.Fatalf("upcoming submit err = %v", err)
	}
	_, _ = f.tournaments.StartTournament(ctx, tour.ID)

	first := submit(t, f, tour.ID, "p1", 40)
	if !first.NewBest || first.BestScore != 40 || first.Rank != 1 || first.TotalGames != 1 {
		t.Fatalf("first = %+v", first)
	}
	second := submit(t, f, tour.ID, "p1", 30)
	if second.NewBest || second.BestScore != 40 || second.TotalGames != 2 {
		t.Fatalf("second = %+v", second)
	}

	_, err := f.tournaments.SubmitScore(ctx, tour.ID, SubmitScoreRequest{PlayerID: "stranger", Score: 10, SurvivalTimeMs: 10000})
	if !apperr.Is(err, apperr.KindForbidden) || apperr.PublicMessage(err) != "not registered" {
		t.Fatalf("stranger err = %v", err)
	}
	_, err = f.tournaments.SubmitScore(ctx, tour.ID, SubmitScoreRequest{PlayerID: "p1", Score: 1000, SurvivalTimeMs: 5000})
	if !apperr.Is(err, apperr.KindAntiCheat) {
		t.Fatalf("cheat err = %v", err)
	}
	if got := len(f.broadcaster.ofType(realtime.TypeLeaderboardUpdate)); got != 2 {
		t.Fatalf("leaderboard_update broadcasts = %d", got)
	}
}

func TestTournamentEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := createTournament(t, f, 1000, models.PrizeDistribution{1: 0.5, 2: 0.3, 3: 0.2})

	players := []string{"p", "a", "b", "c", "d", "e"}
	for _, id := range players {
		if _, err := f.tournaments.RegisterPlayer(ctx, tour.ID, id, "Player "+id); err != nil {
			t.Fatalf("RegisterPlayer(%s): %v", id, err)
		}
	}
	started, err := f.tournaments.StartTournament(ctx, tour.ID)
	if err != nil || started.Status != models.TournamentActive || started.ParticipantCount != 6 {
		t.Fatalf("StartTournament = %+v, %v", started, err)
	}
	if _, err := f.tournaments.StartTournament(ctx, tour.ID); !apperr.Is(err, apperr.KindStateConflict) {
		t.Fatalf("second start err = %v", err)
	}

	for id, score := range map[string]int64{"a": 500, "b": 400, "c": 300, "d": 200, "e": 100} {
		submit(t, f, tour.ID, id, score)
	}
	res := submit(t, f, tour.ID, "p", 350)
	if res.Rank != 3 {
		t.Fatalf("rank = %d, want 3", res.Rank)
	}

	end, err := f.tournaments.EndTournament(ctx, tour.ID)
	if err != nil {
		t.Fatalf("EndTournament: %v", err)
	}
	if end.AlreadyEnded || end.Tournament.Status != models.TournamentEnded {
		t.Fatalf("end = %+v", end)
	}
	if end.Prizes.PrizesAwarded != 3 {
		t.Fatalf("prizes awarded = %d", end.Prizes.PrizesAwarded)
	}
	var pPrize *models.Prize
	for i := range end.Prizes.PrizeDetails {
		if end.Prizes.PrizeDetails[i].PlayerID == "p" {
			pPrize = &end.Prizes.PrizeDetails[i]
		}
	}
	if pPrize == nil || pPrize.Coins != 200 || pPrize.Rank != 3 {
		t.Fatalf("p prize = %+v", pPrize)
	}
	if end.FinalStandings[2].PlayerID != "p" || end.FinalStandings[2].Coins != 200 {
		t.Fatalf("standing 3 = %+v", end.FinalStandings[2])
	}
	if snaps := f.store.Snapshots(tour.ID); len(snaps) != 6 || snaps[2].PlayerID != "p" {
		t.Fatalf("snapshots = %+v", snaps)
	}
	participant, _ := f.store.GetParticipant(ctx, tour.ID, "p")
	if participant.FinalRank != 3 {
		t.Fatalf("final rank = %d", participant.FinalRank)
	}

	ended := len(f.broadcaster.ofType(realtime.TypeTournamentEnded))
	again, err := f.tournaments.EndTournament(ctx, tour.ID)
	if err != nil {
		t.Fatalf("second EndTournament: %v", err)
	}
	if !again.AlreadyEnded || again.Prizes.PrizesAwarded != 0 {
		t.Fatalf("second end = %+v", again)
	}
	if got := len(f.broadcaster.ofType(realtime.TypeTournamentEnded)); got != ended || ended != 1 {
		t.Fatalf("tournament_ended broadcasts = %d then %d", ended, got)
	}
	prizes, _ := f.store.TournamentPrizes(ctx, tour.ID)
	if len(prizes) != 3 {
		t.Fatalf("prize rows = %d", len(prizes))
	}
	if len(f.store.Snapshots(tour.ID)) != 6 {
		t.Fatal("second end wrote snapshots")
	}
}

func TestEndUpcomingTournamentConflicts(t *testing.T) {
	f := newFixture(t)
	tour := createTournament(t, f, 1000, nil)
	if _, err := f.tournaments.EndTournament(context.Background(), tour.ID); !apperr.Is(err, apperr.KindStateConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestScheduledLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := createTournament(t, f, 1000, nil)

	f.tournaments.now = func() time.Time { return t0.Add(time.Minute) }
	if n, err := f.tournaments.StartDueTournaments(ctx); err != nil || n != 1 {
		t.Fatalf("StartDueTournaments = %d, %v", n, err)
	}
	if n, _ := f.tournaments.EndDueTournaments(ctx); n != 0 {
		t.Fatalf("ended %d before end date", n)
	}
	f.tournaments.now = func() time.Time { return tour.EndDate.Add(time.Minute) }
	if n, err := f.tournaments.EndDueTournaments(ctx); err != nil || n != 1 {
		t.Fatalf("EndDueTournaments = %d, %v", n, err)
	}
	got, _ := f.store.GetTournament(ctx, tour.ID)
	if got.Status != models.TournamentEnded {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestTournamentLeaderboardAndCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := createTournament(t, f, 1000, nil)
	for _, id := range []string{"a", "b", "c", "idle"} {
		_, _ = f.tournaments.RegisterPlayer(ctx, tour.ID, id, "")
	}
	_, _ = f.tournaments.StartTournament(ctx, tour.ID)
	submit(t, f, tour.ID, "a", 50)
	submit(t, f, tour.ID, "b", 50)
	submit(t, f, tour.ID, "c", 20)

	lb, err := f.tournaments.Leaderboard(ctx, tour.ID, "c")
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(lb.Leaderboard) != 3 {
		t.Fatalf("leaderboard = %+v", lb.Leaderboard)
	}
	if lb.Leaderboard[0].Rank != 1 || lb.Leaderboard[1].Rank != 1 || lb.Leaderboard[2].Rank != 3 {
		t.Fatalf("ranks = %+v", lb.Leaderboard)
	}
	if lb.UserRank == nil || lb.UserRank.Rank != 3 {
		t.Fatalf("user rank = %+v", lb.UserRank)
	}
	if idle, _ := f.tournaments.Leaderboard(ctx, tour.ID, "idle"); idle.UserRank != nil {
		t.Fatalf("idle player ranked: %+v", idle.UserRank)
	}

	cur, err := f.tournaments.CurrentTournament(ctx)
	if err != nil || cur.ID != tour.ID || cur.ParticipantCount != 4 {
		t.Fatalf("CurrentTournament = %+v, %v", cur, err)
	}
}

// endingStore ends the tournament right after the participant lookup, which
// is the window between SubmitScore's status check and its write.
type endingStore struct {
	store.Store
}

func (e *endingStore) GetParticipant(ctx context.Context, tournamentID, playerID string) (*models.TournamentParticipant, error) {
	p, err := e.Store.GetParticipant(ctx, tournamentID, playerID)
	if err != nil {
		return nil, err
	}
	if _, err := e.Store.TransitionTournament(ctx, tournamentID, models.TournamentActive, models.TournamentEnded, t0); err != nil {
		return nil, err
	}
	return p, nil
}

func TestSubmitScoreAfterConcurrentEndConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := createTournament(t, f, 1000, nil)
	_, _ = f.tournaments.RegisterPlayer(ctx, tour.ID, "p1", "")
	_, _ = f.tournaments.StartTournament(ctx, tour.ID)
	submit(t, f, tour.ID, "p1", 40)

	racing := NewTournamentService(&endingStore{Store: f.store}, nil, nil, NewAntiCheat(DefaultAntiCheatConfig()), f.prizes, nil, nil, f.metrics)
	_, err := racing.SubmitScore(ctx, tour.ID, SubmitScoreRequest{PlayerID: "p1", Score: 90, SurvivalTimeMs: 90000})
	if !apperr.Is(err, apperr.KindStateConflict) {
		t.Fatalf("submit after end err = %v", err)
	}

	p, err := f.store.GetParticipant(ctx, tour.ID, "p1")
	if err != nil {
		t.Fatalf("GetParticipant: %v", err)
	}
	if p.BestScore != 40 || p.TotalGames != 1 {
		t.Fatalf("participant mutated after end: %+v", p)
	}
}
