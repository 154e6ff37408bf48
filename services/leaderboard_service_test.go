package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
	"github.com/erezos/flappyjet-backend-sub006/cache"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/store"
)

func TestUpdateGlobalLeaderboardIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	evs := []models.RawEvent{
		gameEnded(t, "e1", "u1", 30, 30000, "endless", "", t0),
		gameEnded(t, "e2", "u2", 45, 45000, "story", "", t0.Add(time.Minute)),
		gameEnded(t, "e3", "u1", 40, 40000, "endless", "", t0.Add(2*time.Minute)),
	}
	if err := f.store.InsertEvents(ctx, evs); err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}

	res := f.leaderboard.UpdateGlobalLeaderboard(ctx)
	if !res.Success || res.Processed != 3 || res.Updated != 3 {
		t.Fatalf("first run = %+v", res)
	}
	again := f.leaderboard.UpdateGlobalLeaderboard(ctx)
	if !again.Success || again.Processed != 0 {
		t.Fatalf("second run = %+v", again)
	}

	e, err := f.store.EntryRank(ctx, models.ScopeGlobal, "u1")
	if err != nil {
		t.Fatalf("EntryRank: %v", err)
	}
	if e.HighScore != 40 || e.TotalGames != 2 || e.Rank != 2 {
		t.Fatalf("u1 = %+v", e)
	}
	for _, ev := range evs {
		if got, _ := f.store.Event(ev.ID); !got.Processed {
			t.Fatalf("event %s not processed", ev.ID)
		}
	}
}

func TestHighScoreIsRunningMaximumRegardlessOfOrder(t *testing.T) {
	orders := [][]int64{
		{30, 80, 50},
		{80, 50, 30},
		{50, 30, 80},
	}
	for _, scores := range orders {
		f := newFixture(t)
		ctx := context.Background()
		var evs []models.RawEvent
		for i, s := range scores {
			// an hour apart keeps the velocity check quiet
			evs = append(evs, gameEnded(t, string(rune('a'+i)), "u1", s, s*1000, "endless", "", t0.Add(time.Duration(i)*time.Hour)))
		}
		_ = f.store.InsertEvents(ctx, evs)
		if res := f.leaderboard.UpdateGlobalLeaderboard(ctx); !res.Success {
			t.Fatalf("%v: %+v", scores, res)
		}
		e, err := f.store.EntryRank(ctx, models.ScopeGlobal, "u1")
		if err != nil || e.HighScore != 80 || e.TotalGames != 3 {
			t.Fatalf("%v: entry = %+v, %v", scores, e, err)
		}
	}

	t.Run("late earlier event in a second batch", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_ = f.store.InsertEvents(ctx, []models.RawEvent{
			gameEnded(t, "a", "u1", 50, 50000, "endless", "", t0.Add(2*time.Hour)),
			gameEnded(t, "b", "u1", 30, 30000, "endless", "", t0.Add(3*time.Hour)),
		})
		if res := f.leaderboard.UpdateGlobalLeaderboard(ctx); !res.Success || res.Updated != 2 {
			t.Fatalf("first batch: %+v", res)
		}

		// delivered late but played first
		_ = f.store.InsertEvents(ctx, []models.RawEvent{
			gameEnded(t, "c", "u1", 80, 80000, "endless", "", t0),
			gameEnded(t, "d", "u1", 10, 10000, "endless", "", t0.Add(time.Hour)),
		})
		if res := f.leaderboard.UpdateGlobalLeaderboard(ctx); !res.Success || res.Updated != 2 {
			t.Fatalf("second batch: %+v", res)
		}

		e, err := f.store.EntryRank(ctx, models.ScopeGlobal, "u1")
		if err != nil || e.HighScore != 80 || e.TotalGames != 4 {
			t.Fatalf("entry = %+v, %v", e, err)
		}
		if !e.UpdatedAt.Equal(t0.Add(3 * time.Hour)) {
			t.Fatalf("updated_at moved back to %v", e.UpdatedAt)
		}
	})

	t.Run("replayed events", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		evs := []models.RawEvent{
			gameEnded(t, "a", "u1", 30, 30000, "endless", "", t0),
			gameEnded(t, "b", "u1", 80, 80000, "endless", "", t0.Add(time.Hour)),
		}
		_ = f.store.InsertEvents(ctx, evs)
		if res := f.leaderboard.UpdateGlobalLeaderboard(ctx); !res.Success || res.Updated != 2 {
			t.Fatalf("first pass: %+v", res)
		}

		// a retried ingest batch and a second aggregation pass
		if err := f.store.InsertEvents(ctx, evs); err != nil {
			t.Fatalf("replayed InsertEvents: %v", err)
		}
		if res := f.leaderboard.UpdateGlobalLeaderboard(ctx); !res.Success || res.Updated != 0 {
			t.Fatalf("replay pass: %+v", res)
		}
		if res := f.leaderboard.UpdateGlobalLeaderboard(ctx); !res.Success || res.Updated != 0 {
			t.Fatalf("idle pass: %+v", res)
		}

		e, err := f.store.EntryRank(ctx, models.ScopeGlobal, "u1")
		if err != nil || e.HighScore != 80 || e.TotalGames != 2 {
			t.Fatalf("entry = %+v, %v", e, err)
		}
	})
}

func TestTournamentAggregationScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.store.InsertEvents(ctx, []models.RawEvent{
		gameEnded(t, "e1", "u1", 60, 60000, "tournament", "t1", t0),
		gameEnded(t, "e2", "u2", 70, 70000, "tournament", "", t0.Add(time.Second)),
		gameEnded(t, "e3", "u3", 10, 10000, "endless", "", t0.Add(2*time.Second)),
	})

	res := f.leaderboard.UpdateTournamentLeaderboard(ctx)
	if !res.Success || res.Processed != 2 || res.Updated != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	if _, err := f.store.EntryRank(ctx, models.TournamentScope("t1"), "u1"); err != nil {
		t.Fatalf("tournament entry: %v", err)
	}
	if _, err := f.store.EntryRank(ctx, models.ScopeGlobal, "u1"); err != nil {
		t.Fatalf("global entry: %v", err)
	}
	// missing tournament_id: processed, no mutation
	if got, _ := f.store.Event("e2"); !got.Processed {
		t.Fatal("e2 left pending")
	}
	if _, err := f.store.EntryRank(ctx, models.ScopeGlobal, "u2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("u2 entry err = %v", err)
	}
	// the endless game belongs to the global pass
	if got, _ := f.store.Event("e3"); got.Processed {
		t.Fatal("tournament pass consumed an endless game")
	}
}

func TestAggregationRejectsCheatedScores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.store.InsertEvents(ctx, []models.RawEvent{
		gameEnded(t, "e1", "u1", 20, 20000, "endless", "", t0),
		gameEnded(t, "e2", "u1", 500, 100000, "endless", "", t0.Add(time.Minute)),
		gameEnded(t, "e3", "u2", 1000, 5000, "endless", "", t0.Add(2*time.Minute)),
	})

	res := f.leaderboard.UpdateGlobalLeaderboard(ctx)
	if !res.Success || res.Processed != 3 || res.Rejected != 2 {
		t.Fatalf("result = %+v", res)
	}
	e, _ := f.store.EntryRank(ctx, models.ScopeGlobal, "u1")
	if e == nil || e.HighScore != 20 {
		t.Fatalf("u1 = %+v", e)
	}
	if f.metrics.AntiCheatRejections.Load() != 2 {
		t.Fatalf("AntiCheatRejections = %d", f.metrics.AntiCheatRejections.Load())
	}
}

func TestAggregationFailureCommitsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.store.InsertEvents(ctx, []models.RawEvent{
		gameEnded(t, "e1", "u1", 30, 30000, "endless", "", t0),
		gameEnded(t, "e2", "u2", 40, 40000, "endless", "", t0.Add(time.Minute)),
	})

	broken := NewLeaderboardService(&failingStore{Store: f.store, failFor: "u2"}, nil, nil, 100, nil, f.metrics)
	res := broken.UpdateGlobalLeaderboard(ctx)
	if res.Success || res.Processed != 0 || res.Error == "" {
		t.Fatalf("result = %+v", res)
	}
	if got, _ := f.store.Event("e1"); got.Processed {
		t.Fatal("e1 committed from an aborted batch")
	}
	if _, err := f.store.EntryRank(ctx, models.ScopeGlobal, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("u1 entry survived rollback: %v", err)
	}

	if res := f.leaderboard.UpdateGlobalLeaderboard(ctx); !res.Success || res.Processed != 2 {
		t.Fatalf("retry = %+v", res)
	}
}

func TestAggregationInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.cache.Set(ctx, cache.GlobalTopKey(LeaderboardSize), []byte(`[]`), time.Minute)
	_ = f.cache.Set(ctx, cache.TournamentLeaderboardKey("t1"), []byte(`[]`), time.Minute)
	_ = f.store.InsertEvents(ctx, []models.RawEvent{gameEnded(t, "e1", "u1", 60, 60000, "tournament", "t1", t0)})

	f.leaderboard.UpdateTournamentLeaderboard(ctx)
	for _, key := range []string{cache.GlobalTopKey(LeaderboardSize), cache.TournamentLeaderboardKey("t1")} {
		if _, err := f.cache.Get(ctx, key); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("%s still cached", key)
		}
	}
}

func TestGlobalLeaderboardWithUserRank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		_ = f.store.UpsertHighScore(ctx, string(rune('a'+i)), models.ScopeGlobal, int64(100+i), t0)
	}
	_ = f.store.UpsertNickname(ctx, "t", "Top Pilot")

	lb, err := f.leaderboard.GlobalLeaderboard(ctx, "a")
	if err != nil {
		t.Fatalf("GlobalLeaderboard: %v", err)
	}
	if len(lb.Leaderboard) != LeaderboardSize {
		t.Fatalf("len = %d", len(lb.Leaderboard))
	}
	if lb.Leaderboard[0].PlayerID != "t" || lb.Leaderboard[0].Nickname != "Top Pilot" {
		t.Fatalf("first = %+v", lb.Leaderboard[0])
	}
	if lb.UserRank == nil || lb.UserRank.Rank != 20 {
		t.Fatalf("user rank = %+v", lb.UserRank)
	}

	// cached copy is served, unknown user gets no rank
	lb, err = f.leaderboard.GlobalLeaderboard(ctx, "nobody")
	if err != nil || lb.UserRank != nil || len(lb.Leaderboard) != LeaderboardSize {
		t.Fatalf("second read = %+v, %v", lb, err)
	}
}

func TestValidateNickname(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Ace Pilot", "Ace Pilot", true},
		{"  jet42  ", "jet42", true},
		{"ＡＢＣ１２", "ABC12", true},
		{"Zoë", "Zoë", true},
		{"ab", "", false},
		{"bad_name", "", false},
		{"<script>", "", false},
		{string(make([]byte, 51)), "", false},
	}
	for _, tc := range cases {
		got, err := ValidateNickname(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("ValidateNickname(%q) err = %v", tc.in, err)
			continue
		}
		if err != nil && !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("ValidateNickname(%q) kind = %v", tc.in, apperr.KindOf(err))
		}
		if tc.ok && got != tc.want {
			t.Errorf("ValidateNickname(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUpdateNickname(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	name, err := f.leaderboard.UpdateNickname(ctx, "u1", " Sky Rider ")
	if err != nil || name != "Sky Rider" {
		t.Fatalf("UpdateNickname = %q, %v", name, err)
	}
	p, err := f.store.GetProfile(ctx, "u1")
	if err != nil || p.Nickname != "Sky Rider" {
		t.Fatalf("profile = %+v, %v", p, err)
	}
	if _, err := f.leaderboard.UpdateNickname(ctx, "", "Sky Rider"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("missing user err = %v", err)
	}
}
