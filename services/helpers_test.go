package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/cache"
	"github.com/erezos/flappyjet-backend-sub006/events"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/realtime"
	"github.com/erezos/flappyjet-backend-sub006/store"
	"github.com/erezos/flappyjet-backend-sub006/store/memory"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type sent struct {
	room string
	msg  realtime.Message
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, room string, msg realtime.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{room, msg})
	return nil
}

func (r *recordingBroadcaster) ofType(typ string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, s := range r.sent {
		if s.msg.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

func int64p(v int64) *int64 { return &v }

func gameEnded(t *testing.T, id, user string, score, survivalMs int64, mode, tournamentID string, at time.Time) models.RawEvent {
	t.Helper()
	payload, err := json.Marshal(&events.GameEnded{
		Score:        int64p(score),
		SurvivalTime: int64p(survivalMs),
		GameMode:     mode,
		TournamentID: tournamentID,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return models.RawEvent{
		ID:           id,
		EventType:    events.TypeGameEnded,
		UserID:       user,
		Timestamp:    at,
		Payload:      payload,
		GameMode:     mode,
		TournamentID: tournamentID,
	}
}

type fixture struct {
	store       *memory.Store
	cache       *cache.Memory
	metrics     *metrics.Metrics
	broadcaster *recordingBroadcaster
	leaderboard *LeaderboardService
	prizes      *PrizeService
	tournaments *TournamentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:       memory.New(),
		cache:       cache.NewMemory(),
		metrics:     metrics.New(),
		broadcaster: &recordingBroadcaster{},
	}
	safe := cache.NewSafe(f.cache, nil, f.metrics)
	ac := NewAntiCheat(DefaultAntiCheatConfig())
	f.leaderboard = NewLeaderboardService(f.store, safe, ac, 100, nil, f.metrics)
	f.prizes = NewPrizeService(f.store, nil, f.metrics)
	f.tournaments = NewTournamentService(f.store, safe, f.broadcaster, ac, f.prizes, nil, nil, f.metrics)
	return f
}

// failingStore fails UpsertHighScore for one player, inside transactions too.
type failingStore struct {
	store.Store
	failFor string
}

func (f *failingStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(&failingStore{Store: tx, failFor: f.failFor})
	})
}

func (f *failingStore) UpsertHighScore(ctx context.Context, playerID, scope string, score int64, at time.Time) error {
	if playerID == f.failFor {
		return errors.New("connection reset by peer")
	}
	return f.Store.UpsertHighScore(ctx, playerID, scope, score, at)
}
