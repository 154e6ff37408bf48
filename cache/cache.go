// Package cache is a disposable key/value view in front of the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
)

var ErrMiss = errors.New("cache: miss")

type Cache interface {
	// Get returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob such as "leaderboard:global:*".
	DeletePattern(ctx context.Context, pattern string) error
	Close() error
}

const (
	LeaderboardTTL = 30 * time.Second
	TournamentTTL  = 60 * time.Second

	GlobalLeaderboardPattern = "leaderboard:global:*"
	CurrentTournamentKey     = "tournament:current"
)

func GlobalTopKey(limit int) string {
	return "leaderboard:global:top:" + strconv.Itoa(limit)
}

func TournamentLeaderboardKey(tournamentID string) string {
	return "tournament:" + tournamentID + ":leaderboard"
}

// Safe wraps a Cache so that failures are logged and counted but never
// returned. Business code reads through it and falls back to the store.
type Safe struct {
	c       Cache
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewSafe(c Cache, log *zap.SugaredLogger, m *metrics.Metrics) *Safe {
	return &Safe{c: c, log: logger.OrNop(log), metrics: metrics.OrNew(m)}
}

// Load decodes key into dst and reports whether it was a usable hit.
func (s *Safe) Load(ctx context.Context, key string, dst any) bool {
	if s == nil || s.c == nil {
		return false
	}
	raw, err := s.c.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			s.fail("get", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.fail("decode", key, err)
		return false
	}
	return true
}

func (s *Safe) Store(ctx context.Context, key string, v any, ttl time.Duration) {
	if s == nil || s.c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.fail("encode", key, err)
		return
	}
	if err := s.c.Set(ctx, key, raw, ttl); err != nil {
		s.fail("set", key, err)
	}
}

func (s *Safe) Delete(ctx context.Context, keys ...string) {
	if s == nil || s.c == nil || len(keys) == 0 {
		return
	}
	if err := s.c.Delete(ctx, keys...); err != nil {
		s.fail("delete", keys[0], err)
	}
}

func (s *Safe) DeletePattern(ctx context.Context, pattern string) {
	if s == nil || s.c == nil {
		return
	}
	if err := s.c.DeletePattern(ctx, pattern); err != nil {
		s.fail("delete-pattern", pattern, err)
	}
}

func (s *Safe) fail(op, key string, err error) {
	s.metrics.CacheErrors.Add(1)
	s.log.Warnw("[CACHE] operation failed", "op", op, "key", key, "error", err)
}
