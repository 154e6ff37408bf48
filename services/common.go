package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/realtime"
	"github.com/erezos/flappyjet-backend-sub006/store"
)

// LeaderboardSize is how many rows the leaderboard endpoints return.
const LeaderboardSize = 15

// storeErr classifies a store failure for handlers.
func storeErr(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Transient("store unavailable", err)
}

func broadcast(ctx context.Context, b realtime.Broadcaster, log *zap.SugaredLogger, m *metrics.Metrics, room string, msg realtime.Message) {
	if b == nil {
		return
	}
	if err := b.Broadcast(ctx, room, msg); err != nil {
		m.BroadcastFailures.Add(1)
		log.Warnw("[REALTIME] broadcast failed", "room", room, "type", msg.Type, "error", err)
	}
}
