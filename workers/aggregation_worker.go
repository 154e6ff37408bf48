package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/events"
	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/services"
)

type Aggregator interface {
	UpdateGlobalLeaderboard(ctx context.Context) services.AggregationResult
	UpdateTournamentLeaderboard(ctx context.Context) services.AggregationResult
}

// AggregationWorker folds pending game_ended events into the leaderboards on
// a ticker, and early when Trigger is called.
type AggregationWorker struct {
	agg      Aggregator
	interval time.Duration
	trigger  chan struct{}
	log      *zap.SugaredLogger
}

func NewAggregationWorker(agg Aggregator, interval time.Duration, log *zap.SugaredLogger) *AggregationWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &AggregationWorker{
		agg:      agg,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		log:      logger.OrNop(log),
	}
}

// Trigger requests a run without waiting for it. Requests made while one is
// pending collapse into it.
func (w *AggregationWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// OnFlush is an EventPool hook that triggers a run when a persisted batch
// held a game_ended event.
func (w *AggregationWorker) OnFlush(rows []models.RawEvent) {
	for _, r := range rows {
		if r.EventType == events.TypeGameEnded {
			w.Trigger()
			return
		}
	}
}

func (w *AggregationWorker) Run(ctx context.Context) {
	w.log.Infow("[AGGREGATOR] started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("[AGGREGATOR] stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-w.trigger:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce runs one global and one tournament batch.
func (w *AggregationWorker) RunOnce(ctx context.Context) (global, tournament services.AggregationResult) {
	global = w.agg.UpdateGlobalLeaderboard(ctx)
	tournament = w.agg.UpdateTournamentLeaderboard(ctx)
	if !global.Success || !tournament.Success {
		w.log.Warnw("[AGGREGATOR] run incomplete, will retry next tick",
			"global_error", global.Error, "tournament_error", tournament.Error)
	}
	return global, tournament
}
