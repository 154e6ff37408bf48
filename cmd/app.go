package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/cache"
	"github.com/erezos/flappyjet-backend-sub006/config"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/realtime"
	"github.com/erezos/flappyjet-backend-sub006/services"
	"github.com/erezos/flappyjet-backend-sub006/store"
	"github.com/erezos/flappyjet-backend-sub006/store/memory"
	"github.com/erezos/flappyjet-backend-sub006/store/postgres"
	"github.com/erezos/flappyjet-backend-sub006/utils"
)

// app is the wired service graph shared by serve and the operator commands.
type app struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	metrics *metrics.Metrics

	store store.Store
	ping  func(ctx context.Context) error
	hub   *realtime.Hub

	events      *services.EventService
	leaderboard *services.LeaderboardService
	tournaments *services.TournamentService
	prizes      *services.PrizeService

	closers []func() error
}

// bootstrap connects every backing service named in cfg. With serving set
// room messages also reach the local hub for SSE subscribers.
func bootstrap(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, serving bool) (*app, error) {
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	switch cfg.StoreDriver {
	case "memory":
		log.Warn("⚠️  STORE_DRIVER=memory: data is lost on restart")
		a.store = memory.New()
	default:
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		a.store, a.ping = pg, pg.Ping
		log.Info("✅ Connected to PostgreSQL")
	}

	var backend cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			// the cache is optional, the store stays authoritative
			log.Warnw("⚠️  Redis unavailable, using in-process cache", "error", err)
		} else {
			backend = rc
			log.Info("✅ Connected to Redis")
		}
	}
	a.closers = append(a.closers, backend.Close)
	safe := cache.NewSafe(backend, log, a.metrics)

	var broadcaster realtime.Broadcaster = realtime.Noop{}
	if serving {
		a.hub = realtime.NewHub(log, a.metrics)
		broadcaster = a.hub
	}
	if cfg.NATSURL != "" {
		nc, err := realtime.NewNATS(cfg.NATSURL, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, nc.Close)
		broadcaster = nc
		if a.hub != nil {
			unsubscribe, err := nc.Relay(a.hub)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, func() error { unsubscribe(); return nil })
		}
		log.Info("✅ Connected to NATS")
	}

	var geo services.Geolocator
	if cfg.GeoServiceURL != "" {
		geo = services.NewGeoClient(cfg.GeoServiceURL, cfg.GatewayToken)
	}

	var archiver services.StandingsArchiver
	if cfg.Archive.Bucket != "" {
		s3a, err := utils.NewS3Archiver(ctx, cfg.Archive)
		if err != nil {
			return nil, err
		}
		archiver = s3a
	}

	ac := services.NewAntiCheat(services.AntiCheatConfig{})
	a.events = services.NewEventService(a.store, geo, cfg.GeoTimeout, log, a.metrics)
	a.leaderboard = services.NewLeaderboardService(a.store, safe, ac, cfg.AggregationBatchSize, log, a.metrics)
	a.prizes = services.NewPrizeService(a.store, log, a.metrics)
	a.tournaments = services.NewTournamentService(a.store, safe, broadcaster, ac, a.prizes, archiver, log, a.metrics)

	ok = true
	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warnw("close failed", "error", err)
		}
	}
	a.closers = nil
}

// withApp runs fn against a freshly bootstrapped app for one-shot commands.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, log, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := bootstrap(ctx, cfg, log, false)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer a.Close()
	return fn(a)
}
