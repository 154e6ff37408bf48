package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/erezos/flappyjet-backend-sub006/handlers"
	"github.com/erezos/flappyjet-backend-sub006/middleware"
	"github.com/erezos/flappyjet-backend-sub006/telemetry"
	"github.com/erezos/flappyjet-backend-sub006/workers"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, ingestion workers and tournament scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, "flappyjet-backend", cfg.OTelEndpoint)
	if err != nil {
		log.Warnw("⚠️  tracing disabled", "error", err)
	}

	a, err := bootstrap(ctx, cfg, log, true)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer a.Close()

	aggregator := workers.NewAggregationWorker(a.leaderboard, cfg.AggregationInterval, log)
	pool := workers.NewEventPool(a.events, workers.PoolConfig{
		WorkerCount:     cfg.WorkerCount,
		QueueSize:       cfg.QueueSize,
		BatchSize:       cfg.WorkerBatchSize,
		FlushInterval:   cfg.WorkerFlushInterval,
		PersistAttempts: cfg.PersistAttempts,
		RetryBackoff:    cfg.RetryBackoff,
		Logger:          log,
		Metrics:         a.metrics,
		OnFlush:         aggregator.OnFlush,
	})
	a.events.SetQueue(pool)
	pool.Start(ctx)
	go aggregator.Run(ctx)

	var scheduler *workers.Scheduler
	if cfg.SchedulerEnabled {
		scheduler, err = workers.NewScheduler(ctx, a.tournaments, a.prizes, cfg.LifecycleInterval, log)
		if err != nil {
			pool.Stop()
			return err
		}
		scheduler.Start()
	} else {
		log.Info("⏸️  Tournament scheduler disabled on this instance")
	}

	app := fiber.New(fiber.Config{
		AppName:               "flappyjet-backend",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, Cache-Control",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
		MaxAge:        86400,
	}))

	handlers.SetupRoutes(app, &handlers.Handler{
		Events:      a.events,
		Leaderboard: a.leaderboard,
		Tournaments: a.tournaments,
		Prizes:      a.prizes,
		Hub:         a.hub,
		Metrics:     a.metrics,
		Ping:        a.ping,
		QueueDepth:  pool.QueueDepth,
		Log:         log,

		AdminAuthDisabled: cfg.AdminAuthDisabled,
	}, cfg.GatewayToken)

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.HTTPAddr)
	}()
	log.Infof("✅ Server running on %s", cfg.HTTPAddr)
	log.Infof("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-listenErr:
		log.Errorw("❌ server error", "error", serveErr)
	}

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Warnw("http shutdown", "error", err)
	}
	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.Warnw("scheduler shutdown", "error", err)
		}
	}
	// drains queued events before the store closes
	pool.Stop()

	tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(tctx); err != nil {
		log.Warnw("tracing shutdown", "error", err)
	}
	return serveErr
}
