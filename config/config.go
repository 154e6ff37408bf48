package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ArchiveConfig points at the S3-compatible bucket that receives final standings.
// Archiving is skipped when Bucket is empty.
type ArchiveConfig struct {
	Bucket          string `env:"BUCKET"`
	Endpoint        string `env:"ENDPOINT"`
	Region          string `env:"REGION" envDefault:"auto"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL"`
}

type Config struct {
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":5200"`
	GatewayToken   string   `env:"GAME_SERVICE_TOKEN"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	// Admin routes reject every request when GatewayToken is empty unless
	// this is set. Meant for local development only.
	AdminAuthDisabled bool `env:"ADMIN_AUTH_DISABLED"`

	RedisURL string `env:"REDIS_URL"`
	NATSURL  string `env:"NATS_URL"`

	GeoServiceURL string        `env:"GEO_SERVICE_URL"`
	GeoTimeout    time.Duration `env:"GEO_TIMEOUT" envDefault:"2s"`

	WorkerCount         int           `env:"WORKER_COUNT" envDefault:"4"`
	QueueSize           int           `env:"QUEUE_SIZE" envDefault:"10000"`
	WorkerBatchSize     int           `env:"WORKER_BATCH_SIZE" envDefault:"50"`
	WorkerFlushInterval time.Duration `env:"WORKER_FLUSH_INTERVAL" envDefault:"1s"`
	PersistAttempts     int           `env:"WORKER_PERSIST_ATTEMPTS" envDefault:"5"`
	RetryBackoff        time.Duration `env:"WORKER_RETRY_BACKOFF" envDefault:"200ms"`

	AggregationInterval  time.Duration `env:"AGGREGATION_INTERVAL" envDefault:"15s"`
	AggregationBatchSize int           `env:"AGGREGATION_BATCH_SIZE" envDefault:"500"`
	LifecycleInterval    time.Duration `env:"LIFECYCLE_INTERVAL" envDefault:"1m"`
	// Only one instance per deployment should run the tournament calendar.
	SchedulerEnabled bool `env:"SCHEDULER_ENABLED" envDefault:"true"`

	Archive ArchiveConfig `envPrefix:"ARCHIVE_"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev       bool   `env:"LOG_DEV"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable not set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want postgres or memory)", c.StoreDriver)
	}
	if c.WorkerCount < 1 {
		return errors.New("WORKER_COUNT must be at least 1")
	}
	if c.QueueSize < 1 {
		return errors.New("QUEUE_SIZE must be at least 1")
	}
	if c.AggregationBatchSize < 1 {
		return errors.New("AGGREGATION_BATCH_SIZE must be at least 1")
	}
	if c.PersistAttempts < 1 {
		return errors.New("WORKER_PERSIST_ATTEMPTS must be at least 1")
	}
	return nil
}

// ValidateServe adds the checks that only matter when serving HTTP.
func (c *Config) ValidateServe() error {
	if c.GatewayToken == "" && !c.AdminAuthDisabled {
		return errors.New("GAME_SERVICE_TOKEN not set (set ADMIN_AUTH_DISABLED=true to serve admin routes without auth)")
	}
	return nil
}
