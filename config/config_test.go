package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":5200" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.GeoTimeout != 2*time.Second {
		t.Errorf("GeoTimeout = %v", cfg.GeoTimeout)
	}
	if cfg.WorkerCount != 4 || cfg.QueueSize != 10000 {
		t.Errorf("pool defaults = %d/%d", cfg.WorkerCount, cfg.QueueSize)
	}
	if cfg.Archive.Region != "auto" {
		t.Errorf("Archive.Region = %q", cfg.Archive.Region)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AGGREGATION_INTERVAL", "30s")
	t.Setenv("ARCHIVE_BUCKET", "standings")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %#v", cfg.AllowedOrigins)
	}
	if cfg.AggregationInterval != 30*time.Second {
		t.Errorf("AggregationInterval = %v", cfg.AggregationInterval)
	}
	if cfg.Archive.Bucket != "standings" {
		t.Errorf("Archive.Bucket = %q", cfg.Archive.Bucket)
	}
}

func TestPostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestServeRequiresGatewayTokenOrOptOut(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("GAME_SERVICE_TOKEN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("expected error without GAME_SERVICE_TOKEN")
	}

	t.Setenv("ADMIN_AUTH_DISABLED", "true")
	if cfg, err = Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("ValidateServe with opt-out: %v", err)
	}

	t.Setenv("ADMIN_AUTH_DISABLED", "")
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
	if cfg, err = Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("ValidateServe with token: %v", err)
	}
}

func TestPersistRetryDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PersistAttempts != 5 || cfg.RetryBackoff != 200*time.Millisecond {
		t.Errorf("retry defaults = %d/%v", cfg.PersistAttempts, cfg.RetryBackoff)
	}

	t.Setenv("WORKER_PERSIST_ATTEMPTS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero persist attempts")
	}
}
