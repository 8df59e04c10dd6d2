package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STATS_TOP_N", "")
	t.Setenv("STATS_TITLE_CACHE_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stats.TopN != 6 {
		t.Fatalf("top n = %d, want 6", cfg.Stats.TopN)
	}
	if cfg.Stats.TitleCacheTTL != 10*time.Minute {
		t.Fatalf("title ttl = %v", cfg.Stats.TitleCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STATS_TOP_N", "10")
	t.Setenv("STATS_TITLE_CACHE_TTL", "90s")
	t.Setenv("EXPORT_WORKERS", "0")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stats.TopN != 10 || cfg.Stats.TitleCacheTTL != 90*time.Second {
		t.Fatalf("unexpected stats config %+v", cfg.Stats)
	}
	if cfg.Stats.ExportWorkers != 1 {
		t.Fatalf("export workers = %d, want 1", cfg.Stats.ExportWorkers)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadRejectsNonPositiveTopN(t *testing.T) {
	t.Setenv("STATS_TOP_N", "-2")
	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a negative top n")
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", DBName: "stats", SSLMode: "require"}
	if got, want := c.DSN(), "postgres://u:p@db:5433/stats?sslmode=require"; got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
	c.URL = "postgres://override"
	if c.DSN() != "postgres://override" {
		t.Fatalf("expected URL to win")
	}
}
