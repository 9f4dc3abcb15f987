package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_DETAILS", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MongoDatabase != "vodex" {
		t.Errorf("expected database vodex, got %q", cfg.MongoDatabase)
	}
	if cfg.ItemsCollection != "items" || cfg.ClockInCollection != "clockin" {
		t.Errorf("unexpected collections %q/%q", cfg.ItemsCollection, cfg.ClockInCollection)
	}
	if cfg.StoreTimeout != 10*time.Second {
		t.Errorf("expected store timeout 10s, got %s", cfg.StoreTimeout)
	}
	if cfg.RateLimitPerMin != 120 {
		t.Errorf("expected rate limit 120, got %d", cfg.RateLimitPerMin)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MONGO_DETAILS", "mongodb://db:27017")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("QUEUE_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Production() {
		t.Error("expected production mode")
	}
	if cfg.RateLimitPerMin != 30 {
		t.Errorf("expected rate limit 30, got %d", cfg.RateLimitPerMin)
	}
	if cfg.QueueBackend != "memory" {
		t.Errorf("expected memory queue, got %q", cfg.QueueBackend)
	}
}
