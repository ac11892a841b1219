package config

import (
	"testing"
	"time"
)

func TestLoadPanelConfig_Intervals(t *testing.T) {
	t.Setenv("BEACON_INTERVAL_MS", "1000")
	t.Setenv("UPDATE_INTERVAL_MS", "18446744073710")
	t.Setenv("WORKERS_INTERVAL_MS", "-5")

	cfg, err := LoadPanelConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BeaconInterval != time.Second {
		t.Fatalf("expected 1s beacon interval, got %v", cfg.BeaconInterval)
	}
	if cfg.UpdateInterval != 5*time.Second {
		t.Fatalf("overflowing interval must fall back to the default, got %v", cfg.UpdateInterval)
	}
	if cfg.WorkersInterval != 2500*time.Millisecond {
		t.Fatalf("negative interval must fall back to the default, got %v", cfg.WorkersInterval)
	}
}

func TestLoadPanelConfig_RedisOnlyWithHost(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	cfg, _ := LoadPanelConfig()
	if cfg.Redis != nil {
		t.Fatalf("redis must be disabled without REDIS_HOST")
	}

	t.Setenv("REDIS_HOST", "cache")
	cfg, _ = LoadPanelConfig()
	if cfg.Redis == nil || cfg.Redis.Host != "cache" || cfg.Redis.Port != 6379 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
}
