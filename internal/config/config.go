package config

import (
	"os"
	"strconv"
	"time"

	"github.com/Alwanly/guang-panel/pkg/poll"
)

type RedisConfig struct {
	Host             string
	Port             int
	Password         string
	DB               int
	PublishChannel   string
	SubscribeChannel string
}

type PanelConfig struct {
	ServerAddr     string
	BackendURL     string
	RequestTimeout time.Duration
	DatabasePath   string
	FacilitiesFile string
	PanelUsername  string
	PanelPassword  string

	// Defaults for settings that have not been saved yet
	BeaconInterval  time.Duration
	UpdateInterval  time.Duration
	WorkersInterval time.Duration
	MessagesMaxShow int
	ScanMaxRows     int

	// Backend wait at startup
	BackendMaxRetries        int
	BackendInitialBackoff    time.Duration
	BackendMaxBackoff        time.Duration
	BackendBackoffMultiplier float64

	Redis *RedisConfig
}

// LoadPanelConfig reads panel config from environment or returns defaults
func LoadPanelConfig() (*PanelConfig, error) {
	cfg := &PanelConfig{
		ServerAddr:     envOrDefault("PANEL_ADDR", ":8090"),
		BackendURL:     envOrDefault("BACKEND_URL", "http://localhost:4711"),
		RequestTimeout: envSeconds("REQUEST_TIMEOUT", 10*time.Second),
		DatabasePath:   envOrDefault("DATABASE_PATH", "./data/panel.db"),
		FacilitiesFile: os.Getenv("FACILITIES_FILE"),
		PanelUsername:  os.Getenv("PANEL_USER"),
		PanelPassword:  os.Getenv("PANEL_PASSWORD"),

		BeaconInterval:  envMillis("BEACON_INTERVAL_MS", 5*time.Second),
		UpdateInterval:  envMillis("UPDATE_INTERVAL_MS", 5*time.Second),
		WorkersInterval: envMillis("WORKERS_INTERVAL_MS", 2500*time.Millisecond),
		MessagesMaxShow: envInt("MESSAGES_MAX_SHOW", 100),
		ScanMaxRows:     envInt("SCAN_MAX_ROWS", 500),

		BackendMaxRetries:        envInt("BACKEND_MAX_RETRIES", 5),
		BackendInitialBackoff:    envSeconds("BACKEND_INITIAL_BACKOFF", time.Second),
		BackendMaxBackoff:        envSeconds("BACKEND_MAX_BACKOFF", 30*time.Second),
		BackendBackoffMultiplier: 2.0,
	}

	if v := os.Getenv("BACKEND_BACKOFF_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.BackendBackoffMultiplier = f
		}
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Redis = &RedisConfig{
			Host:             host,
			Port:             envInt("REDIS_PORT", 6379),
			Password:         os.Getenv("REDIS_PASSWORD"),
			DB:               envInt("REDIS_DB", 0),
			PublishChannel:   envOrDefault("REDIS_PUBLISH_CHANNEL", "guang:panel:messages"),
			SubscribeChannel: envOrDefault("REDIS_SUBSCRIBE_CHANNEL", "guang:backend:messages"),
		}
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d, err := poll.IntervalFromMillis(i); err == nil {
				return d
			}
		}
	}
	return def
}
