package repository

import (
	"context"
	"time"

	"github.com/Alwanly/guang-panel/internal/models"
	"github.com/Alwanly/guang-panel/internal/server/panel/dto"
)

// IBackendClient defines the interface for talking to the backend's /ajax endpoints
type IBackendClient interface {
	// SpawnWorkers starts amount workers and returns the new worker count
	SpawnWorkers(ctx context.Context, facilityID string, amount int) (int, error)
	// StopWorkers stops amount workers and returns the new worker count
	StopWorkers(ctx context.Context, facilityID string, amount int) (int, error)
	// WorkerCount fetches the current count of every facility
	WorkerCount(ctx context.Context) (map[string]int, error)
	// Beacon checks that the backend is alive
	Beacon(ctx context.Context) (*dto.BeaconResponse, error)
	// PortRecent fetches scan results newer than since
	PortRecent(ctx context.Context, since time.Time) (map[uint16][]models.ScanResult, error)
	// DBMaintenance triggers database maintenance
	DBMaintenance(ctx context.Context) error
	// RandomMessages asks the backend to emit synthetic test messages
	RandomMessages(ctx context.Context, count, rounds, delay int) error
	// Shutdown asks the backend to shut down
	Shutdown(ctx context.Context) error
}

// ISettingsRepository persists panel preferences by category and key
type ISettingsRepository interface {
	Get(ctx context.Context, category, key string) (string, bool, error)
	Set(ctx context.Context, category, key, value string) error
	All(ctx context.Context) ([]models.Setting, error)
}
