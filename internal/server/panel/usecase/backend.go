package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alwanly/guang-panel/internal/models"
	"github.com/Alwanly/guang-panel/internal/server/panel/dto"
	"github.com/Alwanly/guang-panel/internal/server/panel/repository"
	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/Alwanly/guang-panel/pkg/msglog"
	"github.com/Alwanly/guang-panel/pkg/retry"
)

const (
	BeaconNotResponding = "Server is not responding"
	BeaconSuspended     = "Beacon is suspended"

	MaintenanceDone = "Database Maintenance performed without errors"
)

// CheckBeacon asks the backend whether it is alive and records the answer.
func (uc *UseCase) CheckBeacon(ctx context.Context) error {
	res, err := uc.Backend.Beacon(ctx)
	now := uc.Now()

	if uc.beaconDisabled() {
		// toggled off while the request was in flight
		uc.suspendBeacon()
		return nil
	}

	if err != nil {
		uc.Beacon.Set(models.BeaconStatus{Text: BeaconNotResponding, CheckedAt: now})
		return err
	}

	stamp := res.Timestamp.Format(msglog.TimeFormat)
	uc.Beacon.Set(models.BeaconStatus{
		Alive:     true,
		Text:      fmt.Sprintf("%s running on %s is alive at %s", res.Message, res.Hostname, stamp),
		Hostname:  res.Hostname,
		Timestamp: stamp,
		CheckedAt: now,
	})
	return nil
}

func (uc *UseCase) BeaconStatus() models.BeaconStatus {
	return uc.Beacon.Get()
}

func (uc *UseCase) beaconDisabled() bool {
	if uc.Poller == nil {
		return false
	}
	t, ok := uc.Poller.Task(TaskBeacon)
	return ok && !t.Enabled()
}

func (uc *UseCase) suspendBeacon() {
	uc.Beacon.Set(models.BeaconStatus{Suspended: true, Text: BeaconSuspended, CheckedAt: uc.Now()})
}

// FetchScanResults pulls the results recorded since the cursor. The cursor is
// the time the request was issued and only moves after a successful fetch.
func (uc *UseCase) FetchScanResults(ctx context.Context) error {
	issued := uc.Now()

	results, err := uc.Backend.PortRecent(ctx, uc.Board.Cursor())
	if err != nil {
		return err
	}

	added := uc.Board.Add(results)
	uc.Board.SetCursor(issued)

	if added > 0 {
		uc.Logger.Debug("scan results received",
			logger.Int("added", added),
			logger.Int64("total", uc.Board.Total()),
		)
	}
	return nil
}

func (uc *UseCase) ScanBoard() dto.ScanBoardResponse {
	return dto.ScanBoardResponse{
		Total:  uc.Board.Total(),
		Cursor: uc.Board.Cursor().Unix(),
		Ports:  uc.Board.Ports(),
	}
}

// DBMaintenance triggers the backend's database maintenance and reports the
// outcome in the message log.
func (uc *UseCase) DBMaintenance(ctx context.Context) error {
	logger.AddToContext(ctx, logger.String(logger.FieldOperation, "db_maintenance"))

	if err := uc.Backend.DBMaintenance(ctx); err != nil {
		uc.reportFailure(ctx, "Database maintenance failed", err)
		return err
	}
	uc.Messages.Post(msglog.Info, MaintenanceDone)
	return nil
}

// Shutdown asks the backend to shut down. confirm must be true.
func (uc *UseCase) Shutdown(ctx context.Context, confirm bool) error {
	if !confirm {
		return ErrNotConfirmed
	}

	if err := uc.Backend.Shutdown(ctx); err != nil {
		uc.reportFailure(ctx, "Failed to shut down the backend", err)
		return err
	}
	uc.Messages.Post(msglog.Warn, "Backend shutdown requested")
	uc.Logger.Warn("backend shutdown requested")
	return nil
}

// WaitForBackend probes the beacon with exponential backoff until the
// backend answers or the retries are used up. A well-formed refusal counts
// as an answer.
func (uc *UseCase) WaitForBackend(ctx context.Context) error {
	cfg := retry.Config{
		MaxRetries:     uc.Config.BackendMaxRetries,
		InitialBackoff: uc.Config.BackendInitialBackoff,
		MaxBackoff:     uc.Config.BackendMaxBackoff,
		Multiplier:     uc.Config.BackendBackoffMultiplier,
		Jitter:         true,
		OnRetry: func(attempt int, err error, next time.Duration) {
			uc.Logger.Warn("backend not reachable yet",
				logger.Int("attempt", attempt),
				logger.Duration("retry_in", next),
				logger.String(logger.FieldBackendURL, uc.Config.BackendURL),
				logger.Error(err),
			)
		},
	}

	return retry.WithExponentialBackoff(ctx, cfg, func(ctx context.Context) error {
		_, err := uc.Backend.Beacon(ctx)
		var envErr *repository.EnvelopeError
		if err == nil || errors.As(err, &envErr) {
			uc.Logger.Info("backend is reachable")
			return nil
		}
		return err
	})
}
