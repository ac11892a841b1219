package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Alwanly/guang-panel/internal/server/panel/dto"
	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/Alwanly/guang-panel/pkg/poll"
)

const (
	keyActive   = "active"
	keyInterval = "interval"
)

// RegisterPollers registers the beacon, update and workers tasks using the
// stored settings, falling back to the configured defaults.
func (uc *UseCase) RegisterPollers(ctx context.Context) error {
	tasks := []struct {
		name      string
		fetch     poll.FetchFunc
		interval  time.Duration
		onFailure poll.FailureFunc
	}{
		{TaskBeacon, uc.CheckBeacon, uc.Config.BeaconInterval, uc.beaconFailed},
		{TaskUpdate, uc.FetchScanResults, uc.Config.UpdateInterval, uc.pollFailed},
		{TaskWorkers, uc.RefreshWorkerCounts, uc.Config.WorkersInterval, uc.pollFailed},
	}

	for _, def := range tasks {
		enabled := uc.loadBool(ctx, def.name, keyActive, true)
		interval := uc.loadMillis(ctx, def.name, keyInterval, def.interval)

		if _, err := uc.Poller.Register(def.name, def.fetch, poll.TaskConfig{
			Interval:  interval,
			Enabled:   enabled,
			OnFailure: def.onFailure,
		}); err != nil {
			return fmt.Errorf("failed to register %s poller: %w", def.name, err)
		}

		if def.name == TaskBeacon && !enabled {
			uc.suspendBeacon()
		}
	}
	return nil
}

func (uc *UseCase) Pollers() []dto.PollerResponse {
	tasks := uc.Poller.Tasks()
	out := make([]dto.PollerResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, pollerResponse(t.Status()))
	}
	return out
}

// UpdatePoller applies and persists a toggle and/or an interval change.
// The interval is validated before anything is changed.
func (uc *UseCase) UpdatePoller(ctx context.Context, name string, req dto.PollerUpdateRequest) (dto.PollerResponse, error) {
	t, err := uc.task(name)
	if err != nil {
		return dto.PollerResponse{}, err
	}
	logger.AddToContext(ctx, logger.String(logger.FieldPollName, name))

	if req.IntervalMs != nil {
		d, err := poll.IntervalFromMillis(*req.IntervalMs)
		if err != nil {
			return dto.PollerResponse{}, err
		}
		if err := t.SetInterval(d); err != nil {
			return dto.PollerResponse{}, err
		}
		if err := uc.saveSetting(ctx, name, keyInterval, strconv.FormatInt(*req.IntervalMs, 10)); err != nil {
			return dto.PollerResponse{}, err
		}
	}

	if req.Enabled != nil {
		t.SetEnabled(*req.Enabled)
		if name == TaskBeacon && !*req.Enabled {
			uc.suspendBeacon()
		}
		if err := uc.saveSetting(ctx, name, keyActive, strconv.FormatBool(*req.Enabled)); err != nil {
			return dto.PollerResponse{}, err
		}
	}

	uc.Logger.WithTask(name).Info("poll task updated",
		logger.Bool("enabled", t.Enabled()),
		logger.Duration(logger.FieldInterval, t.Interval()),
	)
	return pollerResponse(t.Status()), nil
}

func pollerResponse(s poll.TaskStatus) dto.PollerResponse {
	return dto.PollerResponse{
		Name:       s.Name,
		Enabled:    s.Enabled,
		IntervalMs: s.Interval.Milliseconds(),
		Cycles:     s.Cycles,
		Failures:   s.Failures,
		LastRun:    s.LastRun,
		LastError:  s.LastError,
	}
}

// pollFailed is the default failure handler of the panel's tasks.
func (uc *UseCase) pollFailed(ctx context.Context, task string, err error) {
	uc.reportFailure(ctx, fmt.Sprintf("Polling %s failed", task), err)
}

// beaconFailed only logs; the beacon state already says the server is down.
func (uc *UseCase) beaconFailed(ctx context.Context, task string, err error) {
	uc.Logger.WithTask(task).Warn("beacon failed",
		logger.String(logger.FieldCorrelationID, logger.GetCorrelationID(ctx)),
		logger.Error(err),
	)
}

func (uc *UseCase) loadBool(ctx context.Context, category, key string, def bool) bool {
	v, ok := uc.loadSetting(ctx, category, key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		uc.Logger.Warn("ignoring invalid setting",
			logger.String("setting", category+"."+key),
			logger.String("value", v),
		)
		return def
	}
	return b
}

func (uc *UseCase) loadMillis(ctx context.Context, category, key string, def time.Duration) time.Duration {
	v, ok := uc.loadSetting(ctx, category, key)
	if !ok {
		return def
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err == nil {
		var d time.Duration
		if d, err = poll.IntervalFromMillis(ms); err == nil {
			return d
		}
	}
	uc.Logger.Warn("ignoring invalid setting",
		logger.String("setting", category+"."+key),
		logger.String("value", v),
		logger.Error(err),
	)
	return def
}

func (uc *UseCase) loadSetting(ctx context.Context, category, key string) (string, bool) {
	if uc.Settings == nil {
		return "", false
	}
	v, ok, err := uc.Settings.Get(ctx, category, key)
	if err != nil {
		uc.Logger.WithError(err).Warn("failed to read setting", logger.String("setting", category+"."+key))
		return "", false
	}
	return v, ok
}
