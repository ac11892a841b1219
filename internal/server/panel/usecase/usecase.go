package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alwanly/guang-panel/internal/config"
	"github.com/Alwanly/guang-panel/internal/server/panel/repository"
	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/Alwanly/guang-panel/pkg/msglog"
	"github.com/Alwanly/guang-panel/pkg/poll"
	"github.com/Alwanly/guang-panel/pkg/pubsub"
)

var (
	ErrUnknownFacility = errors.New("unknown facility")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnknownTask     = errors.New("unknown poll task")
	ErrNotConfirmed    = errors.New("shutdown not confirmed")
)

// Poll task names, also used as settings categories.
const (
	TaskBeacon  = "beacon"
	TaskUpdate  = "update"
	TaskWorkers = "workers"
)

type UseCase struct {
	Backend  repository.IBackendClient
	Settings repository.ISettingsRepository
	Registry *repository.Registry
	Messages *msglog.Log
	Board    *repository.ScanBoard
	Beacon   *repository.BeaconState
	Poller   poll.Poller
	Pub      pubsub.Publisher
	Config   *config.PanelConfig
	Logger   *logger.CanonicalLogger

	// Now is the clock used for scan cursors, beacon timestamps and posted messages.
	Now func() time.Time
}

func NewUseCase(uc UseCase) *UseCase {
	if uc.Now == nil {
		uc.Now = time.Now
	}
	if uc.Logger == nil {
		uc.Logger = logger.NewNop()
	}
	return &uc
}

// reportFailure logs err and surfaces it in the message log.
func (uc *UseCase) reportFailure(ctx context.Context, what string, err error) {
	logger.AddToContext(ctx, logger.Error(err))
	uc.Logger.Error(what,
		logger.String(logger.FieldCorrelationID, logger.GetCorrelationID(ctx)),
		logger.Error(err),
	)
	uc.Messages.Postf(msglog.Error, "%s: %s", what, failureDetail(err))
}

// failureDetail prefers the backend's own message over the wrapped error text.
func failureDetail(err error) string {
	var envErr *repository.EnvelopeError
	if errors.As(err, &envErr) {
		return envErr.Message
	}
	return err.Error()
}

func (uc *UseCase) task(name string) (*poll.Task, error) {
	if uc.Poller == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	t, ok := uc.Poller.Task(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return t, nil
}
