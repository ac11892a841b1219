package usecase

import (
	"context"
	"fmt"

	"github.com/Alwanly/guang-panel/internal/models"
	"github.com/Alwanly/guang-panel/pkg/logger"
)

// Facility returns the named facility from the registry
func (uc *UseCase) Facility(name string) (models.Facility, error) {
	f, ok := uc.Registry.Lookup(name)
	if !ok {
		return models.Facility{}, fmt.Errorf("%w: %s", ErrUnknownFacility, name)
	}
	return f, nil
}

func (uc *UseCase) Facilities() []models.Facility {
	return uc.Registry.List()
}

// SpawnWorkers asks the backend to start amount workers of a facility and
// stores the count it reports back.
func (uc *UseCase) SpawnWorkers(ctx context.Context, name string, amount int) (models.Facility, error) {
	return uc.workerControl(ctx, "spawn", name, amount)
}

// StopWorkers asks the backend to stop amount workers of a facility.
func (uc *UseCase) StopWorkers(ctx context.Context, name string, amount int) (models.Facility, error) {
	return uc.workerControl(ctx, "stop", name, amount)
}

func (uc *UseCase) workerControl(ctx context.Context, op, name string, amount int) (models.Facility, error) {
	logger.AddToContext(ctx,
		logger.String(logger.FieldFacility, name),
		logger.Int("amount", amount),
	)

	f, err := uc.Facility(name)
	if err != nil {
		return models.Facility{}, err
	}
	if amount < 0 {
		return f, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	call := uc.Backend.SpawnWorkers
	if op == "stop" {
		call = uc.Backend.StopWorkers
	}

	count, err := call(ctx, f.BackendID, amount)
	if err != nil {
		uc.reportFailure(ctx, fmt.Sprintf("Failed to %s %s workers", op, name), err)
		return f, err
	}

	f, _ = uc.Registry.SetCount(name, count)
	uc.Logger.WithFacility(name).Info("worker count changed",
		logger.String(logger.FieldOperation, op),
		logger.Int("count", count),
	)
	return f, nil
}

// RefreshWorkerCounts updates every facility whose count the backend reported.
func (uc *UseCase) RefreshWorkerCounts(ctx context.Context) error {
	counts, err := uc.Backend.WorkerCount(ctx)
	if err != nil {
		return err
	}
	updated := uc.Registry.ApplyCounts(counts)
	uc.Logger.Debug("worker counts refreshed", logger.Int("updated", len(updated)))
	return nil
}
