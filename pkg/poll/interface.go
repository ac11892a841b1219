package poll

import (
	"context"
	"errors"
)

var (
	ErrInvalidInterval = errors.New("poll interval must be positive")
	ErrInvalidTask     = errors.New("invalid poll task registration")
	ErrDuplicateTask   = errors.New("poll task already registered")
	ErrAlreadyStarted  = errors.New("poller already started")
)

// Poller defines the interface for periodic polling
type Poller interface {
	// Start launches one loop per registered task
	Start(ctx context.Context) error
	// Stop cancels every loop and waits for them to return
	Stop() error
	// Register adds a named task. Tasks registered after Start begin immediately.
	Register(name string, fetchFunc FetchFunc, config TaskConfig) (*Task, error)
	// Task looks up a registered task by name
	Task(name string) (*Task, bool)
	// Tasks returns all tasks in registration order
	Tasks() []*Task
}

// FetchFunc performs one poll: issue the request and apply the response.
// A returned error is handed to the task's FailureFunc.
type FetchFunc func(ctx context.Context) error

// FailureFunc is called with the error of a failed cycle.
type FailureFunc func(ctx context.Context, task string, err error)
