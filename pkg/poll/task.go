package poll

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a named, self-rescheduling poll. Only its enabled flag and its
// interval can be changed once registered; both take effect on the next cycle.
type Task struct {
	name      string
	fetch     FetchFunc
	onFailure FailureFunc

	interval atomic.Int64
	enabled  atomic.Bool
	cycles   atomic.Uint64
	failures atomic.Uint64

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// TaskStatus is a point-in-time view of a task
type TaskStatus struct {
	Name      string        `json:"name"`
	Enabled   bool          `json:"enabled"`
	Interval  time.Duration `json:"interval"`
	Cycles    uint64        `json:"cycles"`
	Failures  uint64        `json:"failures"`
	LastRun   time.Time     `json:"last_run"`
	LastError string        `json:"last_error,omitempty"`
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) Enabled() bool {
	return t.enabled.Load()
}

// SetEnabled toggles the request step. The loop keeps running either way.
func (t *Task) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

func (t *Task) Interval() time.Duration {
	return time.Duration(t.interval.Load())
}

// SetInterval changes the wait used after the current cycle.
// A wait already in progress is not shortened or extended.
func (t *Task) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: task %s: %s", ErrInvalidInterval, t.name, d)
	}
	t.interval.Store(int64(d))
	return nil
}

func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := TaskStatus{
		Name:     t.name,
		Enabled:  t.Enabled(),
		Interval: t.Interval(),
		Cycles:   t.cycles.Load(),
		Failures: t.failures.Load(),
		LastRun:  t.lastRun,
	}
	if t.lastErr != nil {
		s.LastError = t.lastErr.Error()
	}
	return s
}

// run performs one request/handle step, turning a panic into an error.
func (t *Task) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll task %s panicked: %v", t.name, r)
		}
	}()
	return t.fetch(ctx)
}

func (t *Task) record(err error) {
	t.cycles.Add(1)
	if err != nil {
		t.failures.Add(1)
	}
	t.mu.Lock()
	t.lastRun = time.Now()
	t.lastErr = err
	t.mu.Unlock()
}
