package poll

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/Alwanly/guang-panel/pkg/logger"
)

// recorder collects the offsets (relative to start) at which a fetch ran.
type recorder struct {
	mu    sync.Mutex
	start time.Time
	calls []time.Duration
}

func newRecorder() *recorder {
	return &recorder{start: time.Now()}
}

func (r *recorder) mark() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, time.Since(r.start))
}

func (r *recorder) offsets() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.calls...)
}

func expectOffsets(t *testing.T, got []time.Duration, want ...time.Duration) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d cycles %v, got %d %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cycle %d: expected at %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPoller_FailureDoesNotStopCycle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := NewPoller(logger.NewNop())
		rec := newRecorder()

		var failures atomic.Int32
		cfg := TaskConfig{
			Interval: 2500 * time.Millisecond,
			Enabled:  true,
			OnFailure: func(ctx context.Context, task string, err error) {
				if task != "workers" {
					t.Errorf("unexpected task name %q", task)
				}
				failures.Add(1)
			},
		}
		if _, err := p.Register("workers", func(ctx context.Context) error {
			rec.mark()
			return errors.New("connection refused")
		}, cfg); err != nil {
			t.Fatalf("register: %v", err)
		}

		if err := p.Start(t.Context()); err != nil {
			t.Fatalf("start: %v", err)
		}
		time.Sleep(7600 * time.Millisecond)
		synctest.Wait()

		expectOffsets(t, rec.offsets(), 0, 2500*time.Millisecond, 5000*time.Millisecond, 7500*time.Millisecond)
		if failures.Load() != 4 {
			t.Fatalf("expected 4 failures reported, got %d", failures.Load())
		}
		_ = p.Stop()
	})
}

func TestPoller_DisabledTaskKeepsRescheduling(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := NewPoller(logger.NewNop())
		rec := newRecorder()

		task, err := p.Register("update", func(ctx context.Context) error {
			rec.mark()
			return nil
		}, TaskConfig{Interval: 2500 * time.Millisecond, Enabled: true})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		_ = p.Start(t.Context())

		time.Sleep(time.Second)
		task.SetEnabled(false)

		// ticks at 2.5s and 5s are skipped
		time.Sleep(5 * time.Second)
		synctest.Wait()
		expectOffsets(t, rec.offsets(), 0)

		task.SetEnabled(true)
		time.Sleep(1600 * time.Millisecond)
		synctest.Wait()
		expectOffsets(t, rec.offsets(), 0, 7500*time.Millisecond)

		if s := task.Status(); s.Cycles != 2 || s.Failures != 0 {
			t.Fatalf("unexpected status %+v", s)
		}
		_ = p.Stop()
	})
}

func TestPoller_IntervalChangeAppliesToNextWait(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := NewPoller(logger.NewNop())
		rec := newRecorder()

		task, _ := p.Register("beacon", func(ctx context.Context) error {
			rec.mark()
			return nil
		}, TaskConfig{Interval: 2500 * time.Millisecond, Enabled: true})
		_ = p.Start(t.Context())

		time.Sleep(time.Second)
		if err := task.SetInterval(time.Second); err != nil {
			t.Fatalf("set interval: %v", err)
		}

		time.Sleep(2600 * time.Millisecond)
		synctest.Wait()
		expectOffsets(t, rec.offsets(), 0, 2500*time.Millisecond, 3500*time.Millisecond)
		_ = p.Stop()
	})
}

func TestPoller_NoOverlappingCycles(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := NewPoller(logger.NewNop())
		rec := newRecorder()

		var inFlight, maxInFlight atomic.Int32
		_, _ = p.Register("slow", func(ctx context.Context) error {
			rec.mark()
			n := inFlight.Add(1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			defer inFlight.Add(-1)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
			}
			return nil
		}, TaskConfig{Interval: time.Second, Enabled: true})
		_ = p.Start(t.Context())

		time.Sleep(9 * time.Second)
		synctest.Wait()

		// the wait starts only after the slow cycle returns
		expectOffsets(t, rec.offsets(), 0, 4*time.Second, 8*time.Second)
		if maxInFlight.Load() != 1 {
			t.Fatalf("expected at most one request in flight, got %d", maxInFlight.Load())
		}
		_ = p.Stop()
	})
}

func TestPoller_PanicIsReportedAndLoopContinues(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := NewPoller(logger.NewNop())
		rec := newRecorder()

		var lastErr atomic.Value
		_, _ = p.Register("scan", func(ctx context.Context) error {
			rec.mark()
			panic("handler blew up")
		}, TaskConfig{
			Interval: time.Second,
			Enabled:  true,
			OnFailure: func(ctx context.Context, task string, err error) {
				lastErr.Store(err)
			},
		})
		_ = p.Start(t.Context())

		time.Sleep(1500 * time.Millisecond)
		synctest.Wait()

		expectOffsets(t, rec.offsets(), 0, time.Second)
		if err, _ := lastErr.Load().(error); err == nil {
			t.Fatalf("expected panic to be reported as an error")
		}
		_ = p.Stop()
	})
}

func TestPoller_RegisterAfterStart(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := NewPoller(logger.NewNop())
		_ = p.Start(t.Context())

		time.Sleep(time.Second)
		rec := newRecorder()
		_, err := p.Register("late", func(ctx context.Context) error {
			rec.mark()
			return nil
		}, TaskConfig{Interval: time.Second, Enabled: true})
		if err != nil {
			t.Fatalf("register: %v", err)
		}

		time.Sleep(1500 * time.Millisecond)
		synctest.Wait()
		expectOffsets(t, rec.offsets(), 0, time.Second)
		_ = p.Stop()
	})
}

func TestPoller_StopEndsLoops(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := NewPoller(logger.NewNop())
		var calls atomic.Int32
		_, _ = p.Register("beacon", func(ctx context.Context) error {
			calls.Add(1)
			return nil
		}, DefaultConfig())
		_ = p.Start(context.Background())

		synctest.Wait()
		if err := p.Stop(); err != nil {
			t.Fatalf("stop: %v", err)
		}
		time.Sleep(time.Minute)
		synctest.Wait()
		if calls.Load() != 1 {
			t.Fatalf("expected no cycles after stop, got %d", calls.Load())
		}
	})
}

func TestRegister_Validation(t *testing.T) {
	p := NewPoller(logger.NewNop())
	noop := func(ctx context.Context) error { return nil }

	if _, err := p.Register("zero", noop, TaskConfig{Interval: 0}); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if _, err := p.Register("negative", noop, TaskConfig{Interval: -time.Second}); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if _, err := p.Register("", noop, DefaultConfig()); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask, got %v", err)
	}
	if _, err := p.Register("nil", nil, DefaultConfig()); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask, got %v", err)
	}
	if _, err := p.Register("dup", noop, DefaultConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Register("dup", noop, DefaultConfig()); !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask, got %v", err)
	}
	if got := len(p.Tasks()); got != 1 {
		t.Fatalf("expected 1 task, got %d", got)
	}
}

func TestTask_SetIntervalRejectsNonPositive(t *testing.T) {
	p := NewPoller(logger.NewNop())
	task, _ := p.Register("t", func(ctx context.Context) error { return nil }, DefaultConfig())

	if err := task.SetInterval(0); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if task.Interval() != DefaultConfig().Interval {
		t.Fatalf("rejected interval must not be applied, got %v", task.Interval())
	}
}

func TestIntervalFromMillis(t *testing.T) {
	d, err := IntervalFromMillis(2500)
	if err != nil || d != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s, got %v, %v", d, err)
	}
	for _, ms := range []int64{0, -1, 18446744073710, math.MaxInt64} {
		if _, err := IntervalFromMillis(ms); !errors.Is(err, ErrInvalidInterval) {
			t.Errorf("IntervalFromMillis(%d): expected ErrInvalidInterval, got %v", ms, err)
		}
	}
}
