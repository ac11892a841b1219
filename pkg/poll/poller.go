package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// poller implements the Poller interface
type poller struct {
	logger *logger.CanonicalLogger

	mu      sync.Mutex
	tasks   map[string]*Task
	order   []string
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// NewPoller creates a new Poller instance
func NewPoller(log *logger.CanonicalLogger) Poller {
	return &poller{
		logger: log.Component("poller"),
		tasks:  make(map[string]*Task),
	}
}

// Start launches a loop for every registered task
func (p *poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	for _, name := range p.order {
		p.launch(p.tasks[name])
	}
	return nil
}

// Stop gracefully stops the poller
func (p *poller) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("stopping poller")
	return nil
}

// Register registers a fetch function with its polling configuration
func (p *poller) Register(name string, fetchFunc FetchFunc, config TaskConfig) (*Task, error) {
	if name == "" || fetchFunc == nil {
		return nil, ErrInvalidTask
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: task %s: %s", ErrInvalidInterval, name, config.Interval)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.tasks[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}

	t := &Task{
		name:      name,
		fetch:     fetchFunc,
		onFailure: config.OnFailure,
	}
	if t.onFailure == nil {
		t.onFailure = p.logFailure
	}
	t.interval.Store(int64(config.Interval))
	t.enabled.Store(config.Enabled)

	p.tasks[name] = t
	p.order = append(p.order, name)
	p.logger.Info("poll task registered",
		zap.String(logger.FieldPollName, name),
		zap.Duration(logger.FieldInterval, config.Interval),
		zap.Bool("enabled", config.Enabled),
	)

	if p.started {
		p.launch(t)
	}
	return t, nil
}

func (p *poller) Task(name string) (*Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[name]
	return t, ok
}

func (p *poller) Tasks() []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Task, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.tasks[name])
	}
	return out
}

// caller holds p.mu
func (p *poller) launch(t *Task) {
	p.wg.Add(1)
	go p.loop(p.ctx, t)
	p.logger.Info("started polling",
		zap.String(logger.FieldPollName, t.name),
		zap.Duration(logger.FieldInterval, t.Interval()),
	)
}

// loop runs cycle, wait, repeat until ctx is done. The wait happens no
// matter how the cycle ended, and also when the task is disabled.
func (p *poller) loop(ctx context.Context, t *Task) {
	defer p.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		if t.Enabled() {
			p.cycle(ctx, t)
		}

		timer := time.NewTimer(t.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *poller) cycle(ctx context.Context, t *Task) {
	cycleCtx := logger.WithCorrelationID(ctx, uuid.Must(uuid.NewV7()).String())

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("poll failure handler panicked",
				zap.String(logger.FieldPollName, t.name),
				zap.Any("panic", r),
			)
		}
	}()

	p.logger.Debug("polling",
		zap.String(logger.FieldPollName, t.name),
		zap.Uint64(logger.FieldCycle, t.cycles.Load()+1),
		zap.String(logger.FieldCorrelationID, logger.GetCorrelationID(cycleCtx)),
	)

	err := t.run(cycleCtx)
	t.record(err)
	if err != nil {
		if ctx.Err() != nil {
			// shutting down; not worth reporting
			return
		}
		t.onFailure(cycleCtx, t.name, err)
	}
}

func (p *poller) logFailure(ctx context.Context, task string, err error) {
	p.logger.Error("poll failed",
		zap.String(logger.FieldPollName, task),
		zap.String(logger.FieldCorrelationID, logger.GetCorrelationID(ctx)),
		zap.Error(err),
	)
}
