package poll

import (
	"fmt"
	"math"
	"time"
)

// TaskConfig holds configuration for a single poll task
type TaskConfig struct {
	// Interval between the end of one cycle and the start of the next
	Interval time.Duration
	// Enabled controls whether cycles issue requests; a disabled task keeps rescheduling itself
	Enabled bool
	// OnFailure overrides the poller's default failure handler
	OnFailure FailureFunc
}

// DefaultConfig returns a TaskConfig with sensible defaults
func DefaultConfig() TaskConfig {
	return TaskConfig{
		Interval: 5 * time.Second,
		Enabled:  true,
	}
}

// maxIntervalMillis is the largest millisecond count a time.Duration can hold
const maxIntervalMillis = math.MaxInt64 / int64(time.Millisecond)

// IntervalFromMillis converts a millisecond count into a task interval,
// rejecting values that are not positive or would overflow.
func IntervalFromMillis(ms int64) (time.Duration, error) {
	if ms <= 0 || ms > maxIntervalMillis {
		return 0, fmt.Errorf("%w: %dms", ErrInvalidInterval, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
