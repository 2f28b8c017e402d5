package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrStepLimit is returned once a StepLimiter has been exhausted.
var ErrStepLimit = errors.New("step limit exceeded")

// StepLimiter bounds the number of model round trips a single message may
// trigger. A max of 0 allows unlimited steps.
type StepLimiter struct {
	mu    sync.Mutex
	max   int
	count int
}

// NewStepLimiter creates a limiter allowing max steps.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Take consumes one step.
func (l *StepLimiter) Take() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max > 0 && l.count >= l.max {
		return fmt.Errorf("%w: %d", ErrStepLimit, l.max)
	}

	l.count++

	return nil
}

// Count returns the number of steps taken so far.
func (l *StepLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}
