package core

import (
	"fmt"
	"sync"
)

// StepLimiter enforces the maximum number of generation attempts of one
// invocation.
type StepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a limiter allowing max steps.
// If max == 0, unlimited steps are allowed.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Next reserves the next step and returns its 1-based index. Once the budget
// is used up it returns ErrStepBudgetExhausted.
func (sl *StepLimiter) Next() (int, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max > 0 && sl.count >= sl.max {
		return sl.count, fmt.Errorf("%w: used %d of %d steps", ErrStepBudgetExhausted, sl.count, sl.max)
	}

	sl.count++

	return sl.count, nil
}

// Count returns the number of steps taken.
func (sl *StepLimiter) Count() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.count
}

// Remaining returns how many steps are left before hitting the limit.
func (sl *StepLimiter) Remaining() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max == 0 {
		return -1 // unlimited
	}

	return sl.max - sl.count
}
