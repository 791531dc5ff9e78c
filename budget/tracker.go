// Package budget accumulates usage across an invocation tree and enforces
// the global spend and token ceilings.
package budget

import (
	"sync"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
)

// Compile-time check that Tracker satisfies core.Ledger.
var _ core.Ledger = (*Tracker)(nil)

// Options configures a Tracker.
type Options struct {
	// Limits are the ceilings checked by Charge and Check. Zero disables all.
	Limits core.Limits
	Logger logging.Logger
}

// Tracker is the tree-wide usage accumulator. All methods are safe for
// concurrent use by sibling branches.
type Tracker struct {
	mu     sync.Mutex
	total  core.Usage
	breach *core.BudgetError
	limits core.Limits
	logger logging.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(optFns ...func(o *Options)) *Tracker {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Tracker{limits: opts.Limits, logger: opts.Logger}
}

// Limits returns the configured ceilings.
func (t *Tracker) Limits() core.Limits { return t.limits }

// Track adds u to the running total without checking the ceilings.
func (t *Tracker) Track(u core.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = t.total.Add(u)
}

// Total returns a snapshot of the accumulated usage. The result shares no
// memory with the tracker.
func (t *Tracker) Total() core.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total.Clone()
}

// Reset zeroes the totals and clears a latched breach.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = core.Usage{}
	t.breach = nil
}

// Charge records u and checks the ceilings in one critical section. The usage
// is always recorded, even when the tree is already over budget, because the
// call it describes has already been paid for. It returns the new total and,
// on the first breach or any later call, the latched *core.BudgetError.
func (t *Tracker) Charge(u core.Usage) (core.Usage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = t.total.Add(u)
	snapshot := t.total.Clone()

	if t.breach != nil {
		return snapshot, t.breach
	}

	if err := Exceeds(t.total, t.limits); err != nil {
		t.breach = err
		t.logger.Warn("budget ceiling crossed", "kind", string(err.Kind), "used", err.Used, "limit", err.Limit)
		return snapshot, err
	}

	return snapshot, nil
}

// Check returns the latched breach, if any.
func (t *Tracker) Check() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.breach == nil {
		return nil
	}
	return t.breach
}

// Exceeds compares total against limits. Cost is checked first, then
// completion tokens, then prompt tokens. Comparisons are strict and a limit
// <= 0 disables its ceiling. A nil cost never breaches.
func Exceeds(total core.Usage, limits core.Limits) *core.BudgetError {
	if limits.MaxCost > 0 && total.Cost != nil && *total.Cost > limits.MaxCost {
		return &core.BudgetError{Kind: core.BudgetCost, Used: *total.Cost, Limit: limits.MaxCost}
	}
	if limits.MaxCompletionTokens > 0 && total.CompletionTokens > limits.MaxCompletionTokens {
		return &core.BudgetError{
			Kind:  core.BudgetCompletionTokens,
			Used:  float64(total.CompletionTokens),
			Limit: float64(limits.MaxCompletionTokens),
		}
	}
	if limits.MaxPromptTokens > 0 && total.PromptTokens > limits.MaxPromptTokens {
		return &core.BudgetError{
			Kind:  core.BudgetPromptTokens,
			Used:  float64(total.PromptTokens),
			Limit: float64(limits.MaxPromptTokens),
		}
	}
	return nil
}
