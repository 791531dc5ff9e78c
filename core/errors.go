package core

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel errors for classifying termination paths. Use errors.Is.
var (
	// ErrNoCodeExtracted indicates the model answered without a code block.
	ErrNoCodeExtracted = errors.New("no code extracted from model response")

	// ErrStepBudgetExhausted indicates an invocation used all its steps
	// without producing a terminal result.
	ErrStepBudgetExhausted = errors.New("step budget exhausted before a final result was set")

	// ErrRecursionDepth is returned to generated code that tries to recurse
	// from a leaf invocation.
	ErrRecursionDepth = errors.New("maximum depth reached: solve this task on your own without calling rlm.Query")

	// ErrBudgetExceeded indicates a global ceiling was crossed. It is fatal
	// to the entire invocation tree.
	ErrBudgetExceeded = errors.New("budget exceeded")
)

// BudgetKind names the ceiling that was crossed.
type BudgetKind string

const (
	BudgetCost             BudgetKind = "cost"
	BudgetCompletionTokens BudgetKind = "completion_tokens"
	BudgetPromptTokens     BudgetKind = "prompt_tokens"
)

// BudgetError describes a ceiling breach. It matches ErrBudgetExceeded.
type BudgetError struct {
	Kind  BudgetKind
	Used  float64
	Limit float64
}

// Error returns a human readable description of the breach.
func (e *BudgetError) Error() string {
	switch e.Kind {
	case BudgetCost:
		return fmt.Sprintf("Budget exceeded: $%.4f spent, limit is $%s", e.Used, strconv.FormatFloat(e.Limit, 'f', -1, 64))
	case BudgetCompletionTokens:
		return fmt.Sprintf("Completion token budget exceeded: %s tokens used, limit is %s",
			groupDigits(int64(e.Used)), groupDigits(int64(e.Limit)))
	case BudgetPromptTokens:
		return fmt.Sprintf("Prompt token budget exceeded: %s tokens used, limit is %s",
			groupDigits(int64(e.Used)), groupDigits(int64(e.Limit)))
	default:
		return fmt.Sprintf("%s budget exceeded: %v used, limit is %v", e.Kind, e.Used, e.Limit)
	}
}

// Is reports whether target is ErrBudgetExceeded.
func (e *BudgetError) Is(target error) bool { return target == ErrBudgetExceeded }

// groupDigits formats n with comma thousands separators.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}
