// Package code defines the execution environment that runs model generated
// snippets, and provides a Go interpreter backed implementation.
package code

import (
	"context"
	"errors"
	"time"
)

// ErrExecution classifies faults raised by a snippet (compile errors,
// runtime errors, panics). Faults are reported through Result.Fault and never
// returned from Execute; the sentinel lets callers wrap a fault as an error
// when they need one.
var ErrExecution = errors.New("snippet execution failed")

// ErrEnvironmentClosed is returned by Execute after Close.
var ErrEnvironmentClosed = errors.New("environment is closed")

// Caller is the recursive capability handed to an environment. Generated code
// reaches it through rlm.Query and rlm.QueryAll.
type Caller interface {
	// Query runs a child invocation on prompt and returns its terminal value.
	Query(ctx context.Context, prompt string) (any, error)
	// QueryAll runs one child invocation per prompt concurrently. Results are
	// returned in prompt order.
	QueryAll(ctx context.Context, prompts []string) ([]any, error)
}

// Executor creates isolated, persistent environments.
type Executor interface {
	// NewEnvironment creates an environment whose `context` variable holds
	// input. A nil caller denies recursion.
	NewEnvironment(ctx context.Context, input string, caller Caller) (Environment, error)
}

// Environment is the persistent state of one invocation. Bindings created by
// a snippet are visible to later snippets of the same environment.
type Environment interface {
	// Execute runs snippet. The error is reserved for infrastructure failure
	// such as cancellation; snippet faults are reported in Result.Fault.
	Execute(ctx context.Context, snippet string) (Result, error)
	Close() error
}

// Final is the terminal value set by a snippet.
type Final struct {
	Value any
}

// CallRecord describes one recursive call made by a snippet.
type CallRecord struct {
	Prompt   string
	Result   any
	Err      string
	Start    time.Time
	Duration time.Duration
}

// Result is the outcome of one snippet.
type Result struct {
	// Output is the captured stdout and stderr. A fault is appended as
	// "\nError: <fault>\n".
	Output string
	// Final is non-nil when the snippet set a terminal value.
	Final *Final
	// Fault describes the compile or runtime error, if any.
	Fault    string
	Calls    []CallRecord
	Duration time.Duration
}

// Faulted reports whether the snippet failed.
func (r Result) Faulted() bool { return r.Fault != "" }

// Err returns the fault wrapped in ErrExecution, or nil.
func (r Result) Err() error {
	if r.Fault == "" {
		return nil
	}
	return &ExecutionError{Fault: r.Fault}
}

// ExecutionError carries a snippet fault. It matches ErrExecution.
type ExecutionError struct {
	Fault string
}

func (e *ExecutionError) Error() string { return "execution error: " + e.Fault }

// Is reports whether target is ErrExecution.
func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

// PreviewRunes is how much of a long context the probe prints from each end.
const PreviewRunes = 500

// ProbeSnippet is executed before the first generation step. It reports the
// type, length and a preview of the context.
const ProbeSnippet = `fmt.Printf("Context type: %T\n", context)
fmt.Printf("Context length: %d\n", len([]rune(context)))
if r := []rune(context); len(r) > 500 {
	fmt.Println("First 500 characters of context:", string(r[:500]))
	fmt.Println("---")
	fmt.Println("Last 500 characters of context:", string(r[len(r)-500:]))
} else {
	fmt.Println("Context:", context)
}`
