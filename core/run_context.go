package core

import (
	"context"
	"errors"

	"github.com/hupe1980/rlmesh/logging"
)

// RunContext carries the state shared by every invocation of one top-level
// run. It is built by the driver and passed by pointer into each
// invocation; nothing about a run lives in package-level state. It
// aggregates:
//   - The tree-wide cancellation Context (cancelled with a cause on the
//     first fatal error)
//   - The run identifier and immutable Settings
//   - The shared Ledger and Journal
//
// All fields are read-only after construction; the Ledger and Journal guard
// their own state.
type RunContext struct {
	Context  context.Context
	ID       string
	Settings Settings
	Ledger   Ledger
	Journal  Journal

	cancel context.CancelCauseFunc

	*runLogger
}

// NewRunContext derives a cancellable tree context from ctx.
func NewRunContext(
	ctx context.Context,
	settings Settings,
	ledger Ledger,
	journal Journal,
	logger logging.Logger,
) *RunContext {
	treeCtx, cancel := context.WithCancelCause(ctx)
	id := NewRunID()

	return &RunContext{
		Context:   treeCtx,
		ID:        id,
		Settings:  settings,
		Ledger:    ledger,
		Journal:   journal,
		cancel:    cancel,
		runLogger: newRunLogger(logger, "run", id),
	}
}

// Done returns a channel closed when the tree is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the tree context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// Abort cancels every outstanding branch of the tree, recording cause. Only
// the first cause is kept.
func (rc *RunContext) Abort(cause error) {
	if cause == nil {
		cause = context.Canceled
	}
	rc.LogWarn("aborting invocation tree", "cause", cause.Error())
	rc.cancel(cause)
}

// Cause returns why the tree was cancelled, or nil while it is still live.
func (rc *RunContext) Cause() error {
	if rc.Context.Err() == nil {
		return nil
	}
	return context.Cause(rc.Context)
}

// Fatal reports whether err must unwind the whole tree rather than only the
// current invocation.
func Fatal(err error) bool {
	return errors.Is(err, ErrBudgetExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Release frees the resources of the tree context. Call it once the run has
// finished.
func (rc *RunContext) Release() { rc.cancel(nil) }

// NewInvocationContext starts a child scope for one invocation of this run.
// The root invocation takes the run's own id, so a driver result and the
// root of the execution log share one identifier.
func (rc *RunContext) NewInvocationContext(depth int, parentRunID string) *InvocationContext {
	inv := NewInvocation(rc.Settings, depth, parentRunID)
	if parentRunID == "" {
		inv.RunID = rc.ID
	}
	return &InvocationContext{
		RunContext: rc,
		Invocation: inv,
	}
}
