package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rlmesh/code"
	"github.com/hupe1980/rlmesh/core"
)

// childCaller is the recursive capability of a non-leaf invocation. Each call
// re-enters the orchestrator one level deeper, sharing the parent's
// RunContext (budget, journal, cancellation).
type childCaller struct {
	o      *Orchestrator
	rc     *core.RunContext
	parent core.Invocation
}

// Compile-time check that childCaller satisfies code.Caller.
var _ code.Caller = (*childCaller)(nil)

// Query runs one child invocation and returns its terminal value.
func (c *childCaller) Query(ctx context.Context, prompt string) (any, error) {
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	if cause := c.rc.Cause(); cause != nil {
		return nil, cause
	}
	c.o.opts.Observer.OnQuery(c.parent, prompt)
	return c.o.Invoke(c.rc, prompt, c.parent.Depth+1, c.parent.RunID)
}

// QueryAll runs one child invocation per prompt concurrently. Results keep
// prompt order. The first failure is returned; a failing child does not
// cancel its siblings, whose results are kept. Tree-wide aborts still reach
// every child through the shared RunContext.
func (c *childCaller) QueryAll(ctx context.Context, prompts []string) ([]any, error) {
	results := make([]any, len(prompts))

	var g errgroup.Group
	for i, p := range prompts {
		g.Go(func() error {
			v, err := c.Query(ctx, p)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// leafCaller is the capability of an invocation at maximum depth.
type leafCaller struct{}

// Compile-time check that leafCaller satisfies code.Caller.
var _ code.Caller = leafCaller{}

func (leafCaller) Query(context.Context, string) (any, error) {
	return nil, core.ErrRecursionDepth
}

func (leafCaller) QueryAll(context.Context, []string) ([]any, error) {
	return nil, core.ErrRecursionDepth
}
