package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/internal/testutil"
	"github.com/hupe1980/rlmesh/model"
	"github.com/hupe1980/rlmesh/runlog"
)

// childInput recovers the input of an invocation from its bootstrap turn.
func childInput(req model.Request) string {
	_, rest, _ := strings.Cut(req.Transcript[0].Content, "Context: ")
	return rest
}

func TestInvoke_ChildQueryBuildsTree(t *testing.T) {
	run := newTestRun(t, testSettings())
	gen := model.NewMockGenerator().
		Script("root-model", reply("finalquery summarise part one")).
		Script("sub-model", reply("final child-answer"))

	value, err := New(gen, testutil.NewScriptedExecutor()).Invoke(run.rc, "q", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "child-answer", value)

	roots, err := runlog.BuildTree(run.journal.Entries())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)

	child := roots[0].Children[0]
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, roots[0].RunID, child.ParentRunID)
	assert.True(t, child.Final)
	assert.True(t, child.Finished)

	var sub model.Request
	for _, r := range gen.Requests() {
		if r.Model == "sub-model" {
			sub = r
		}
	}
	assert.True(t, sub.Leaf)
	assert.Equal(t, 1, sub.Depth)
	assert.Equal(t, "summarise part one", childInput(sub))
}

func TestInvoke_QueryAllPreservesOrder(t *testing.T) {
	run := newTestRun(t, testSettings())
	gen := model.NewMockGeneratorFunc(func(req model.Request) model.MockReply {
		if req.Model == "sub-model" {
			in := childInput(req)
			// Finish in reverse order of submission.
			delay := map[string]string{"a": "30ms", "b": "15ms", "c": "0s"}[in]
			return reply("sleep "+delay, "final "+strings.ToUpper(in))
		}
		if len(req.Transcript) == 1 {
			return reply("queryall a;b;c")
		}
		return reply("final done")
	})

	value, err := New(gen, testutil.NewScriptedExecutor()).Invoke(run.rc, "q", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "done", value)

	root := run.rootID(t)
	outputs := run.journal.Filter(func(e core.LogEntry) bool {
		i, ok := e.StepIndex()
		return e.RunID == root && ok && i == 1
	})
	require.Len(t, outputs, 1)
	assert.Equal(t, "A,B,C|<nil>\n", *outputs[0].Output)

	roots, err := runlog.BuildTree(run.journal.Entries())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Len(t, roots[0].Children, 3)
}

func TestInvoke_ChildFailureStaysLocal(t *testing.T) {
	run := newTestRun(t, testSettings(func(s *core.Settings) { s.MaxSteps = 2 }))
	gen := model.NewMockGeneratorFunc(func(req model.Request) model.MockReply {
		if req.Model == "sub-model" {
			if childInput(req) == "b" {
				return model.MockReply{Content: "no code here"}
			}
			return reply("final A")
		}
		if len(req.Transcript) == 1 {
			return reply("queryall a;b")
		}
		return reply("final recovered")
	})

	value, err := New(gen, testutil.NewScriptedExecutor()).Invoke(run.rc, "q", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", value)

	root := run.rootID(t)
	outputs := run.journal.Filter(func(e core.LogEntry) bool {
		i, ok := e.StepIndex()
		return e.RunID == root && ok && i == 1
	})
	require.Len(t, outputs, 1)
	assert.True(t, strings.HasPrefix(*outputs[0].Output, "A,<nil>|query 1: run "))
	assert.Contains(t, *outputs[0].Output, core.ErrStepBudgetExhausted.Error())
	assert.NoError(t, run.rc.Cause())
}

func TestInvoke_ChildBreachCancelsTree(t *testing.T) {
	run := newTestRun(t, testSettings(func(s *core.Settings) { s.Limits.MaxCompletionTokens = 100 }))
	gen := model.NewMockGeneratorFunc(func(req model.Request) model.MockReply {
		if req.Model == "sub-model" {
			if childInput(req) == "expensive" {
				r := reply("final never")
				r.Usage = core.Usage{CompletionTokens: 500, TotalTokens: 500}
				return r
			}
			return reply("sleep 5s", "final slow")
		}
		if len(req.Transcript) == 1 {
			return reply("queryall slow;expensive")
		}
		return reply("final unreachable")
	})

	start := time.Now()
	_, err := New(gen, testutil.NewScriptedExecutor()).Invoke(run.rc, "q", 0, "")
	require.ErrorIs(t, err, core.ErrBudgetExceeded)
	assert.Less(t, time.Since(start), 4*time.Second, "slow sibling was not cancelled")

	// Every invocation still closed its log scope.
	roots, err := runlog.BuildTree(run.journal.Entries())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	roots[0].Walk(func(n *runlog.Node) {
		assert.True(t, n.Finished, "run %s has no agent_end", n.RunID)
		assert.False(t, n.Final && n.Depth == 0)
	})
}

func TestLeafCaller(t *testing.T) {
	_, err := leafCaller{}.Query(t.Context(), "x")
	assert.ErrorIs(t, err, core.ErrRecursionDepth)

	_, err = leafCaller{}.QueryAll(t.Context(), []string{"x"})
	assert.ErrorIs(t, err, core.ErrRecursionDepth)
}
