package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/internal/testutil"
	"github.com/hupe1980/rlmesh/model"
	"github.com/hupe1980/rlmesh/runlog"
)

func settings() core.Settings {
	return core.Settings{
		PrimaryModel: "root",
		SubModel:     "sub",
		MaxDepth:     1,
		MaxSteps:     3,
		TruncateLen:  50,
	}
}

func finalReply(v string) model.MockReply {
	return model.MockReply{
		Content: testutil.Fence("final " + v),
		Usage:   core.Usage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10, Cost: core.Float(0.001)},
	}
}

func TestRun_WritesLogFileAndReportsUsage(t *testing.T) {
	dir := t.TempDir()
	r := New(model.NewMockGenerator(finalReply("hello")), testutil.NewScriptedExecutor(), func(o *Options) {
		o.Settings = settings()
		o.LogDir = dir
		o.LogPrefix = "test"
	})

	res, err := r.Run(context.Background(), "greet")
	require.NoError(t, err)

	assert.Equal(t, "hello", res.Value)
	assert.Empty(t, res.Error)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, int64(10), res.Usage.TotalTokens)
	assert.InDelta(t, 0.001, res.Usage.CostValue(), 1e-9)
	require.NotEmpty(t, res.LogFile)
	assert.Contains(t, res.LogFile, "test_")

	entries, err := runlog.ReadFile(res.LogFile)
	require.NoError(t, err)
	assert.Equal(t, core.EventAgentStart, entries[0].EventType)
	assert.Equal(t, res.RunID, entries[0].RunID, "the result names the root of the log")
	assert.Equal(t, core.EventAgentEnd, entries[len(entries)-1].EventType)
	assert.Empty(t, r.Active())
}

func TestRun_FailureKeepsUsageAndError(t *testing.T) {
	s := settings()
	s.Limits.MaxCompletionTokens = 1
	journal := runlog.NewMemoryJournal()

	r := New(model.NewMockGenerator(finalReply("x")), testutil.NewScriptedExecutor(), func(o *Options) {
		o.Settings = s
		o.Journal = journal
	})

	res, err := r.Run(context.Background(), "q")
	require.ErrorIs(t, err, core.ErrBudgetExceeded)
	assert.Nil(t, res.Value)
	assert.Contains(t, res.Error, "Completion token budget exceeded")
	assert.Equal(t, int64(3), res.Usage.CompletionTokens)
	assert.Empty(t, res.LogFile)
	assert.NotEmpty(t, journal.Entries())
}

func TestRun_Timeout(t *testing.T) {
	gen := model.NewMockGenerator(model.MockReply{Content: testutil.Fence("sleep 5s", "final late")})
	r := New(gen, testutil.NewScriptedExecutor(), func(o *Options) {
		o.Settings = settings()
		o.Journal = runlog.NewMemoryJournal()
		o.Timeout = 50 * time.Millisecond
	})

	_, err := r.Run(context.Background(), "q")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartAndCancel(t *testing.T) {
	gen := model.NewMockGenerator(model.MockReply{Content: testutil.Fence("sleep 5s", "final late")})
	r := New(gen, testutil.NewScriptedExecutor(), func(o *Options) {
		o.Settings = settings()
		o.Journal = runlog.NewMemoryJournal()
		o.MaxConcurrentRuns = 1
	})

	id, done := r.Start(context.Background(), "q")
	require.NotEmpty(t, id)
	require.Eventually(t, func() bool { return len(r.Active()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Cancel(id))

	select {
	case res := <-done:
		assert.Equal(t, id, res.RunID)
		assert.Contains(t, res.Error, context.Canceled.Error())
	case <-time.After(3 * time.Second):
		t.Fatal("run was not cancelled")
	}

	assert.ErrorIs(t, r.Cancel(id), ErrRunNotFound)
}
