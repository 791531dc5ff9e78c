package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*RunLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewLogger(&LoggerConfig{Level: level, Format: "json", Output: buf}), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestRunLogger_KeyValueArgs(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.WithComponent("orchestrator").WithRun("123-abc", 1).Info("step finished", "step", 2, "dangling")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "step finished", lines[0]["msg"])
	assert.Equal(t, "orchestrator", lines[0]["component"])
	assert.Equal(t, "123-abc", lines[0]["run_id"])
	assert.Equal(t, float64(1), lines[0]["depth"])
	assert.Equal(t, float64(2), lines[0]["step"])
	assert.Equal(t, "dangling", lines[0]["!BADKEY"])
}

func TestRunLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Debug("hidden")
	l.Info("hidden")
	l.LogExecution(1, 10, time.Millisecond, false)
	l.Warn("shown")
	l.LogExecution(2, 10, time.Millisecond, true)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.Equal(t, true, lines[1]["has_error"])
}

func TestRunLogger_WithDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	_ = l.WithContext("query", "q1")
	l.Info("plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "query")
	assert.NotContains(t, lines[0], "depth")
}

func TestRunLogger_LogGenerationFailure(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.LogGeneration("m", 10, 0, time.Second, errors.New("rate limited"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "rate limited", lines[0]["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelInfo, ParseLevel("bogus"))
	assert.Equal(t, "ERROR", ParseLevel("error").String())
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() { l.Error("x", "k", "v") })
}

func TestRunLogger_Performance(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	l.LogPerformance("run", 2*time.Second, map[string]any{"prompt_tokens": 10})
	l.WithContext("case", "c1").StartTimer("evaluation case")()

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "performance", lines[0]["msg"])
	assert.Equal(t, "run", lines[0]["operation"])
	assert.EqualValues(t, 10, lines[0]["prompt_tokens"])
	assert.Equal(t, "evaluation case", lines[1]["operation"])
	assert.Equal(t, "c1", lines[1]["case"])

	quiet, qbuf := newBufferLogger(LogLevelInfo)
	quiet.LogPerformance("run", time.Second, nil)
	assert.Zero(t, qbuf.Len())
}
