package runlog

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
)

// Recorder writes the log entries of a single invocation. Logging is best
// effort: write failures go to the logger and never interrupt the run.
// A Recorder with a nil journal discards everything.
type Recorder struct {
	journal core.Journal
	inv     core.Invocation
	logger  logging.Logger
	endOnce sync.Once
}

// NewRecorder scopes journal to inv.
func NewRecorder(journal core.Journal, inv core.Invocation, logger logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Recorder{journal: journal, inv: inv, logger: logger}
}

// Invocation returns the invocation this recorder writes for.
func (r *Recorder) Invocation() core.Invocation { return r.inv }

// AgentStart records that the invocation began.
func (r *Recorder) AgentStart() {
	r.write(core.NewLogEntry(r.inv, core.EventAgentStart))
}

// Step records one step as execution_result or code_generated.
func (r *Recorder) Step(s core.Step) {
	r.write(core.NewStepEntry(r.inv, s))
}

// FinalResult records the terminal value.
func (r *Recorder) FinalResult(v any) {
	e := core.NewLogEntry(r.inv, core.EventFinalResult)
	e.Result = jsonSafe(v)
	r.write(e)
}

// jsonSafe returns v, or its %v rendering when v cannot be encoded.
func jsonSafe(v any) any {
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}

// AgentEnd records that the invocation finished. Only the first call writes.
func (r *Recorder) AgentEnd() {
	r.endOnce.Do(func() {
		r.write(core.NewLogEntry(r.inv, core.EventAgentEnd))
	})
}

func (r *Recorder) write(e core.LogEntry) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Write(e); err != nil {
		r.logger.Warn("failed to write log entry",
			"run_id", r.inv.RunID,
			"event_type", string(e.EventType),
			"error", err.Error(),
		)
	}
}
