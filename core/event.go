package core

import "time"

// EventType classifies a LogEntry.
type EventType string

const (
	EventAgentStart      EventType = "agent_start"
	EventCodeGenerated   EventType = "code_generated"
	EventExecutionResult EventType = "execution_result"
	EventFinalResult     EventType = "final_result"
	EventAgentEnd        EventType = "agent_end"
)

// LogEntry is one persisted record of the execution log. Every entry carries
// the identity of the invocation that produced it (RunID, ParentRunID, Depth)
// so the tree can be reconstructed offline. The remaining fields are
// populated depending on EventType; pointer fields distinguish "absent" from
// zero values.
type LogEntry struct {
	Time        time.Time   `json:"time"`
	RunID       string      `json:"run_id"`
	ParentRunID *string     `json:"parent_run_id"`
	Depth       int         `json:"depth"`
	EventType   EventType   `json:"event_type"`
	Step        *int        `json:"step,omitempty"`
	Code        *string     `json:"code,omitempty"`
	Output      *string     `json:"output,omitempty"`
	HasError    *bool       `json:"hasError,omitempty"`
	Reasoning   string      `json:"reasoning,omitempty"`
	Usage       *Usage      `json:"usage,omitempty"`
	Timestamps  *Timestamps `json:"timestamps,omitempty"`
	Result      any         `json:"result,omitempty"`
}

// NewLogEntry creates a bare entry for inv stamped with the current UTC time.
func NewLogEntry(inv Invocation, t EventType) LogEntry {
	e := LogEntry{
		Time:      time.Now().UTC(),
		RunID:     inv.RunID,
		Depth:     inv.Depth,
		EventType: t,
	}
	if inv.ParentRunID != "" {
		parent := inv.ParentRunID
		e.ParentRunID = &parent
	}
	return e
}

// NewStepEntry converts an execution step into its log entry. Steps that
// produced output are execution results; the rest only record generated code.
func NewStepEntry(inv Invocation, s Step) LogEntry {
	t := EventCodeGenerated
	if s.Executed() {
		t = EventExecutionResult
	}
	e := NewLogEntry(inv, t)
	idx, code := s.Index, s.Code
	e.Step = &idx
	e.Code = &code
	if s.Executed() {
		out, hasErr := *s.Output, s.HasError
		e.Output = &out
		e.HasError = &hasErr
	}
	e.Reasoning = s.Reasoning
	if s.Usage != nil {
		u := s.Usage.Clone()
		e.Usage = &u
	}
	ts := s.Timestamps
	e.Timestamps = &ts
	return e
}

// Parent returns the parent run id or "" for roots.
func (e LogEntry) Parent() string {
	if e.ParentRunID == nil {
		return ""
	}
	return *e.ParentRunID
}

// StepIndex returns the step index and whether the entry carries one.
func (e LogEntry) StepIndex() (int, bool) {
	if e.Step == nil {
		return 0, false
	}
	return *e.Step, true
}
