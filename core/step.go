package core

import "time"

// Timestamps records the phases of one step. Absent phases stay nil.
type Timestamps struct {
	LLMCallStart   *time.Time `json:"llm_call_start,omitempty"`
	LLMCallEnd     *time.Time `json:"llm_call_end,omitempty"`
	ExecutionStart *time.Time `json:"execution_start,omitempty"`
	ExecutionEnd   *time.Time `json:"execution_end,omitempty"`
}

// Step is one entry of an invocation's execution history. Index 0 is the
// bootstrap probe; generated steps start at 1.
type Step struct {
	Index      int
	Code       string
	Output     *string // nil when no code could be executed
	HasError   bool
	Reasoning  string
	Usage      *Usage
	Timestamps Timestamps
}

// Executed reports whether the step reached the executor.
func (s Step) Executed() bool { return s.Output != nil }

// Time returns a pointer to t, for populating Timestamps.
func Time(t time.Time) *time.Time { return &t }
