package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an invocation.
type Status string

const (
	// StatusRunning marks an invocation whose step loop is active.
	StatusRunning Status = "running"
	// StatusCompleted marks an invocation that produced a terminal result.
	StatusCompleted Status = "completed"
	// StatusFailed marks an invocation that ended with an error.
	StatusFailed Status = "failed"
)

// Terminal reports whether no further steps may be emitted.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Invocation is one node of the recursion tree.
type Invocation struct {
	RunID       string `json:"run_id"`
	ParentRunID string `json:"parent_run_id,omitempty"`
	Depth       int    `json:"depth"`
	Model       string `json:"model"`
	MaxSteps    int    `json:"max_steps"`
	Leaf        bool   `json:"leaf"`
	Status      Status `json:"status"`
}

// NewInvocation creates a running invocation at depth. An empty parentRunID
// denotes the root.
func NewInvocation(s Settings, depth int, parentRunID string) Invocation {
	return Invocation{
		RunID:       NewRunID(),
		ParentRunID: parentRunID,
		Depth:       depth,
		Model:       s.ModelFor(depth),
		MaxSteps:    s.MaxSteps,
		Leaf:        s.IsLeaf(depth),
		Status:      StatusRunning,
	}
}

// IsRoot reports whether the invocation has no parent.
func (i Invocation) IsRoot() bool { return i.ParentRunID == "" }

// NewRunID generates a unique, time-sortable run identifier of the form
// "<unix-millis>-<8 hex chars>".
func NewRunID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

// ShortRunID returns the random suffix of a run id, which is what humans
// usually need to tell runs apart.
func ShortRunID(runID string) string {
	if i := strings.LastIndex(runID, "-"); i >= 0 {
		return runID[i+1:]
	}
	return runID
}
