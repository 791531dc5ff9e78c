package runlog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/rlmesh/core"
)

// ErrMalformedLog indicates a log that violates the tree invariants.
var ErrMalformedLog = errors.New("malformed execution log")

// Node is one invocation reconstructed from the log.
type Node struct {
	RunID       string
	ParentRunID string
	Depth       int
	Start       time.Time
	End         time.Time
	// Steps is the number of distinct step indices seen, the probe included.
	Steps    int
	Finished bool // agent_end seen
	Final    bool // final_result seen
	Result   any
	Usage    core.Usage
	Entries  []core.LogEntry
	Children []*Node
}

// Duration is the wall time between the first and last entry of the run.
func (n *Node) Duration() time.Duration { return n.End.Sub(n.Start) }

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(n *Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// BuildTree groups entries by run, links runs through parent_run_id and
// verifies that each run has exactly one agent_start, at most one agent_end,
// and that every child is exactly one level deeper than its parent. Runs whose parent is absent from
// the log are returned as roots. Roots and children are ordered by start time.
func BuildTree(entries []core.LogEntry) ([]*Node, error) {
	nodes := map[string]*Node{}
	order := []*Node{}
	starts := map[string]int{}
	steps := map[string]map[int]struct{}{}

	for _, e := range entries {
		if e.RunID == "" {
			continue
		}
		n, ok := nodes[e.RunID]
		if !ok {
			n = &Node{RunID: e.RunID, ParentRunID: e.Parent(), Depth: e.Depth, Start: e.Time, End: e.Time}
			nodes[e.RunID] = n
			order = append(order, n)
			steps[e.RunID] = map[int]struct{}{}
		}
		if e.Depth != n.Depth {
			return nil, fmt.Errorf("%w: run %s logged at depths %d and %d", ErrMalformedLog, e.RunID, n.Depth, e.Depth)
		}
		if e.Time.Before(n.Start) {
			n.Start = e.Time
		}
		if e.Time.After(n.End) {
			n.End = e.Time
		}
		if idx, ok := e.StepIndex(); ok {
			steps[e.RunID][idx] = struct{}{}
		}
		if e.Usage != nil {
			n.Usage = n.Usage.Add(*e.Usage)
		}
		switch e.EventType {
		case core.EventAgentStart:
			starts[e.RunID]++
			if starts[e.RunID] > 1 {
				return nil, fmt.Errorf("%w: run %s has more than one agent_start", ErrMalformedLog, e.RunID)
			}
		case core.EventAgentEnd:
			if n.Finished {
				return nil, fmt.Errorf("%w: run %s has more than one agent_end", ErrMalformedLog, e.RunID)
			}
			n.Finished = true
		case core.EventFinalResult:
			n.Final = true
			n.Result = e.Result
		}
		n.Entries = append(n.Entries, e)
	}

	var roots []*Node
	for _, n := range order {
		if starts[n.RunID] == 0 {
			return nil, fmt.Errorf("%w: run %s has no agent_start", ErrMalformedLog, n.RunID)
		}
		n.Steps = len(steps[n.RunID])
		parent, ok := nodes[n.ParentRunID]
		if n.ParentRunID == "" || !ok {
			roots = append(roots, n)
			continue
		}
		if n.Depth != parent.Depth+1 {
			return nil, fmt.Errorf("%w: run %s at depth %d has parent %s at depth %d",
				ErrMalformedLog, n.RunID, n.Depth, parent.RunID, parent.Depth)
		}
		parent.Children = append(parent.Children, n)
	}

	byStart := func(ns []*Node) {
		sort.SliceStable(ns, func(i, j int) bool { return ns[i].Start.Before(ns[j].Start) })
	}
	byStart(roots)
	for _, n := range order {
		byStart(n.Children)
	}
	return roots, nil
}
