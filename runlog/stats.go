package runlog

import (
	"sort"
	"time"

	"github.com/hupe1980/rlmesh/core"
)

// Stats summarises a log file.
type Stats struct {
	Entries     int
	Runs        int
	Roots       int
	MaxDepth    int
	Steps       int // code_generated plus execution_result entries
	Errors      int // execution results flagged hasError
	TotalTokens int64
	TotalCost   float64
}

// ComputeStats aggregates entries. Usage is summed over every entry that
// carries one.
func ComputeStats(entries []core.LogEntry) Stats {
	var s Stats
	s.Entries = len(entries)
	runs := map[string]int{} // run id -> depth
	for _, e := range entries {
		if _, ok := runs[e.RunID]; !ok {
			runs[e.RunID] = e.Depth
		}
		if e.Depth > s.MaxDepth {
			s.MaxDepth = e.Depth
		}
		switch e.EventType {
		case core.EventCodeGenerated, core.EventExecutionResult:
			s.Steps++
		}
		if e.HasError != nil && *e.HasError {
			s.Errors++
		}
		if e.Usage != nil {
			s.TotalTokens += e.Usage.TotalTokens
			s.TotalCost += e.Usage.CostValue()
		}
	}
	s.Runs = len(runs)
	for _, d := range runs {
		if d == 0 {
			s.Roots++
		}
	}
	return s
}

// Span is the wall clock extent of one run.
type Span struct {
	RunID       string
	ParentRunID string
	Depth       int
	Start       time.Time
	End         time.Time
	Steps       int
}

// Duration returns End - Start.
func (s Span) Duration() time.Duration { return s.End.Sub(s.Start) }

// Timeline returns one span per run ordered by start time.
func Timeline(entries []core.LogEntry) []Span {
	idx := map[string]int{}
	steps := map[string]map[int]struct{}{}
	var spans []Span
	for _, e := range entries {
		if e.RunID == "" {
			continue
		}
		i, ok := idx[e.RunID]
		if !ok {
			i = len(spans)
			idx[e.RunID] = i
			spans = append(spans, Span{RunID: e.RunID, ParentRunID: e.Parent(), Depth: e.Depth, Start: e.Time, End: e.Time})
			steps[e.RunID] = map[int]struct{}{}
		}
		sp := &spans[i]
		if e.Time.Before(sp.Start) {
			sp.Start = e.Time
		}
		if e.Time.After(sp.End) {
			sp.End = e.Time
		}
		if n, ok := e.StepIndex(); ok {
			steps[e.RunID][n] = struct{}{}
		}
	}
	for i := range spans {
		spans[i].Steps = len(steps[spans[i].RunID])
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start.Before(spans[j].Start) })
	return spans
}

// Overlap is a pair of sibling runs that were active at the same time.
type Overlap struct {
	Depth    int
	A, B     string
	Duration time.Duration
}

// Overlaps lists sibling pairs (same depth and parent) whose spans
// intersect. It is the evidence that QueryAll branches ran in parallel.
func Overlaps(spans []Span) []Overlap {
	var out []Overlap
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if a.Depth != b.Depth || a.ParentRunID != b.ParentRunID {
				continue
			}
			start := maxTime(a.Start, b.Start)
			end := minTime(a.End, b.End)
			if start.Before(end) {
				out = append(out, Overlap{Depth: a.Depth, A: a.RunID, B: b.RunID, Duration: end.Sub(start)})
			}
		}
	}
	return out
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
