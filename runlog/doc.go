// Package runlog persists and analyses the execution log of a run.
//
// Every invocation of a run appends LogEntry records to one shared Journal.
// The default Journal writes newline-delimited JSON to
// <dir>/<prefix>_<timestamp>.jsonl; the file is created on the first write so
// runs that never start leave nothing behind. Recorder scopes writes to a
// single invocation and guarantees exactly one agent_end per invocation.
//
// The offline half of the package (ReadFile, BuildTree, ComputeStats,
// Timeline, Overlaps) reconstructs the invocation tree from a finished log.
package runlog
