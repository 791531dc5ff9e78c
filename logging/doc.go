// Package logging provides a minimal logging interface and adapters for rlmesh.
//
// The Logger interface defines the leveled logging methods (Debug, Info, Warn, Error)
// the orchestrator, executor and driver use for diagnostics. Arguments are slog
// style key/value pairs. This package includes:
//
//   - Logger interface for dependency injection
//   - RunLogger, a slog wrapper with run and component context
//   - SlogAdapter for plugging an existing *slog.Logger
//   - NoOpLogger for silent operation (testing, library use)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	r := runner.New(gen, exec, func(o *runner.Options) { o.Logger = logger })
//
// Diagnostics are separate from the execution log: the JSONL journal written by
// package runlog is the durable record of a run, this package only feeds
// humans and log collectors.
package logging
