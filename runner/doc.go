// Package runner implements the driver layer for rlmesh.
//
// The Runner owns everything a top-level run needs besides the orchestrator
// itself: it builds the tree-wide budget tracker, opens the execution log,
// assembles the *core.RunContext and invokes the root at depth 0. It bridges
// the public façade (package rlmesh, the CLI) and the recursive step loop in
// package agent.
//
// # Responsibilities (abridged)
//   - Run lifecycle (sync Run and async Start) and cancellation by run id
//   - Optional wall-clock timeout and bounded concurrency across runs
//   - Execution log creation and guaranteed Close on every exit path
//   - Final usage and log location reported in Result
//
// See runner.go for the operational implementation details.
package runner
