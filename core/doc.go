// Package core provides the foundational domain types, interfaces and execution
// contexts shared by every rlmesh component. It defines:
//
//   - Invocations (one node of the recursion tree) and their lifecycle status
//   - Usage records and the Ledger contract used to enforce global ceilings
//   - Execution steps, transcript messages and structured log entries
//   - RunContext (tree-wide, owned by the driver) and InvocationContext
//     (per invocation, owned by the orchestrator frame that created it)
//   - Sentinel and typed errors used to classify termination paths
//
// The package keeps implementation concerns (budget accounting, journaling,
// model transport, code execution) out of scope, exposing small interfaces so
// the orchestrator never depends on concrete backends.
package core
