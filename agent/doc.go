// Package agent contains the recursive orchestrator: the step loop that turns
// a text input into a terminal value by alternating code generation and
// execution, and may spawn child invocations from inside generated code.
//
// The package focuses on three concerns:
//
//  1. The per-invocation step loop (Orchestrator.Invoke)
//  2. The recursive capability handed to generated code (Query / QueryAll)
//  3. The transcript policy (Truncate and the fixed turn formats)
//
// Design principles:
//   - No hidden global state: the tree-wide budget, journal, settings and
//     cancellation arrive through an explicit *core.RunContext
//   - Recursion is an explicit capability object, never a name injected into
//     the interpreter's scope; leaf invocations get one that refuses
//   - A budget breach anywhere cancels the whole tree through the shared
//     context; every other error stays local to its invocation
//   - Observability through two channels: the durable execution log
//     (package runlog) and ambient diagnostics (package logging), plus an
//     optional Observer for live rendering
//
// Execution Model:
//   - Invoke creates an isolated executor environment for the invocation
//   - A bootstrap probe describes the input; its output seeds the transcript
//   - Each step asks the generator for code, charges the usage, executes the
//     code and feeds the truncated output back as the next user turn
//   - A snippet that sets a terminal value ends the invocation
package agent
