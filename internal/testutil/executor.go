package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/rlmesh/code"
)

// Compile-time check that ScriptedExecutor satisfies code.Executor.
var _ code.Executor = (*ScriptedExecutor)(nil)

// ScriptedExecutor is a code.Executor that understands a tiny line based
// command language instead of Go source. It lets orchestrator tests express
// what a snippet does without depending on a real interpreter:
//
//	print <text>         append text and a newline to the output
//	final <text>         set the terminal value to text
//	fault <text>         report an execution fault
//	query <prompt>       call Caller.Query and print "<value>|<error>"
//	queryall a;b;c       call Caller.QueryAll and print the results joined by ","
//	finalquery <prompt>  call Caller.Query and set the terminal value to its result
//	sleep <duration>     sleep, honouring cancellation
//
// The bootstrap probe (code.ProbeSnippet) prints "Context: <input>".
// Unknown lines are echoed verbatim.
type ScriptedExecutor struct {
	mu   sync.Mutex
	envs []*ScriptedEnv
}

// NewScriptedExecutor creates an executor.
func NewScriptedExecutor() *ScriptedExecutor { return &ScriptedExecutor{} }

// NewEnvironment implements code.Executor.
func (s *ScriptedExecutor) NewEnvironment(_ context.Context, input string, caller code.Caller) (code.Environment, error) {
	env := &ScriptedEnv{Input: input, caller: caller}

	s.mu.Lock()
	s.envs = append(s.envs, env)
	s.mu.Unlock()

	return env, nil
}

// Environments returns every environment created so far.
func (s *ScriptedExecutor) Environments() []*ScriptedEnv {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*ScriptedEnv(nil), s.envs...)
}

// ScriptedEnv is the environment of one invocation.
type ScriptedEnv struct {
	Input string

	mu       sync.Mutex
	caller   code.Caller
	snippets []string
	closed   bool
}

// Snippets returns every snippet executed in this environment, probe included.
func (e *ScriptedEnv) Snippets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]string(nil), e.snippets...)
}

// Closed reports whether Close was called.
func (e *ScriptedEnv) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.closed
}

// Execute implements code.Environment.
func (e *ScriptedEnv) Execute(ctx context.Context, snippet string) (code.Result, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return code.Result{}, code.ErrEnvironmentClosed
	}
	e.snippets = append(e.snippets, snippet)
	caller := e.caller
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return code.Result{}, context.Cause(ctx)
	}

	start := time.Now()
	var (
		out strings.Builder
		res code.Result
	)
	if snippet == code.ProbeSnippet {
		fmt.Fprintf(&out, "Context: %s\n", e.Input)
		res.Output = out.String()
		res.Duration = time.Since(start)
		return res, nil
	}

	for _, line := range strings.Split(snippet, "\n") {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "print":
			out.WriteString(arg + "\n")
		case "final":
			res.Final = &code.Final{Value: arg}
		case "fault":
			res.Fault = arg
		case "query", "finalquery":
			v, err := query(ctx, caller, arg)
			res.Calls = append(res.Calls, code.CallRecord{Prompt: arg, Result: v})
			if cmd == "finalquery" && err == nil {
				res.Final = &code.Final{Value: v}
				continue
			}
			fmt.Fprintf(&out, "%v|%v\n", v, err)
		case "queryall":
			prompts := strings.Split(arg, ";")
			vs, err := queryAll(ctx, caller, prompts)
			parts := make([]string, len(vs))
			for i, v := range vs {
				parts[i] = fmt.Sprint(v)
			}
			fmt.Fprintf(&out, "%s|%v\n", strings.Join(parts, ","), err)
		case "sleep":
			d, _ := time.ParseDuration(arg)
			select {
			case <-time.After(d):
			case <-ctx.Done():
				res.Output = out.String()
				return res, context.Cause(ctx)
			}
		case "":
		default:
			out.WriteString(line + "\n")
		}
	}

	res.Output = out.String()
	if res.Fault != "" {
		res.Output += "\nError: " + res.Fault + "\n"
	}
	res.Duration = time.Since(start)
	return res, nil
}

// Close implements code.Environment.
func (e *ScriptedEnv) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	return nil
}

func query(ctx context.Context, caller code.Caller, prompt string) (any, error) {
	if caller == nil {
		return nil, fmt.Errorf("no caller")
	}
	return caller.Query(ctx, prompt)
}

func queryAll(ctx context.Context, caller code.Caller, prompts []string) ([]any, error) {
	if caller == nil {
		return nil, fmt.Errorf("no caller")
	}
	return caller.QueryAll(ctx, prompts)
}

// Fence wraps lines in a ```repl block, the way a model reply would.
func Fence(lines ...string) string {
	return "```repl\n" + strings.Join(lines, "\n") + "\n```"
}
