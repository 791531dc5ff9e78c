package code

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
)

// DefaultImports are loaded into every environment before the first snippet.
var DefaultImports = []string{"fmt", "strings", "sort", "strconv", "sync"}

// Compile-time check that Interpreter satisfies Executor.
var _ Executor = (*Interpreter)(nil)

// InterpreterOptions configures an Interpreter.
type InterpreterOptions struct {
	// Imports are the packages available without an import statement.
	Imports []string
	Logger  logging.Logger
}

// Interpreter runs snippets as Go source with the yaegi interpreter. Each
// environment is an independent interpreter instance, so top level
// declarations persist across the snippets of one invocation and are never
// visible to another.
//
// Snippets see a package named rlm:
//
//	rlm.Context() string
//	rlm.Final(v any)
//	rlm.Go(fn func())
//	rlm.Query(prompt string) (any, error)
//	rlm.QueryAll(prompts []string) ([]any, error)
//
// and a variable named context holding the invocation input. rlm.Go runs fn
// on a goroutine that recovers panics into the snippet's fault; a panic on a
// goroutine started with the go statement cannot be contained and takes the
// host process down with it.
type Interpreter struct {
	opts InterpreterOptions
}

// NewInterpreter creates an Interpreter.
func NewInterpreter(optFns ...func(o *InterpreterOptions)) *Interpreter {
	opts := InterpreterOptions{
		Imports: DefaultImports,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Interpreter{opts: opts}
}

// NewEnvironment creates a fresh interpreter bound to input and caller.
func (in *Interpreter) NewEnvironment(ctx context.Context, input string, caller Caller) (Environment, error) {
	env := &environment{
		input:    input,
		caller:   caller,
		logger:   in.opts.Logger,
		out:      &syncBuffer{},
		imported: map[string]bool{},
		ctx:      ctx,
		spawned:  &sync.WaitGroup{},
	}

	i := interp.New(interp.Options{Stdout: env.out, Stderr: env.out})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(env.exports()); err != nil {
		return nil, fmt.Errorf("load rlm symbols: %w", err)
	}
	env.interp = i

	for _, pkg := range append(append([]string{}, in.opts.Imports...), "rlm") {
		if err := env.importSpec(ctx, fmt.Sprintf("%q", pkg)); err != nil {
			return nil, fmt.Errorf("import %s: %w", pkg, err)
		}
	}
	if _, err := i.EvalWithContext(ctx, "var context = rlm.Context()"); err != nil {
		return nil, fmt.Errorf("bind context: %w", err)
	}

	return env, nil
}

type environment struct {
	interp   *interp.Interpreter
	input    string
	caller   Caller
	logger   logging.Logger
	out      *syncBuffer
	imported map[string]bool

	// execMu serializes Execute; mu guards the per-snippet state below,
	// which host functions update from snippet goroutines.
	execMu   sync.Mutex
	mu       sync.Mutex
	ctx      context.Context
	final    *Final
	calls    []CallRecord
	spawned  *sync.WaitGroup
	panicked string
	closed   bool
}

func (e *environment) exports() interp.Exports {
	return interp.Exports{
		"rlm/rlm": map[string]reflect.Value{
			"Context":  reflect.ValueOf(e.contextText),
			"Final":    reflect.ValueOf(e.setFinal),
			"Go":       reflect.ValueOf(e.spawn),
			"Query":    reflect.ValueOf(e.query),
			"QueryAll": reflect.ValueOf(e.queryAll),
		},
	}
}

// Execute runs snippet and reports what it printed and whether it set a
// terminal value.
func (e *environment) Execute(ctx context.Context, snippet string) (Result, error) {
	e.execMu.Lock()
	defer e.execMu.Unlock()

	if err := e.begin(ctx); err != nil {
		return Result{}, err
	}

	start := time.Now()
	specs, body := splitImports(snippet)

	var fault string
	for _, spec := range specs {
		if err := e.importSpec(ctx, spec); err != nil {
			fault = describeFault(err)
			break
		}
	}
	if fault == "" {
		fault = e.eval(ctx, body)
	}
	e.wait(ctx)

	res := e.finish(start)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Partial output is still returned for logging.
		return res, fmt.Errorf("execute snippet: %w", context.Cause(ctx))
	}
	if fault != "" {
		res.Fault = fault
	}
	if res.Fault != "" {
		res.Output += "\nError: " + res.Fault + "\n"
	}
	return res, nil
}

// eval runs body chunk by chunk and stops at the first fault.
func (e *environment) eval(ctx context.Context, body string) string {
	for _, c := range splitChunks(body) {
		if _, err := e.interp.EvalWithContext(ctx, c.src); err != nil {
			return describeFault(err)
		}
	}
	return ""
}

// wait blocks until the goroutines started through rlm.Go have returned or
// ctx is done.
func (e *environment) wait(ctx context.Context) {
	e.mu.Lock()
	wg := e.spawned
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close releases the interpreter. Later Execute calls fail.
func (e *environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.caller = nil
	return nil
}

func (e *environment) begin(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEnvironmentClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("execute snippet: %w", context.Cause(ctx))
	}
	e.ctx = ctx
	e.final = nil
	e.calls = nil
	e.spawned = &sync.WaitGroup{}
	e.panicked = ""
	e.out.Drain()
	return nil
}

func (e *environment) finish(start time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Result{
		Output:   e.out.Drain(),
		Final:    e.final,
		Fault:    e.panicked,
		Calls:    e.calls,
		Duration: time.Since(start),
	}
}

func (e *environment) importSpec(ctx context.Context, spec string) error {
	if e.imported[spec] {
		return nil
	}
	if _, err := e.interp.EvalWithContext(ctx, "import "+spec); err != nil {
		return err
	}
	e.imported[spec] = true
	return nil
}

// describeFault renders an interpreter error as the text shown to the model.
func describeFault(err error) string {
	var p interp.Panic
	if errors.As(err, &p) {
		return fmt.Sprintf("panic: %v", p.Value)
	}
	return err.Error()
}

// describePanic renders a value recovered from a snippet goroutine.
func describePanic(r any) string {
	if err, ok := r.(error); ok {
		if f := describeFault(err); strings.HasPrefix(f, "panic: ") {
			return f
		}
		return "panic: " + err.Error()
	}
	return fmt.Sprintf("panic: %v", r)
}

// Host functions below are called from interpreted code, possibly from
// goroutines the snippet started. They must not panic.

func (e *environment) contextText() string { return e.input }

func (e *environment) setFinal(v any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.final = &Final{Value: v}
}

func (e *environment) current() (context.Context, Caller) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.ctx, e.caller
}

// spawn runs fn on a new goroutine. The first panic of any spawned goroutine
// becomes the snippet's fault.
func (e *environment) spawn(fn func()) {
	e.mu.Lock()
	wg := e.spawned
	e.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.recordPanic(r)
			}
		}()
		fn()
	}()
}

func (e *environment) recordPanic(r any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.panicked == "" {
		e.panicked = describePanic(r)
	}
}

// reportDenial prints a refused recursive call into the snippet output, so
// the refusal is visible even when the snippet discards the error.
func (e *environment) reportDenial(err error) {
	if errors.Is(err, core.ErrRecursionDepth) {
		fmt.Fprintf(e.out, "Error: %s\n", err)
	}
}

func (e *environment) record(recs ...CallRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, recs...)
}

func (e *environment) query(prompt string) (any, error) {
	ctx, caller := e.current()
	if caller == nil {
		e.reportDenial(core.ErrRecursionDepth)
		return nil, core.ErrRecursionDepth
	}

	start := time.Now()
	v, err := caller.Query(ctx, prompt)
	rec := CallRecord{Prompt: prompt, Result: v, Start: start, Duration: time.Since(start)}
	if err != nil {
		rec.Err = err.Error()
		e.logger.Debug("query failed", "error", err.Error())
		e.reportDenial(err)
	}
	e.record(rec)
	return v, err
}

func (e *environment) queryAll(prompts []string) ([]any, error) {
	ctx, caller := e.current()
	if caller == nil {
		e.reportDenial(core.ErrRecursionDepth)
		return nil, core.ErrRecursionDepth
	}

	start := time.Now()
	vs, err := caller.QueryAll(ctx, prompts)
	dur := time.Since(start)
	e.reportDenial(err)
	recs := make([]CallRecord, len(prompts))
	for i, p := range prompts {
		recs[i] = CallRecord{Prompt: p, Start: start, Duration: dur}
		if i < len(vs) {
			recs[i].Result = vs[i]
		}
		if err != nil {
			recs[i].Err = err.Error()
		}
	}
	e.record(recs...)
	return vs, err
}
