package agent

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/rlmesh/code"
	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
	"github.com/hupe1980/rlmesh/model"
	"github.com/hupe1980/rlmesh/runlog"
)

// ErrNilDependency is returned by Invoke when the orchestrator was built
// without a generator or executor, or the run has no ledger.
var ErrNilDependency = errors.New("orchestrator requires a generator, an executor and a ledger")

// Options configures an Orchestrator.
type Options struct {
	// Logger receives ambient diagnostics. A *logging.RunLogger is scoped per
	// invocation and additionally records generation and execution metrics.
	Logger logging.Logger
	// Observer receives live notifications. Defaults to NopObserver.
	Observer Observer
}

// Orchestrator drives the recursive step loop. It is stateless between
// invocations and safe for concurrent use: all run state lives in the
// *core.RunContext passed to Invoke.
type Orchestrator struct {
	generator model.CodeGenerator
	executor  code.Executor
	opts      Options
}

// New creates an orchestrator generating code with generator and running it
// with executor.
func New(generator model.CodeGenerator, executor code.Executor, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Logger:   logging.NoOpLogger{},
		Observer: NopObserver{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}

	return &Orchestrator{
		generator: generator,
		executor:  executor,
		opts:      opts,
	}
}

// Invoke runs one invocation on input at depth and returns its terminal
// value. parentRunID is empty for the root. Every exit path records
// agent_end.
//
// Errors:
//   - *core.BudgetError when a ceiling was crossed anywhere in the tree; the
//     tree is cancelled before Invoke returns
//   - core.ErrStepBudgetExhausted when no terminal value was produced in time
//   - the tree's cancellation cause when another branch aborted the run
//   - generator and executor infrastructure errors, wrapped
func (o *Orchestrator) Invoke(rc *core.RunContext, input string, depth int, parentRunID string) (any, error) {
	if o.generator == nil || o.executor == nil || rc.Ledger == nil {
		return nil, ErrNilDependency
	}

	ic := rc.NewInvocationContext(depth, parentRunID)
	logger := o.scopedLogger(ic.Invocation)
	rec := runlog.NewRecorder(rc.Journal, ic.Invocation, logger)

	rec.AgentStart()
	o.opts.Observer.OnStart(ic.Invocation)
	logger.Debug("invocation started", "model", ic.Invocation.Model, "leaf", ic.IsLeaf())

	value, err := o.invoke(ic, rec, logger, input)

	if err != nil {
		ic.SetStatus(core.StatusFailed)
		logger.Warn("invocation failed", "error", err.Error())
	} else {
		ic.SetStatus(core.StatusCompleted)
		logger.Debug("invocation completed")
	}

	rec.AgentEnd()
	o.opts.Observer.OnEnd(ic.Invocation, err)

	return value, err
}

func (o *Orchestrator) invoke(ic *core.InvocationContext, rec *runlog.Recorder, logger logging.Logger, input string) (any, error) {
	var caller code.Caller = leafCaller{}
	if !ic.IsLeaf() {
		caller = &childCaller{o: o, rc: ic.RunContext, parent: ic.Invocation}
	}

	env, err := o.executor.NewEnvironment(ic.Context, input, caller)
	if err != nil {
		return nil, fmt.Errorf("create environment for run %s: %w", ic.Invocation.RunID, err)
	}

	defer func() {
		if cerr := env.Close(); cerr != nil {
			logger.Warn("failed to close environment", "error", cerr.Error())
		}
	}()

	if err := o.bootstrap(ic, env, rec); err != nil {
		return nil, err
	}

	l := &stepLoop{
		o:       o,
		ic:      ic,
		env:     env,
		rec:     rec,
		logger:  logger,
		limiter: core.NewStepLimiter(ic.Settings.MaxSteps),
	}

	return l.run()
}

// bootstrap runs the probe as step 0 and seeds the transcript with its
// output.
func (o *Orchestrator) bootstrap(ic *core.InvocationContext, env code.Environment, rec *runlog.Recorder) error {
	start := time.Now()

	res, err := env.Execute(ic.Context, code.ProbeSnippet)
	if err != nil {
		return fmt.Errorf("run probe for %s: %w", ic.Invocation.RunID, err)
	}

	output := strings.TrimSpace(res.Output)
	step := core.Step{
		Index:    0,
		Code:     code.ProbeSnippet,
		Output:   &output,
		HasError: res.Faulted(),
		Usage:    &core.Usage{},
		Timestamps: core.Timestamps{
			ExecutionStart: core.Time(start),
			ExecutionEnd:   core.Time(start.Add(res.Duration)),
		},
	}

	rec.Step(step)
	o.opts.Observer.OnStep(StepEvent{Invocation: ic.Invocation, Step: step, Total: ic.Ledger.Total()})

	ic.Append(core.UserMessage(bootstrapTurn(ic.Settings.TruncateLen, code.ProbeSnippet, output)))

	return nil
}

// scopedLogger binds run id and depth when the logger supports it.
func (o *Orchestrator) scopedLogger(inv core.Invocation) logging.Logger {
	if rl, ok := o.opts.Logger.(*logging.RunLogger); ok {
		return rl.WithComponent("agent").WithRun(inv.RunID, inv.Depth)
	}
	return o.opts.Logger
}
