package agent

import (
	"fmt"
	"time"

	"github.com/hupe1980/rlmesh/code"
	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
	"github.com/hupe1980/rlmesh/model"
	"github.com/hupe1980/rlmesh/runlog"
)

// metricsLogger is implemented by loggers that record per-step metrics.
type metricsLogger interface {
	LogGeneration(model string, promptTokens, completionTokens int64, dur time.Duration, err error)
	LogExecution(step int, outputLen int, dur time.Duration, hasError bool)
}

// stepLoop is the generate/charge/execute cycle of one invocation.
//
// Termination controls:
//   - a terminal value set by a snippet ends the loop successfully
//   - the step limiter bounds the number of generation attempts
//   - a budget breach or tree cancellation unwinds immediately
type stepLoop struct {
	o       *Orchestrator
	ic      *core.InvocationContext
	env     code.Environment
	rec     *runlog.Recorder
	logger  logging.Logger
	limiter *core.StepLimiter
}

func (l *stepLoop) run() (any, error) {
	for {
		index, err := l.limiter.Next()
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", l.ic.Invocation.RunID, err)
		}

		value, done, err := l.step(index)
		if err != nil || done {
			return value, err
		}
	}
}

// step executes one iteration. done is true once a terminal value exists.
func (l *stepLoop) step(index int) (any, bool, error) {
	ic := l.ic

	// A breach elsewhere in the tree stops this branch before it spends more.
	if cause := ic.Cause(); cause != nil {
		return nil, false, cause
	}
	if err := ic.Ledger.Check(); err != nil {
		return nil, false, err
	}

	llmStart := time.Now()
	resp, err := l.o.generator.Generate(ic.Context, model.Request{
		Transcript: ic.Transcript(),
		Model:      ic.Invocation.Model,
		Leaf:       ic.IsLeaf(),
		Depth:      ic.Invocation.Depth,
	})
	llmEnd := time.Now()

	if ml, ok := l.logger.(metricsLogger); ok {
		ml.LogGeneration(ic.Invocation.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, llmEnd.Sub(llmStart), err)
	}

	if err != nil {
		if cause := ic.Cause(); cause != nil {
			return nil, false, cause
		}
		return nil, false, fmt.Errorf("generate step %d: %w", index, err)
	}

	ic.Append(resp.Message)

	usage := resp.Usage.Clone()
	step := core.Step{
		Index:     index,
		Code:      resp.Code,
		Reasoning: resp.Message.Reasoning,
		Usage:     &usage,
		Timestamps: core.Timestamps{
			LLMCallStart: core.Time(llmStart),
			LLMCallEnd:   core.Time(llmEnd),
		},
	}

	total, err := ic.Ledger.Charge(usage)
	if err != nil {
		l.rec.Step(step)
		l.notify(step, total)
		ic.Abort(err)
		return nil, false, err
	}

	if !resp.HasCode() {
		l.logger.Debug("no code extracted", "step", index, "error", core.ErrNoCodeExtracted.Error())
		l.rec.Step(step)
		l.notify(step, total)
		ic.Append(core.UserMessage(noCodeTurn))
		return nil, false, nil
	}

	execStart := time.Now()
	res, err := l.env.Execute(ic.Context, resp.Code)
	execEnd := time.Now()

	if err != nil {
		if cause := ic.Cause(); cause != nil {
			return nil, false, cause
		}
		return nil, false, fmt.Errorf("execute step %d: %w", index, err)
	}

	// A descendant may have breached while the snippet was running.
	if cause := ic.Cause(); cause != nil {
		return nil, false, cause
	}

	output := res.Output
	step.Output = &output
	step.HasError = res.Faulted() || hasErrorMarker(output)
	step.Timestamps.ExecutionStart = core.Time(execStart)
	step.Timestamps.ExecutionEnd = core.Time(execEnd)

	if ml, ok := l.logger.(metricsLogger); ok {
		ml.LogExecution(index, len(output), execEnd.Sub(execStart), step.HasError)
	}

	l.rec.Step(step)
	total = ic.Ledger.Total()
	l.notify(step, total)

	if res.Final != nil {
		l.rec.FinalResult(res.Final.Value)
		l.o.opts.Observer.OnFinal(ic.Invocation, res.Final.Value, total)
		return res.Final.Value, true, nil
	}

	ic.Append(core.UserMessage(outputTurn(Truncate(output, ic.Settings.TruncateLen))))

	return nil, false, nil
}

func (l *stepLoop) notify(step core.Step, total core.Usage) {
	l.o.opts.Observer.OnStep(StepEvent{Invocation: l.ic.Invocation, Step: step, Total: total})
}
