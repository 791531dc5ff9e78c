package agent

import "github.com/hupe1980/rlmesh/core"

// StepEvent describes a finished step for observers.
type StepEvent struct {
	Invocation core.Invocation
	Step       core.Step
	// Total is the tree-wide usage right after the step was charged.
	Total core.Usage
}

// Observer receives live notifications from the orchestrator, e.g. for
// terminal rendering. Callbacks arrive from concurrent branches; implementations
// must be safe for concurrent use and should return quickly.
type Observer interface {
	OnStart(inv core.Invocation)
	OnStep(ev StepEvent)
	OnQuery(parent core.Invocation, prompt string)
	OnFinal(inv core.Invocation, value any, total core.Usage)
	OnEnd(inv core.Invocation, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) OnStart(core.Invocation)                  {}
func (NopObserver) OnStep(StepEvent)                         {}
func (NopObserver) OnQuery(core.Invocation, string)          {}
func (NopObserver) OnFinal(core.Invocation, any, core.Usage) {}
func (NopObserver) OnEnd(core.Invocation, error)             {}
