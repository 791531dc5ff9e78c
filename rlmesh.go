// Package rlmesh provides a high-level façade over the recursive orchestrator
// enabling a single call to answer a query with code-acting language models.
// Most applications interact with this package by:
//  1. Loading a config.Config (config.LoadDefault or config.Default)
//  2. Creating an RLMesh via New (optionally overriding the generator,
//     executor, observer or logger)
//  3. Calling Run, or the package-level Run helper for one-off queries
//
// The façade delegates orchestration to runner.Runner and wires the provider
// selected in the config, the yaegi-backed code.Interpreter and a file
// execution log. Tests and embedders can swap every piece.
package rlmesh

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/rlmesh/agent"
	"github.com/hupe1980/rlmesh/code"
	"github.com/hupe1980/rlmesh/config"
	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
	"github.com/hupe1980/rlmesh/model"
	"github.com/hupe1980/rlmesh/model/anthropic"
	"github.com/hupe1980/rlmesh/model/openai"
	"github.com/hupe1980/rlmesh/runner"
)

// Options configures the RLMesh instance.
type Options struct {
	// Config selects models, limits, provider and log location.
	Config config.Config

	// Generator overrides the provider built from Config.
	Generator model.CodeGenerator
	// Executor overrides the default code.Interpreter.
	Executor code.Executor
	// Journal overrides the per-run log file.
	Journal core.Journal

	// Observer receives live progress (e.g. ui.Renderer).
	Observer agent.Observer
	// Timeout bounds the wall time of each run. Zero means no limit.
	Timeout time.Duration

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// RLMesh is the high-level façade aggregating generator, executor and runner.
type RLMesh struct {
	opts   Options
	runner *runner.Runner
}

// New creates a new RLMesh instance. Unset dependencies are built from
// Options.Config.
func New(optFns ...func(o *Options)) (*RLMesh, error) {
	opts := Options{
		Config: config.Default(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	if opts.Generator == nil {
		gen, err := NewGenerator(opts.Config, opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.Generator = gen
	}

	if opts.Executor == nil {
		opts.Executor = code.NewInterpreter(func(o *code.InterpreterOptions) {
			o.Logger = opts.Logger
		})
	}

	r := runner.New(opts.Generator, opts.Executor, func(o *runner.Options) {
		o.Settings = opts.Config.Settings()
		o.LogDir = opts.Config.LogDir
		o.LogPrefix = opts.Config.LogPrefix
		o.Journal = opts.Journal
		o.Timeout = opts.Timeout
		o.Observer = opts.Observer
		o.Logger = opts.Logger
	})

	return &RLMesh{opts: opts, runner: r}, nil
}

// Run answers query and returns the root's terminal value together with the
// tree-wide usage and the execution log location.
func (m *RLMesh) Run(ctx context.Context, query string) (runner.Result, error) {
	return m.runner.Run(ctx, query)
}

// Runner exposes the underlying runner, e.g. for Start and Cancel.
func (m *RLMesh) Runner() *runner.Runner { return m.runner }

// Run is a one-shot helper creating an RLMesh from cfg.
func Run(ctx context.Context, query string, cfg config.Config) (runner.Result, error) {
	m, err := New(func(o *Options) { o.Config = cfg })
	if err != nil {
		return runner.Result{}, err
	}

	return m.Run(ctx, query)
}

// NewGenerator builds the code generator for cfg.Provider.
func NewGenerator(cfg config.Config, logger logging.Logger) (model.CodeGenerator, error) {
	switch cfg.Provider {
	case "", config.ProviderOpenAI:
		gen, err := openai.New(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}
			o.Logger = logger
		})
		if err != nil {
			return nil, err
		}
		return gen, nil
	case config.ProviderAnthropic:
		gen, err := anthropic.New(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Logger = logger
		})
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrInvalid, cfg.Provider)
	}
}
