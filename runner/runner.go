package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/rlmesh/agent"
	"github.com/hupe1980/rlmesh/budget"
	"github.com/hupe1980/rlmesh/code"
	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
	"github.com/hupe1980/rlmesh/model"
	"github.com/hupe1980/rlmesh/runlog"
)

// ErrRunNotFound is returned by Cancel for unknown or finished runs.
var ErrRunNotFound = errors.New("run not found")

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Settings configure every invocation of a run.
	Settings core.Settings
	// LogDir and LogPrefix place the per-run execution log file.
	LogDir    string
	LogPrefix string
	// Journal replaces the per-run log file, e.g. with a MemoryJournal. The
	// caller owns it: the runner never closes a provided journal.
	Journal core.Journal
	// Timeout bounds the wall time of a run. Zero means no limit.
	Timeout time.Duration
	// MaxConcurrentRuns limits concurrent runs. Zero means unlimited.
	MaxConcurrentRuns int
	// Observer receives live orchestrator notifications.
	Observer agent.Observer
	// Logging services.
	Logger logging.Logger
}

// Result is the outcome of a run.
type Result struct {
	RunID string
	Value any
	// Usage is the tree-wide total, including any overshoot at a breach.
	Usage core.Usage
	// LogFile is the path of the execution log, empty when nothing was
	// written to a file.
	LogFile string
	// Error is the failure text, empty on success.
	Error string
}

// Runner coordinates top-level runs. Public methods are safe for concurrent
// use.
type Runner struct {
	orchestrator *agent.Orchestrator
	opts         Options
	sem          *semaphore.Weighted
	logger       logging.Logger

	activeRuns map[string]*core.RunContext
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(generator model.CodeGenerator, executor code.Executor, optFns ...func(o *Options)) *Runner {
	opts := Options{
		LogDir:    runlog.DefaultDir,
		LogPrefix: runlog.DefaultPrefix,
		Observer:  agent.NopObserver{},
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	r := &Runner{
		orchestrator: agent.New(generator, executor, func(o *agent.Options) {
			o.Logger = opts.Logger
			o.Observer = opts.Observer
		}),
		opts:       opts,
		logger:     opts.Logger,
		activeRuns: make(map[string]*core.RunContext),
	}

	if opts.MaxConcurrentRuns > 0 {
		r.sem = semaphore.NewWeighted(int64(opts.MaxConcurrentRuns))
	}

	return r
}

// Run executes query as the root invocation and blocks until the tree has
// finished. The returned error mirrors Result.Error; Result is populated on
// failure too, so partial usage and the log location are never lost.
func (r *Runner) Run(ctx context.Context, query string) (Result, error) {
	return r.run(ctx, query, nil)
}

// Start runs query in the background. The run id is available immediately
// for Cancel; the channel delivers exactly one Result and is then closed.
func (r *Runner) Start(ctx context.Context, query string) (string, <-chan Result) {
	started := make(chan string, 1)
	done := make(chan Result, 1)

	go func() {
		defer close(done)

		res, _ := r.run(ctx, query, started)
		done <- res
	}()

	return <-started, done
}

// Cancel aborts a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.RLock()
	rc, exists := r.activeRuns[runID]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rc.Abort(context.Canceled)

	return nil
}

// Active returns the ids of the runs in progress.
func (r *Runner) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.activeRuns))
	for id := range r.activeRuns {
		ids = append(ids, id)
	}

	return ids
}

func (r *Runner) run(ctx context.Context, query string, started chan<- string) (res Result, err error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	journal, owned := r.journal()
	tracker := budget.NewTracker(func(o *budget.Options) {
		o.Limits = r.opts.Settings.Limits
		o.Logger = r.logger
	})

	rc := core.NewRunContext(ctx, r.opts.Settings, tracker, journal, r.logger)
	defer rc.Release()

	res.RunID = rc.ID

	r.mu.Lock()
	r.activeRuns[rc.ID] = rc
	r.mu.Unlock()

	if started != nil {
		started <- rc.ID
	}

	defer func() {
		r.mu.Lock()
		delete(r.activeRuns, rc.ID)
		r.mu.Unlock()

		if owned {
			if cerr := journal.Close(); cerr != nil {
				r.logger.Warn("failed to close execution log", "run", rc.ID, "error", cerr.Error())
			}
		}

		res.Usage = tracker.Total()
		res.LogFile = journal.Path()

		if err != nil {
			res.Error = err.Error()
		}
	}()

	if r.sem != nil {
		if err = r.sem.Acquire(rc.Context, 1); err != nil {
			return res, fmt.Errorf("wait for run slot: %w", err)
		}
		defer r.sem.Release(1)
	}

	r.logger.Info("run started",
		"run", rc.ID,
		"primary_model", r.opts.Settings.PrimaryModel,
		"sub_model", r.opts.Settings.SubModel,
		"max_depth", r.opts.Settings.MaxDepth,
	)

	start := time.Now()
	res.Value, err = r.orchestrator.Invoke(rc, query, 0, "")

	dur := time.Since(start)
	total := tracker.Total()
	r.logger.Info("run finished",
		"run", rc.ID,
		"duration", dur.String(),
		"total_tokens", total.TotalTokens,
		"cost", total.CostValue(),
		"success", err == nil,
	)

	if rl, ok := r.logger.(*logging.RunLogger); ok {
		rl.LogPerformance("run", dur, map[string]any{
			"prompt_tokens":     total.PromptTokens,
			"completion_tokens": total.CompletionTokens,
			"cached_tokens":     total.CachedTokens,
			"reasoning_tokens":  total.ReasoningTokens,
		})
	}

	if err != nil {
		return res, fmt.Errorf("run %s: %w", rc.ID, err)
	}

	return res, nil
}

// journal returns the journal for a new run and whether the runner owns it.
func (r *Runner) journal() (core.Journal, bool) {
	if r.opts.Journal != nil {
		return r.opts.Journal, false
	}

	return runlog.NewJournal(func(o *runlog.JournalOptions) {
		o.Dir = r.opts.LogDir
		o.Prefix = r.opts.LogPrefix
	}), true
}
