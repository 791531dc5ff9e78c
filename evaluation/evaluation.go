// Package evaluation scores run results against expected answers, e.g. for
// benchmark suites of long-context questions.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
	"github.com/hupe1980/rlmesh/runner"
)

// Match selects how a value is compared with the expected answer.
type Match string

const (
	MatchExact    Match = "exact"    // trimmed string equality
	MatchContains Match = "contains" // expected is a substring, case-insensitive
	MatchNumber   Match = "number"   // numeric equality within Tolerance
)

// ErrUnknownMatch is returned for a case with an unsupported match mode.
var ErrUnknownMatch = errors.New("unknown match mode")

// Case is one benchmark question.
type Case struct {
	Name      string  `yaml:"name"`
	Query     string  `yaml:"query"`
	QueryFile string  `yaml:"query_file,omitempty"`
	Expected  string  `yaml:"expected"`
	Match     Match   `yaml:"match,omitempty"`
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// Invocation is the material an Evaluator judges.
type Invocation struct {
	Case  Case
	Value any
	Err   error
}

// Result is the verdict for one case.
type Result struct {
	Case     string
	Passed   bool
	Got      string
	Expected string
	Error    string
	Usage    core.Usage
	LogFile  string
	Duration time.Duration
}

// Evaluator judges one invocation.
type Evaluator interface {
	Evaluate(invocation Invocation) (*Result, error)
}

// Compile-time check that MatchEvaluator satisfies Evaluator.
var _ Evaluator = MatchEvaluator{}

// MatchEvaluator applies the case's Match mode (exact by default).
type MatchEvaluator struct{}

// Evaluate implements Evaluator.
func (MatchEvaluator) Evaluate(inv Invocation) (*Result, error) {
	res := &Result{
		Case:     inv.Case.Name,
		Got:      strings.TrimSpace(fmt.Sprint(inv.Value)),
		Expected: strings.TrimSpace(inv.Case.Expected),
	}
	if inv.Err != nil {
		res.Error = inv.Err.Error()
		return res, nil
	}
	if inv.Value == nil {
		res.Got = ""
	}

	switch inv.Case.Match {
	case "", MatchExact:
		res.Passed = res.Got == res.Expected
	case MatchContains:
		res.Passed = strings.Contains(strings.ToLower(res.Got), strings.ToLower(res.Expected))
	case MatchNumber:
		got, err1 := strconv.ParseFloat(res.Got, 64)
		want, err2 := strconv.ParseFloat(res.Expected, 64)
		res.Passed = err1 == nil && err2 == nil && abs(got-want) <= inv.Case.Tolerance
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatch, inv.Case.Match)
	}

	return res, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// LoadCases reads a YAML list of cases. Relative query_file paths are
// resolved against the working directory.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases %s: %w", path, err)
	}

	var cases []Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases %s: %w", path, err)
	}

	for i := range cases {
		c := &cases[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("case-%d", i+1)
		}
		if c.QueryFile != "" {
			q, err := os.ReadFile(c.QueryFile)
			if err != nil {
				return nil, fmt.Errorf("case %s: %w", c.Name, err)
			}
			c.Query = string(q)
		}
		if strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("case %s: query is empty", c.Name)
		}
	}

	return cases, nil
}

// Options configures a Suite.
type Options struct {
	Evaluator Evaluator
	Logger    logging.Logger
}

// Suite runs cases sequentially through a runner. Each case is a separate
// top-level run with its own budget and log file.
type Suite struct {
	runner *runner.Runner
	opts   Options
}

// NewSuite creates a suite.
func NewSuite(r *runner.Runner, optFns ...func(o *Options)) *Suite {
	opts := Options{
		Evaluator: MatchEvaluator{},
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Suite{runner: r, opts: opts}
}

// Report aggregates the results of a suite.
type Report struct {
	Results []Result
	Passed  int
	Usage   core.Usage
}

// Accuracy is the share of passed cases.
func (r Report) Accuracy() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return float64(r.Passed) / float64(len(r.Results))
}

// Run evaluates every case. Run failures count as failed cases; only
// evaluator errors and cancellation abort the suite.
func (s *Suite) Run(ctx context.Context, cases []Case) (Report, error) {
	var rep Report

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		verdict, err := s.runCase(ctx, c)
		if err != nil {
			return rep, err
		}

		rep.Results = append(rep.Results, *verdict)
		rep.Usage = rep.Usage.Add(verdict.Usage)
		if verdict.Passed {
			rep.Passed++
		}
	}

	return rep, nil
}

func (s *Suite) runCase(ctx context.Context, c Case) (*Result, error) {
	if rl, ok := s.opts.Logger.(*logging.RunLogger); ok {
		defer rl.WithContext("case", c.Name).StartTimer("evaluation case")()
	}

	start := time.Now()
	res, runErr := s.runner.Run(ctx, c.Query)

	verdict, err := s.opts.Evaluator.Evaluate(Invocation{Case: c, Value: res.Value, Err: runErr})
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", c.Name, err)
	}

	verdict.Usage = res.Usage
	verdict.LogFile = res.LogFile
	verdict.Duration = time.Since(start)

	s.opts.Logger.Info("case evaluated",
		"case", c.Name,
		"passed", verdict.Passed,
		"total_tokens", res.Usage.TotalTokens,
	)

	return verdict, nil
}
