package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rlmesh/config"
	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
	"github.com/hupe1980/rlmesh/model"
)

type harness struct {
	stdout, stderr bytes.Buffer
	gen            *model.MockGenerator
	dir            string
}

func newHarness(t *testing.T, replies ...model.MockReply) *harness {
	t.Helper()

	h := &harness{gen: model.NewMockGenerator(replies...), dir: t.TempDir()}

	cfg := "max_depth: 0\nlog_dir: " + filepath.Join(h.dir, "logs") + "\nlog_prefix: cli\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, config.FileName), []byte(cfg), 0o600))

	return h
}

func (h *harness) exec(stdin string, args ...string) error {
	cmd := NewRootCommand(func(o *Options) {
		o.Stdin = strings.NewReader(stdin)
		o.Stdout = &h.stdout
		o.Stderr = &h.stderr
		o.NewGenerator = func(config.Config, logging.Logger) (model.CodeGenerator, error) { return h.gen, nil }
	})
	cmd.SetArgs(args)
	return cmd.Execute()
}

func (h *harness) configPath() string { return filepath.Join(h.dir, config.FileName) }

func (h *harness) logFile(t *testing.T) string {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(h.dir, "logs", "cli_*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	return files[0]
}

func TestRun_PrintsResultLineAndWritesLog(t *testing.T) {
	h := newHarness(t, model.MockReply{
		Content: "```repl\nrlm.Final(strings.ToUpper(context))\n```",
		Usage:   core.Usage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6},
	})

	require.NoError(t, h.exec("", "run", "--config", h.configPath(), "hello"))

	assert.Equal(t, `JSON_RESULT:{"results":"HELLO"}`+"\n", h.stdout.String())
	assert.Contains(t, h.stderr.String(), "Total usage: [6 tok")
	assert.Contains(t, h.stderr.String(), "Execution log:")
	assert.Contains(t, h.stderr.String(), "step 1")

	path := h.logFile(t)

	h.stdout.Reset()
	require.NoError(t, h.exec("", "log", "stats", path))
	assert.Contains(t, h.stdout.String(), "runs")
	assert.Contains(t, h.stdout.String(), "total tokens  6")

	h.stdout.Reset()
	require.NoError(t, h.exec("", "log", "tree", path))
	assert.Contains(t, h.stdout.String(), "final=HELLO")

	h.stdout.Reset()
	require.NoError(t, h.exec("", "log", "timeline", path))
	assert.Contains(t, h.stdout.String(), "0 overlapping sibling pairs")
}

func TestRun_ReadsQueryFromStdin(t *testing.T) {
	h := newHarness(t, model.MockReply{Content: "```repl\nrlm.Final(len(strings.Fields(context)))\n```"})

	require.NoError(t, h.exec("a b c d", "run", "--quiet", "--config", h.configPath(), "-"))
	assert.Equal(t, `JSON_RESULT:{"results":4}`+"\n", h.stdout.String())
	assert.NotContains(t, h.stderr.String(), "step 1")
}

func TestRun_FailureStillPrintsResult(t *testing.T) {
	h := newHarness(t, model.MockReply{
		Content: "```repl\nfmt.Println(1)\n```",
		Usage:   core.Usage{CompletionTokens: 60000, TotalTokens: 60000},
	})

	err := h.exec("", "run", "--quiet", "--config", h.configPath(), "q")
	require.ErrorIs(t, err, core.ErrBudgetExceeded)
	assert.Equal(t, `JSON_RESULT:{"results":null}`+"\n", h.stdout.String())
}

func TestRun_RequiresQuery(t *testing.T) {
	h := newHarness(t)

	err := h.exec("", "run", "--config", h.configPath())
	assert.ErrorContains(t, err, "a query is required")
}

func TestInit(t *testing.T) {
	h := newHarness(t)
	t.Chdir(t.TempDir())

	require.NoError(t, h.exec("", "init"))
	data, err := os.ReadFile(config.FileName)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultYAML(), string(data))

	assert.Error(t, h.exec("", "init"))
	assert.NoError(t, h.exec("", "init", "--force"))
}

func TestEval(t *testing.T) {
	h := newHarness(t,
		model.MockReply{Content: "```repl\nrlm.Final(6 * 7)\n```"},
		model.MockReply{Content: "```repl\nrlm.Final(\"nope\")\n```"},
	)

	cases := filepath.Join(h.dir, "cases.yaml")
	require.NoError(t, os.WriteFile(cases, []byte(
		"- name: answer\n  query: meaning of life\n  expected: \"42\"\n  match: number\n"+
			"- name: capital\n  query: capital of France\n  expected: paris\n  match: contains\n"), 0o600))

	require.NoError(t, h.exec("", "eval", "--config", h.configPath(), cases))
	assert.Contains(t, h.stdout.String(), "accuracy 50.0% (1/2)")
}
