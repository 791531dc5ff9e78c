package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rlmesh"
	"github.com/hupe1980/rlmesh/agent"
	"github.com/hupe1980/rlmesh/config"
	"github.com/hupe1980/rlmesh/ui"
)

// ResultPrefix starts the machine readable result line printed by run.
const ResultPrefix = "JSON_RESULT:"

func newRunCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Answer a query with a recursive model run",
		Long: `Answer a query with a recursive model run. The query is taken from the
argument, from --file, or from stdin when the argument is "-".

Progress is rendered on stderr. The last stdout line is
JSON_RESULT:{"results": ...} for scripting.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().StringP("config", "c", "", "config file (default ./"+config.FileName+" if present)")
	cmd.Flags().StringP("file", "f", "", "read the query from a file")
	cmd.Flags().Bool("quiet", false, "do not render progress")
	cmd.Flags().Bool("show-code", false, "render every generated snippet")
	cmd.Flags().Duration("timeout", 0, "wall clock limit for the run (0 = none)")
	cmd.Flags().Int("max-depth", -1, "override max_depth")

	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *Options) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if d, _ := cmd.Flags().GetInt("max-depth"); d >= 0 {
		cfg.MaxDepth = d
	}

	query, err := readQuery(cmd, args, opts.Stdin)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, opts.Stderr)
	if err != nil {
		return err
	}

	gen, err := opts.NewGenerator(cfg, logger)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	var observer agent.Observer = agent.NopObserver{}
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		showCode, _ := cmd.Flags().GetBool("show-code")
		observer = ui.NewRenderer(opts.Stderr, func(o *ui.Options) { o.ShowCode = showCode })
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")

	m, err := rlmesh.New(func(o *rlmesh.Options) {
		o.Config = cfg
		o.Generator = gen
		o.Observer = observer
		o.Timeout = timeout
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	res, runErr := m.Run(cmd.Context(), query)

	fmt.Fprintf(opts.Stderr, "\nTotal usage: %s\n", ui.Usage(res.Usage))
	if res.LogFile != "" {
		fmt.Fprintf(opts.Stderr, "Execution log: %s\n", res.LogFile)
	}

	line, err := json.Marshal(map[string]any{"results": res.Value})
	if err != nil {
		line, _ = json.Marshal(map[string]any{"results": fmt.Sprint(res.Value)})
	}
	fmt.Fprintf(opts.Stdout, "%s%s\n", ResultPrefix, line)

	return runErr
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path == "" {
		return config.LoadDefault()
	}
	return config.Load(path)
}

func readQuery(cmd *cobra.Command, args []string, stdin io.Reader) (string, error) {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return "", err
	}

	var q string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read query: %w", err)
		}
		q = string(data)
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read query from stdin: %w", err)
		}
		q = string(data)
	case len(args) == 1:
		q = args[0]
	}

	if strings.TrimSpace(q) == "" {
		return "", fmt.Errorf("a query is required (argument, --file or - for stdin)")
	}
	return q, nil
}
