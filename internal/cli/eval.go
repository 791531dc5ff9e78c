package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rlmesh"
	"github.com/hupe1980/rlmesh/evaluation"
	"github.com/hupe1980/rlmesh/ui"
)

func newEvalCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <cases.yaml>",
		Short: "Run a benchmark suite and score the answers",
		Long: `Run every case of a YAML suite as its own top-level run and compare the
result with the expected answer. Each case is a mapping with name, query (or
query_file), expected, and optionally match (exact, contains, number) and
tolerance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := evaluation.LoadCases(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
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

			m, err := rlmesh.New(func(o *rlmesh.Options) {
				o.Config = cfg
				o.Generator = gen
				o.Logger = logger
			})
			if err != nil {
				return err
			}

			rep, err := evaluation.NewSuite(m.Runner(), func(o *evaluation.Options) {
				o.Logger = logger
			}).Run(cmd.Context(), cases)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "case\tpassed\tgot\texpected\tusage")
			for _, r := range rep.Results {
				got := r.Got
				if r.Error != "" {
					got = "error: " + r.Error
				}
				fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\n", r.Case, r.Passed, got, r.Expected, ui.Usage(r.Usage))
			}
			tw.Flush()

			fmt.Fprintf(opts.Stdout, "\naccuracy %.1f%% (%d/%d), total %s\n",
				100*rep.Accuracy(), rep.Passed, len(rep.Results), ui.Usage(rep.Usage))
			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "", "config file (default ./rlm_config.yaml if present)")

	return cmd
}
