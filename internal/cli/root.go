// Package cli implements the rlm command line interface.
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rlmesh"
	"github.com/hupe1980/rlmesh/config"
	"github.com/hupe1980/rlmesh/logging"
	"github.com/hupe1980/rlmesh/model"
)

// Options wires the commands to their environment. Tests replace the streams
// and the generator factory.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// NewGenerator builds the code generator for a run.
	NewGenerator func(cfg config.Config, logger logging.Logger) (model.CodeGenerator, error)
}

// NewRootCommand builds the rlm command tree.
func NewRootCommand(optFns ...func(o *Options)) *cobra.Command {
	opts := Options{
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		NewGenerator: rlmesh.NewGenerator,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	root := &cobra.Command{
		Use:   "rlm",
		Short: "Recursive code-acting language model runner",
		Long: `rlm answers a query by letting a language model write Go snippets
that inspect the input, call child models through rlm.Query and finally set a
result with rlm.Final. Every run is recorded in a JSONL execution log.`,
		SilenceUsage: true,
	}

	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	root.PersistentFlags().String("log-level", "warn", "diagnostic log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "diagnostic log format (text or json)")

	root.AddCommand(
		newRunCommand(&opts),
		newLogCommand(&opts),
		newEvalCommand(&opts),
		newInitCommand(&opts),
	)

	return root
}

// Execute runs the rlm command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func newLogger(cmd *cobra.Command, w io.Writer) (*logging.RunLogger, error) {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLevel(level),
		Format:    format,
		Output:    w,
		Component: "cli",
	}), nil
}
