package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rlmesh/config"
)

func newInitCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.FileName + " to the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(config.FileName); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := os.WriteFile(config.FileName, []byte(config.DefaultYAML()), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", config.FileName, err)
			}
			fmt.Fprintf(opts.Stdout, "wrote %s\n", config.FileName)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "overwrite an existing file")

	return cmd
}
