package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/runlog"
)

func newLogCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect execution logs",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats <file.jsonl>",
			Short: "Summarise runs, depth, steps, tokens and cost",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				entries, err := runlog.ReadFile(args[0])
				if err != nil {
					return err
				}
				printStats(opts.Stdout, runlog.ComputeStats(entries))
				return nil
			},
		},
		&cobra.Command{
			Use:   "tree <file.jsonl>",
			Short: "Print the invocation tree and verify its invariants",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				entries, err := runlog.ReadFile(args[0])
				if err != nil {
					return err
				}
				roots, err := runlog.BuildTree(entries)
				if err != nil {
					return err
				}
				for _, r := range roots {
					printTree(opts.Stdout, r)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "timeline <file.jsonl>",
			Short: "Show run spans and which siblings overlapped",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				entries, err := runlog.ReadFile(args[0])
				if err != nil {
					return err
				}
				printTimeline(opts.Stdout, runlog.Timeline(entries))
				return nil
			},
		},
	)

	return cmd
}

func printStats(w io.Writer, s runlog.Stats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "entries\t%d\n", s.Entries)
	fmt.Fprintf(tw, "runs\t%d\n", s.Runs)
	fmt.Fprintf(tw, "roots\t%d\n", s.Roots)
	fmt.Fprintf(tw, "max depth\t%d\n", s.MaxDepth)
	fmt.Fprintf(tw, "steps\t%d\n", s.Steps)
	fmt.Fprintf(tw, "errors\t%d\n", s.Errors)
	fmt.Fprintf(tw, "total tokens\t%d\n", s.TotalTokens)
	fmt.Fprintf(tw, "total cost\t$%.4f\n", s.TotalCost)
	tw.Flush()
}

func printTree(w io.Writer, root *runlog.Node) {
	var walk func(n *runlog.Node, indent string)
	walk = func(n *runlog.Node, indent string) {
		status := "running"
		switch {
		case n.Final:
			status = fmt.Sprintf("final=%v", n.Result)
		case n.Finished:
			status = "failed"
		}
		fmt.Fprintf(w, "%s%s depth=%d steps=%d tokens=%d %s %s\n",
			indent, core.ShortRunID(n.RunID), n.Depth, n.Steps, n.Usage.TotalTokens, n.Duration(), status)
		for _, c := range n.Children {
			walk(c, indent+"  ")
		}
	}
	walk(root, "")
}

func printTimeline(w io.Writer, spans []runlog.Span) {
	if len(spans) == 0 {
		fmt.Fprintln(w, "no runs")
		return
	}

	origin := spans[0].Start
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "run\tdepth\tparent\tstart\tduration\tsteps")
	for _, s := range spans {
		parent := "-"
		if s.ParentRunID != "" {
			parent = core.ShortRunID(s.ParentRunID)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t+%s\t%s\t%d\n",
			core.ShortRunID(s.RunID), s.Depth, parent, s.Start.Sub(origin), s.Duration(), s.Steps)
	}
	tw.Flush()

	overlaps := runlog.Overlaps(spans)
	fmt.Fprintf(w, "\n%d overlapping sibling pairs\n", len(overlaps))
	for _, o := range overlaps {
		fmt.Fprintf(w, "  depth %d: %s and %s for %s\n", o.Depth, core.ShortRunID(o.A), core.ShortRunID(o.B), o.Duration)
	}
}
