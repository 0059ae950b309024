package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dendrascience/versfs/history"
)

// NewStatsCmd creates and returns the stats subcommand for the versfs CLI.
// It summarises live files and the history kept for them.
func NewStatsCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "stats [ROOT]",
		Short: "Summarise live files and recorded history",
		Long: `Walk a backing root and report how many live files it holds, how many
of them have history, and how much space their snapshots take.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				root = args[0]
			}
			return runStats(cmd.OutOrStdout(), root)
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "./", "Backing root to summarise")

	return cmd
}

func runStats(w io.Writer, root string) error {
	t, err := history.Summarize(root)
	if err != nil {
		return fmt.Errorf("summarising %s: %w", root, err)
	}

	fmt.Fprintf(w, "Live files:     %s (%s)\n", humanize.Comma(int64(t.LiveFiles)), humanize.IBytes(uint64(t.LiveBytes)))
	fmt.Fprintf(w, "Tracked files:  %s\n", humanize.Comma(int64(t.TrackedFiles)))
	fmt.Fprintf(w, "Snapshots:      %s (%s)\n", humanize.Comma(int64(t.Snapshots)), humanize.IBytes(uint64(t.SnapshotBytes)))
	if t.TrackedFiles > 0 {
		fmt.Fprintf(w, "Per file:       %.1f versions on average\n", float64(t.Snapshots)/float64(t.TrackedFiles))
	}
	return nil
}
