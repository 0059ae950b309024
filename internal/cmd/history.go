package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dendrascience/versfs/history"
	"github.com/dendrascience/versfs/internal/pathmap"
	"github.com/dendrascience/versfs/util"
)

// NewHistoryCmd creates and returns the history subcommand for the versfs CLI.
// It lists the recorded versions of one file without modifying anything.
func NewHistoryCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "history FILE",
		Short: "List the recorded versions of a file",
		Long: `List the recorded versions of FILE, oldest first.

FILE is a path relative to the backing root, as seen through the mount.
Each version is shown with its size, modification time and content digest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.OutOrStdout(), root, args[0])
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "", "Backing root holding the file (required)")
	cmd.MarkFlagRequired("root")

	return cmd
}

func runHistory(w io.Writer, root, file string) error {
	paths, err := pathmap.New(root)
	if err != nil {
		return err
	}
	backing := paths.Translate(file)

	versions, err := history.ListVersions(backing)
	var ce *history.ConsistencyError
	if err != nil && !errors.As(err, &ce) {
		return err
	}
	if len(versions) == 0 && err == nil {
		fmt.Fprintf(w, "%s has no recorded history\n", file)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSIZE\tMODIFIED\tDIGEST")
	for _, v := range versions {
		digest, derr := util.GetFileDigest(v.Path)
		if derr != nil {
			digest = "unreadable: " + derr.Error()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			v.Version,
			humanize.IBytes(uint64(v.Size)),
			v.ModTime.Format("2006-01-02 15:04:05"),
			digest,
		)
	}
	if ferr := tw.Flush(); ferr != nil {
		return ferr
	}

	if ce != nil {
		fmt.Fprintf(w, "warning: %v\n", ce)
	}
	return err
}
