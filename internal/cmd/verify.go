package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dendrascience/versfs/history"
)

var errVerifyFailed = errors.New("history verification failed")

// NewVerifyCmd creates and returns the verify subcommand for the versfs CLI.
// It checks every history area under a backing root.
func NewVerifyCmd() *cobra.Command {
	var (
		root    string
		verbose bool
		repair  bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check history areas for missing or leftover snapshots",
		Long: `Check every history area under a backing root.

For each tracked file this verifies that the version counter is readable and
that every snapshot from 0 up to the counter exists. Leftovers from an
interrupted update (uncommitted snapshots, temporary files) and history areas
whose live file is gone are reported as warnings.

With --repair the leftovers are removed. Missing snapshots cannot be
recovered and are only reported. Exits non-zero when any area has errors.

Run it against an unmounted backing root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(root)
			if err != nil {
				return fmt.Errorf("backing root: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("backing root %s is not a directory", root)
			}
			return runVerify(cmd.OutOrStdout(), root, verbose, repair)
		},
	}

	cmd.Flags().StringVarP(&root, "path", "p", "", "Path to the backing root to verify (required)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVarP(&repair, "repair", "r", false, "Remove leftovers from interrupted updates")

	cmd.MarkFlagRequired("path")

	return cmd
}

func runVerify(w io.Writer, root string, verbose, repair bool) error {
	if verbose {
		fmt.Fprintf(w, "Verifying history under %s\n", root)
	}

	var areas, failed, warned, repaired int
	err := history.WalkAreas(root, func(live string) error {
		areas++
		if verbose {
			fmt.Fprintf(w, "Checking %s\n", live)
		}

		r, err := history.CheckArea(live)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", live, err)
			failed++
			return nil
		}

		errs, warns := r.Errors(), r.Warnings()
		for _, e := range errs {
			fmt.Fprintf(w, "  ERROR %s: %s\n", live, e)
		}
		for _, e := range warns {
			fmt.Fprintf(w, "  WARN  %s: %s\n", live, e)
		}
		if len(errs) > 0 {
			failed++
		}
		if len(warns) > 0 {
			warned++
		}
		if len(errs) == 0 && len(warns) == 0 && verbose {
			fmt.Fprintf(w, "%s is consistent (version %d)\n", live, r.Counter)
		}

		if repair && len(warns) > 0 {
			if err := history.Repair(r); err != nil {
				fmt.Fprintf(w, "Failed to repair %s: %v\n", live, err)
			} else {
				fmt.Fprintf(w, "Repaired %s\n", live)
				repaired++
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", root, err)
	}

	fmt.Fprintf(w, "\nVerification complete:\n")
	fmt.Fprintf(w, "  History areas checked: %d\n", areas)
	fmt.Fprintf(w, "  With errors: %d\n", failed)
	fmt.Fprintf(w, "  With warnings: %d\n", warned)
	if repair {
		fmt.Fprintf(w, "  Repaired: %d\n", repaired)
	}

	if failed > 0 {
		return errVerifyFailed
	}
	return nil
}
