package cmd

import (
	"github.com/dendrascience/versfs/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root cobra command for the versfs CLI.
// It sets up all subcommands, command groups, and basic configuration.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "versfs",
		Short: "versfs - A FUSE filesystem that keeps the history of every file",
		Long: `versfs mirrors a backing directory through a FUSE mount and records every
write, truncation, rename and delete of a regular file as a numbered snapshot.

Snapshots live in a hidden history area next to each file
(NAME__versions__/NAME,N) and can be read through the mount or listed with
the history command.

Use subcommands to perform different operations:
  - mount: Mount a backing directory at a mountpoint
  - verify: Check history areas for missing or leftover snapshots
  - history: List the recorded versions of a file
  - stats: Summarise live files and recorded history`,
		Version:      version.GetFullVersion(),
		SilenceUsage: true,
	}

	groupUtilities := "utilities"
	groupFilesystem := "filesystem"

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupFilesystem,
		Title: "Filesystem Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	mountCmd := NewMountCmd()
	verifyCmd := NewVerifyCmd()
	historyCmd := NewHistoryCmd()
	statsCmd := NewStatsCmd()

	mountCmd.GroupID = groupFilesystem
	verifyCmd.GroupID = groupUtilities
	historyCmd.GroupID = groupUtilities
	statsCmd.GroupID = groupUtilities

	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)

	return rootCmd
}
