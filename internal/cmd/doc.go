// Package cmd provides the command-line interface implementation for versfs.
//
// This package contains all the subcommand implementations for the versfs CLI tool.
// It uses the Cobra library for command structure and Fang for styling.
//
// The package is organized into the following commands:
//   - root: Main command coordinator and entry point
//   - mount: FUSE filesystem mounting
//   - verify: History area consistency checks and repair
//   - history: Listing the recorded versions of a file
//   - stats: Live file and snapshot totals
//
// Each command is implemented as a separate file with its own constructor function
// that returns a *cobra.Command.
package cmd
