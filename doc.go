// Package main provides the versfs command-line interface.
//
// versfs is a FUSE filesystem that mirrors a backing directory and records
// the content of every regular file after each write, truncation, rename or
// delete as a numbered snapshot kept next to the file.
//
// The main binary supports multiple subcommands:
//   - mount: Mount a backing directory at a mountpoint
//   - verify: Check history areas for missing or leftover snapshots
//   - history: List the recorded versions of a file
//   - stats: Summarise live files and recorded history
package main
