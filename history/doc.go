// Package history implements the versfs version store.
//
// Every regular file F in a backing directory D may own a history area that
// records the full content of F after each mutating operation:
//
//	D/F                          live content
//	D/F__versions__/             history area
//	D/F__versions__/.version_file.txt  current version counter (decimal)
//	D/F__versions__/F,<n>        snapshot n, for n = 0..counter
//
// A history area is created lazily by the first write or truncate, extended
// by each later one, restarted at the destination by a rename and destroyed
// by an unlink. Snapshots are complete copies, never diffs.
//
// The Store runs each mutation inside a per-file exclusive scope that covers
// the live change and the "load prior snapshot, compute, record, advance
// counter" sequence. Snapshots and counters are written through temporary
// files and renamed into place; a snapshot is always committed before the
// counter that points at it, so a crash can leave an orphaned snapshot but
// never a counter pointing at a missing one.
//
// The live file stays authoritative. When bookkeeping fails after the live
// mutation succeeded, the live change is kept and a *BookkeepingError is
// returned.
package history
