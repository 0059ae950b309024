// Package util provides low-level helpers shared by the versfs packages.
//
// Key Components:
//
// Locking:
//   - KeyedMutex hands out one exclusive lock per key (a backing path)
//   - Lock registries are sharded by a color hash of the key so that
//     unrelated files never contend on the same registry map
//
// Durable writes:
//   - WriteFileAtomic writes through a uuid-named temporary in the target
//     directory, fsyncs it and renames it into place
//   - CreateTemp and CommitTemp split the same sequence for content that is
//     streamed into the temporary instead of passed as a byte slice
//   - SyncDir flushes directory entries after renames and removals
//
// Digests:
//   - xxh3-128 digests used when listing and checking snapshots
package util
