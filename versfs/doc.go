// Package versfs implements a FUSE filesystem that mirrors a backing
// directory and keeps the content history of every regular file.
//
// Reads, attribute queries, links, permission changes, extended attributes
// and directory operations are passed through to the backing directory.
// Writes, truncations, renames and unlinks of regular files go through a
// history.Store, which performs the live change and records the resulting
// content as a numbered snapshot in a hidden history area next to the file.
//
// History areas are left out of directory listings but can still be looked
// up by name, so past versions are readable through the mount:
//
//	cat /mnt/notes.txt__versions__/notes.txt,3
//
// Everything below a history area is read-only through the mount.
//
// The main entry point is New(), whose result is served with the
// bazil.org/fuse library.
package versfs
