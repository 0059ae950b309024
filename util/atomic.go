package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempPrefix marks in-flight files from CreateTemp. A file with
// this prefix that survives a crash is garbage and safe to remove.
const TempPrefix = ".tmp-"

// IsTempName reports whether name was produced by CreateTemp.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, TempPrefix)
}

// CreateTemp creates an empty temporary file in dir. It is either moved into
// place with CommitTemp or removed with DiscardTemp.
func CreateTemp(dir string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(filepath.Join(dir, TempPrefix+uuid.NewString()), os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
}

// CommitTemp fsyncs and closes f, then renames it to path and fsyncs the
// parent directory. f is removed if any step fails.
func CommitTemp(f *os.File, path string) error {
	err := f.Sync()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(f.Name(), path)
	}
	if err != nil {
		os.Remove(f.Name())
		return err
	}
	return SyncDir(filepath.Dir(path))
}

// DiscardTemp closes and removes a temporary that will not be committed.
// A nil f is ignored.
func DiscardTemp(f *os.File) {
	if f == nil {
		return
	}
	f.Close()
	os.Remove(f.Name())
}

// WriteFileAtomic replaces path with data. Readers observe either the old
// file or the complete new one, never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	f, err := CreateTemp(filepath.Dir(path), perm)
	if err != nil {
		return err
	}

	n, err := f.Write(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("%s: wrote %d of %d bytes: %w", f.Name(), n, len(data), ErrShortWrite)
	}
	if err != nil {
		DiscardTemp(f)
		return err
	}
	return CommitTemp(f, path)
}

// SyncDir fsyncs a directory so that entries created, renamed or removed in
// it are durable.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
