package history

import (
	"io"
	"os"

	"github.com/dendrascience/versfs/util"
)

// ApplyWrite writes buf at off into f, which holds the prior content. f ends
// up max(L, off+len(buf)) bytes long; a gap between the old end and off
// reads back as zeros.
func ApplyWrite(f *os.File, buf []byte, off int64) error {
	if _, err := f.WriteAt(buf, off); err != nil {
		return err
	}
	if len(buf) > 0 {
		return nil
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < off {
		return f.Truncate(off)
	}
	return nil
}

// ApplyTruncate cuts f to size bytes, or zero extends it to size.
func ApplyTruncate(f *os.File, size int64) error {
	return f.Truncate(size)
}

// stage builds a snapshot candidate for backing: a temporary file inside
// its history area holding src (empty when src is nil) with edit applied.
// The area is created if needed. Content is streamed, never held in memory.
func stage(backing string, src io.Reader, edit func(*os.File) error) (*os.File, error) {
	area := AreaPath(backing)
	if err := os.MkdirAll(area, areaPerm); err != nil {
		return nil, err
	}
	tmp, err := util.CreateTemp(area, snapshotPerm)
	if err != nil {
		return nil, err
	}
	if src != nil {
		if _, err := io.Copy(tmp, src); err != nil {
			util.DiscardTemp(tmp)
			return nil, err
		}
	}
	if edit != nil {
		if err := edit(tmp); err != nil {
			util.DiscardTemp(tmp)
			return nil, err
		}
	}
	return tmp, nil
}
