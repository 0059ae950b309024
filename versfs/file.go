package versfs

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/dendrascience/versfs/history"
)

const maxRenameRetries = 8

// File is a non-directory node: a regular file, a symlink or a special
// file.
type File struct {
	node
}

// Open opens the backing file. Opening for writing, or with truncation, is
// refused inside history areas.
func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	p := f.virtual()
	flags := int(req.Flags) &^ (os.O_CREATE | os.O_EXCL)
	if f.readOnly() && (flags&syscall.O_ACCMODE != os.O_RDONLY || flags&os.O_TRUNC != 0) {
		return nil, fuse.EPERM
	}

	file, err := f.fs.store.Open(p, flags, 0)
	if err != nil {
		return nil, f.fs.errno("open", p, err)
	}
	h, err := newHandle(f, file)
	if err != nil {
		file.Close()
		return nil, f.fs.errno("open", p, err)
	}
	if !h.regular {
		resp.Flags |= fuse.OpenDirectIO
	}
	return h, nil
}

func (f *File) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {
	target, err := os.Readlink(f.backing())
	if err != nil {
		return "", f.fs.errno("readlink", f.virtual(), err)
	}
	return target, nil
}

// Handle is an open file.
type Handle struct {
	file    *File
	f       *os.File
	regular bool
}

func newHandle(file *File, f *os.File) (*Handle, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &Handle{file: file, f: f, regular: info.Mode().IsRegular()}, nil
}

func (h *Handle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	var n int
	var err error
	if h.regular {
		n, err = h.f.ReadAt(buf, req.Offset)
	} else {
		n, err = h.f.Read(buf)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return h.file.fs.errno("read", h.file.virtual(), err)
	}
	resp.Data = buf[:n]
	return nil
}

// Write writes through the version store, which records the new content.
// Writes to special files, and to files unlinked while open, bypass it.
func (h *Handle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	var n int
	var err error
	switch {
	case !h.regular:
		n, err = h.f.Write(req.Data)
	case h.file.detached():
		n, err = h.f.WriteAt(req.Data, req.Offset)
	default:
		n, err = h.writeTracked(req.Data, req.Offset)
	}
	resp.Size = n
	return h.file.fs.errno("write", h.file.virtual(), err)
}

// writeTracked writes through the store under the file's current name. The
// name is read before the store locks it, so a rename that wins the lock
// leaves a stale name behind; the store refuses that write and the name is
// read again.
func (h *Handle) writeTracked(data []byte, off int64) (int, error) {
	for range maxRenameRetries {
		if h.file.detached() {
			return h.f.WriteAt(data, off)
		}
		n, err := h.file.fs.store.Write(h.file.virtual(), h.f, data, off)
		if !errors.Is(err, history.ErrMoved) {
			return n, err
		}
	}
	h.file.fs.log.Warnf("write %s: file keeps moving, writing without history", h.file.virtual())
	return h.f.WriteAt(data, off)
}

func (h *Handle) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	return nil
}

func (h *Handle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	if err := h.f.Close(); err != nil {
		return h.file.fs.errno("release", h.file.virtual(), err)
	}
	return nil
}
