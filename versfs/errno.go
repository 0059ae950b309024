package versfs

import (
	"errors"
	"syscall"

	"bazil.org/fuse"

	"github.com/dendrascience/versfs/history"
)

// errno converts err into the errno returned to the kernel and logs it.
// History failures become EIO; they were already logged by the store.
func (f *FS) errno(op, virtual string, err error) error {
	if err == nil {
		return nil
	}
	e := toErrno(err)
	switch {
	case errors.Is(err, history.ErrInconsistent), errors.Is(err, history.ErrBookkeeping):
	case e == fuse.EIO:
		f.log.Errorf("%s %s: %v", op, virtual, err)
	default:
		f.log.Verbosef("%s %s: %v", op, virtual, err)
	}
	return e
}

func toErrno(err error) fuse.Errno {
	switch {
	case errors.Is(err, history.ErrInconsistent), errors.Is(err, history.ErrBookkeeping):
		return fuse.EIO
	case errors.Is(err, history.ErrNegativeOffset), errors.Is(err, history.ErrNegativeSize):
		return fuse.Errno(syscall.EINVAL)
	case errors.Is(err, history.ErrMoved):
		return fuse.Errno(syscall.ENOENT)
	}

	var fe fuse.Errno
	if errors.As(err, &fe) {
		return fe
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return fuse.Errno(errno)
	}
	return fuse.EIO
}
