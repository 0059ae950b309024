package versfs

import (
	"context"
	"os"
	"sync"
	"syscall"

	"bazil.org/fuse"
	"golang.org/x/sys/unix"

	"github.com/dendrascience/versfs/history"
)

// node holds what directories and files share: the virtual path, which a
// rename may change, and the passthrough attribute operations.
type node struct {
	fs *FS

	mu   sync.RWMutex // protects path and gone
	path string
	gone bool // unlinked or replaced while the kernel still referenced it
}

func (n *node) base() *node {
	return n
}

func (n *node) virtual() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.path
}

func (n *node) backing() string {
	return n.fs.paths.Translate(n.virtual())
}

func (n *node) setPath(p string) {
	n.mu.Lock()
	n.path = p
	n.mu.Unlock()
}

func (n *node) markGone() {
	n.mu.Lock()
	n.gone = true
	n.mu.Unlock()
}

func (n *node) detached() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.gone
}

// readOnly reports whether the node lies inside a history area.
func (n *node) readOnly() bool {
	return history.ContainsMarker(n.virtual())
}

// Attr returns the attributes of the backing entry
func (n *node) Attr(ctx context.Context, a *fuse.Attr) error {
	info, err := os.Lstat(n.backing())
	if err != nil {
		return n.fs.errno("getattr", n.virtual(), err)
	}
	fillAttr(a, info)
	return nil
}

// Setattr applies size, mode, ownership and timestamp changes. A size change
// is a truncation and is recorded in the file's history.
func (n *node) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	p := n.virtual()
	if n.readOnly() {
		return fuse.EPERM
	}
	backing := n.fs.paths.Translate(p)

	if req.Valid.Size() {
		if err := n.fs.store.Truncate(p, int64(req.Size)); err != nil {
			return n.fs.errno("truncate", p, err)
		}
	}

	if req.Valid.Mode() {
		if err := os.Chmod(backing, req.Mode&modeBits); err != nil {
			return n.fs.errno("chmod", p, err)
		}
	}

	if req.Valid.Uid() || req.Valid.Gid() {
		uid, gid := -1, -1
		if req.Valid.Uid() {
			uid = int(req.Uid)
		}
		if req.Valid.Gid() {
			gid = int(req.Gid)
		}
		if err := os.Lchown(backing, uid, gid); err != nil {
			return n.fs.errno("chown", p, err)
		}
	}

	if req.Valid.Atime() || req.Valid.AtimeNow() || req.Valid.Mtime() || req.Valid.MtimeNow() {
		ts := []unix.Timespec{
			timespec(req.Valid.Atime(), req.Valid.AtimeNow(), req.Atime),
			timespec(req.Valid.Mtime(), req.Valid.MtimeNow(), req.Mtime),
		}
		if err := unix.UtimesNanoAt(unix.AT_FDCWD, backing, ts, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			return n.fs.errno("utimens", p, err)
		}
	}

	return n.Attr(ctx, &resp.Attr)
}

// Access checks permissions against the backing entry. Write access is
// refused inside history areas.
func (n *node) Access(ctx context.Context, req *fuse.AccessRequest) error {
	if req.Mask&unix.W_OK != 0 && n.readOnly() {
		return fuse.Errno(syscall.EACCES)
	}
	if err := unix.Access(n.backing(), req.Mask); err != nil {
		return n.fs.errno("access", n.virtual(), err)
	}
	return nil
}

// Fsync flushes the backing entry to stable storage.
func (n *node) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	f, err := os.OpenFile(n.backing(), os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return n.fs.errno("fsync", n.virtual(), err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return n.fs.errno("fsync", n.virtual(), err)
	}
	return nil
}

func (n *node) Getxattr(ctx context.Context, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	data, err := getxattr(n.backing(), req.Name)
	if err != nil {
		return n.fs.errno("getxattr", n.virtual(), err)
	}
	resp.Xattr = data
	return nil
}

func (n *node) Listxattr(ctx context.Context, req *fuse.ListxattrRequest, resp *fuse.ListxattrResponse) error {
	data, err := listxattr(n.backing())
	if err != nil {
		return n.fs.errno("listxattr", n.virtual(), err)
	}
	resp.Xattr = data
	return nil
}

func (n *node) Setxattr(ctx context.Context, req *fuse.SetxattrRequest) error {
	if n.readOnly() {
		return fuse.EPERM
	}
	if err := unix.Lsetxattr(n.backing(), req.Name, req.Xattr, int(req.Flags)); err != nil {
		return n.fs.errno("setxattr", n.virtual(), err)
	}
	return nil
}

func (n *node) Removexattr(ctx context.Context, req *fuse.RemovexattrRequest) error {
	if n.readOnly() {
		return fuse.EPERM
	}
	if err := unix.Lremovexattr(n.backing(), req.Name); err != nil {
		return n.fs.errno("removexattr", n.virtual(), err)
	}
	return nil
}

// Forget drops the node from the registry once the kernel no longer
// references it.
func (n *node) Forget() {
	n.fs.forget(n)
}
