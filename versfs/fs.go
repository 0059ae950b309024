package versfs

import (
	"context"
	"strings"
	"sync"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"golang.org/x/sys/unix"

	"github.com/dendrascience/versfs/history"
	"github.com/dendrascience/versfs/internal/logging"
	"github.com/dendrascience/versfs/internal/pathmap"
)

// FS implements the versfs FUSE filesystem
type FS struct {
	store *history.Store
	paths *pathmap.Translator
	log   *logging.Logger

	mu    sync.Mutex       // protects nodes
	nodes map[string]entry // live nodes by virtual path
}

// entry is a node handed to the kernel: a *Dir or a *File.
type entry interface {
	fs.Node
	base() *node
}

// New creates a filesystem serving the backing root of store.
func New(store *history.Store, log *logging.Logger) *FS {
	if log == nil {
		log = logging.Discard()
	}
	f := &FS{
		store: store,
		paths: store.Translator(),
		log:   log,
		nodes: make(map[string]entry),
	}
	store.SetObserver(f)
	return f
}

// Root returns the root directory node
func (f *FS) Root() (fs.Node, error) {
	return f.node("/", true), nil
}

// Statfs reports the usage of the filesystem holding the backing root.
func (f *FS) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	var st unix.Statfs_t
	if err := unix.Statfs(f.paths.Root(), &st); err != nil {
		return f.errno("statfs", "/", err)
	}
	resp.Blocks = st.Blocks
	resp.Bfree = st.Bfree
	resp.Bavail = st.Bavail
	resp.Files = st.Files
	resp.Ffree = st.Ffree
	resp.Bsize = uint32(st.Bsize)
	resp.Namelen = uint32(st.Namelen)
	resp.Frsize = uint32(st.Frsize)
	return nil
}

// node returns the registered node for virtual, replacing it when the kind
// on disk changed since it was registered.
func (f *FS) node(virtual string, dir bool) entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.nodes[virtual]; ok {
		if _, isDir := e.(*Dir); isDir == dir {
			return e
		}
	}

	var e entry
	if dir {
		e = &Dir{node: node{fs: f, path: virtual}}
	} else {
		e = &File{node: node{fs: f, path: virtual}}
	}
	f.nodes[virtual] = e
	return e
}

// Moved follows a rename carried out by the store.
func (f *FS) Moved(from, to string) {
	f.move(from, to)
}

// Removed follows an unlink carried out by the store.
func (f *FS) Removed(virtual string) {
	f.detach(virtual)
}

// move re-points the nodes at from and below it to to. A node previously
// registered at to has been replaced and is detached.
func (f *FS) move(from, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.detachLocked(to)

	moved := make(map[string]entry)
	for p, e := range f.nodes {
		if rel, ok := under(p, from); ok {
			delete(f.nodes, p)
			moved[to+rel] = e
		}
	}
	for p, e := range moved {
		e.base().setPath(p)
		f.nodes[p] = e
	}
}

// detach drops the nodes at virtual and below it. Their open handles keep
// working on the unlinked file without recording history.
func (f *FS) detach(virtual string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detachLocked(virtual)
}

func (f *FS) detachLocked(virtual string) {
	for p, e := range f.nodes {
		if _, ok := under(p, virtual); ok {
			e.base().markGone()
			delete(f.nodes, p)
		}
	}
}

func (f *FS) forget(n *node) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := n.virtual()
	if e, ok := f.nodes[p]; ok && e.base() == n {
		delete(f.nodes, p)
	}
}

// under reports whether p is prefix or lies below it, returning the
// remainder of p after prefix.
func under(p, prefix string) (string, bool) {
	if p == prefix {
		return "", true
	}
	if strings.HasPrefix(p, prefix+"/") {
		return p[len(prefix):], true
	}
	return "", false
}
