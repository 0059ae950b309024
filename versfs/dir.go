package versfs

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"golang.org/x/sys/unix"

	"github.com/dendrascience/versfs/history"
	"github.com/dendrascience/versfs/internal/pathmap"
)

// Dir is a directory node. It is also its own handle, so ReadDirAll is
// served without an explicit open.
type Dir struct {
	node
}

// child returns the virtual path of a new entry named name in d.
func (d *Dir) child(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if d.readOnly() {
		return "", fuse.EPERM
	}
	return pathmap.Join(d.virtual(), name), nil
}

// Lookup resolves name to a node. History areas are found by name even
// though listings omit them.
func (d *Dir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	p := pathmap.Join(d.virtual(), name)
	info, err := os.Lstat(d.fs.paths.Translate(p))
	if err != nil {
		return nil, d.fs.errno("lookup", p, err)
	}
	return d.fs.node(p, info.IsDir()), nil
}

// ReadDirAll lists the backing directory without history areas
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := os.ReadDir(d.backing())
	if err != nil {
		return nil, d.fs.errno("readdir", d.virtual(), err)
	}
	return dirents(entries), nil
}

// Create creates and opens a regular file
func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	p, err := d.child(req.Name)
	if err != nil {
		return nil, nil, err
	}

	f, err := d.fs.store.Open(p, int(req.Flags)|os.O_CREATE, (req.Mode &^ req.Umask).Perm())
	if err != nil {
		return nil, nil, d.fs.errno("create", p, err)
	}

	file := d.fs.node(p, false).(*File)
	h, err := newHandle(file, f)
	if err != nil {
		f.Close()
		return nil, nil, d.fs.errno("create", p, err)
	}
	return file, h, nil
}

func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	p, err := d.child(req.Name)
	if err != nil {
		return nil, err
	}
	mode := req.Mode & (os.ModePerm | os.ModeSetgid | os.ModeSticky) &^ req.Umask
	if err := os.Mkdir(d.fs.paths.Translate(p), mode); err != nil {
		return nil, d.fs.errno("mkdir", p, err)
	}
	return d.fs.node(p, true), nil
}

// Mknod creates special files. A regular file made through mknod starts
// without history, like one made through Create.
func (d *Dir) Mknod(ctx context.Context, req *fuse.MknodRequest) (fusefs.Node, error) {
	p, err := d.child(req.Name)
	if err != nil {
		return nil, err
	}
	mode := req.Mode &^ req.Umask
	if mode.IsRegular() {
		if err := d.fs.store.Prepare(p); err != nil {
			return nil, d.fs.errno("mknod", p, err)
		}
	}
	if err := unix.Mknod(d.fs.paths.Translate(p), unixMode(mode), int(req.Rdev)); err != nil {
		return nil, d.fs.errno("mknod", p, err)
	}
	return d.fs.node(p, false), nil
}

// Symlink creates a symbolic link. The target is stored as given.
func (d *Dir) Symlink(ctx context.Context, req *fuse.SymlinkRequest) (fusefs.Node, error) {
	p, err := d.child(req.NewName)
	if err != nil {
		return nil, err
	}
	if err := os.Symlink(req.Target, d.fs.paths.Translate(p)); err != nil {
		return nil, d.fs.errno("symlink", p, err)
	}
	return d.fs.node(p, false), nil
}

// Link creates a hard link. Each name keeps its own history.
func (d *Dir) Link(ctx context.Context, req *fuse.LinkRequest, old fusefs.Node) (fusefs.Node, error) {
	src, ok := old.(*File)
	if !ok {
		return nil, fuse.EPERM
	}
	if src.readOnly() {
		return nil, fuse.EPERM
	}
	p, err := d.child(req.NewName)
	if err != nil {
		return nil, err
	}
	if err := os.Link(src.backing(), d.fs.paths.Translate(p)); err != nil {
		return nil, d.fs.errno("link", p, err)
	}
	return d.fs.node(p, false), nil
}

// Remove unlinks a file together with its history, or removes an empty
// directory.
func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	if d.readOnly() {
		return fuse.EPERM
	}
	p := pathmap.Join(d.virtual(), req.Name)
	if history.ContainsMarker(req.Name) {
		return fuse.EPERM
	}

	if !req.Dir {
		// The store detaches the node once the name is gone.
		return d.fs.errno("remove", p, d.fs.store.Unlink(p))
	}

	err := d.rmdir(p)
	if _, serr := os.Lstat(d.fs.paths.Translate(p)); errors.Is(serr, fs.ErrNotExist) {
		d.fs.detach(p)
	}
	return d.fs.errno("rmdir", p, err)
}

// rmdir removes the directory at p. History areas left behind by files
// that no longer exist do not keep it from being empty.
func (d *Dir) rmdir(p string) error {
	backing := d.fs.paths.Translate(p)
	entries, err := os.ReadDir(backing)
	if err != nil {
		return err
	}

	var stale []string
	for _, e := range entries {
		live, ok := history.LivePath(e.Name())
		if !ok || !e.IsDir() {
			stale = nil
			break
		}
		stale = append(stale, pathmap.Join(p, live))
	}
	for _, s := range stale {
		if err := d.fs.store.Prepare(s); err != nil {
			return err
		}
	}

	if err := unix.Rmdir(backing); err != nil {
		return &os.PathError{Op: "rmdir", Path: backing, Err: err}
	}
	return nil
}

// Rename moves an entry. The history of a regular file restarts at its new
// name; the store re-points nodes held for the old name.
func (d *Dir) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	nd, ok := newDir.(*Dir)
	if !ok {
		return fuse.Errno(unix.ENOTDIR)
	}
	if d.readOnly() || history.ContainsMarker(req.OldName) {
		return fuse.EPERM
	}
	from := pathmap.Join(d.virtual(), req.OldName)
	to, err := nd.child(req.NewName)
	if err != nil {
		return err
	}

	return d.fs.errno("rename", from, d.fs.store.Rename(from, to))
}
