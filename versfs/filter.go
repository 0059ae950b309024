package versfs

import (
	"os"
	"syscall"

	"bazil.org/fuse"

	"github.com/dendrascience/versfs/history"
)

// visible reports whether a directory entry is shown in listings.
func visible(name string) bool {
	return !history.ContainsMarker(name)
}

// checkName rejects names reserved for history areas.
func checkName(name string) error {
	if history.ContainsMarker(name) {
		return fuse.Errno(syscall.EINVAL)
	}
	return nil
}

func dirents(entries []os.DirEntry) []fuse.Dirent {
	out := make([]fuse.Dirent, 0, len(entries))
	for _, e := range entries {
		if !visible(e.Name()) {
			continue
		}
		de := fuse.Dirent{Name: e.Name(), Type: direntType(e.Type())}
		if info, err := e.Info(); err == nil {
			if st, ok := info.Sys().(*syscall.Stat_t); ok {
				de.Inode = st.Ino
			}
		}
		out = append(out, de)
	}
	return out
}
