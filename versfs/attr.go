package versfs

import (
	"os"
	"syscall"
	"time"

	"bazil.org/fuse"
	"golang.org/x/sys/unix"
)

// attrValid is how long the kernel may cache attributes. Kept short because
// the backing directory can change underneath the mount.
const attrValid = time.Second

// modeBits are the mode bits chmod may change.
const modeBits = os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky

func fillAttr(a *fuse.Attr, info os.FileInfo) {
	a.Valid = attrValid
	a.Mode = info.Mode()
	a.Size = uint64(info.Size())
	a.Mtime = info.ModTime()

	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	a.Inode = st.Ino
	a.Nlink = uint32(st.Nlink)
	a.Uid = st.Uid
	a.Gid = st.Gid
	a.Rdev = uint32(st.Rdev)
	a.Blocks = uint64(st.Blocks)
	a.BlockSize = uint32(st.Blksize)
	a.Atime = time.Unix(st.Atim.Unix())
	a.Ctime = time.Unix(st.Ctim.Unix())
}

// unixMode converts m to the st_mode encoding expected by mknod(2).
func unixMode(m os.FileMode) uint32 {
	mode := uint32(m.Perm())
	switch {
	case m&os.ModeNamedPipe != 0:
		mode |= unix.S_IFIFO
	case m&os.ModeSocket != 0:
		mode |= unix.S_IFSOCK
	case m&os.ModeCharDevice != 0:
		mode |= unix.S_IFCHR
	case m&os.ModeDevice != 0:
		mode |= unix.S_IFBLK
	default:
		mode |= unix.S_IFREG
	}
	if m&os.ModeSetuid != 0 {
		mode |= unix.S_ISUID
	}
	if m&os.ModeSetgid != 0 {
		mode |= unix.S_ISGID
	}
	if m&os.ModeSticky != 0 {
		mode |= unix.S_ISVTX
	}
	return mode
}

func direntType(m os.FileMode) fuse.DirentType {
	switch {
	case m.IsDir():
		return fuse.DT_Dir
	case m&os.ModeSymlink != 0:
		return fuse.DT_Link
	case m&os.ModeNamedPipe != 0:
		return fuse.DT_FIFO
	case m&os.ModeSocket != 0:
		return fuse.DT_Socket
	case m&os.ModeCharDevice != 0:
		return fuse.DT_Char
	case m&os.ModeDevice != 0:
		return fuse.DT_Block
	case m.IsRegular():
		return fuse.DT_File
	default:
		return fuse.DT_Unknown
	}
}

// timespec builds one utimensat(2) entry.
func timespec(set, now bool, t time.Time) unix.Timespec {
	switch {
	case now:
		return unix.Timespec{Nsec: unix.UTIME_NOW}
	case set:
		return unix.NsecToTimespec(t.UnixNano())
	default:
		return unix.Timespec{Nsec: unix.UTIME_OMIT}
	}
}

func getxattr(path, name string) ([]byte, error) {
	for {
		size, err := unix.Lgetxattr(path, name, nil)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size)
		n, err := unix.Lgetxattr(path, name, buf)
		if err == unix.ERANGE {
			continue // value grew between the two calls
		}
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	}
}

func listxattr(path string) ([]byte, error) {
	for {
		size, err := unix.Llistxattr(path, nil)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size)
		n, err := unix.Llistxattr(path, buf)
		if err == unix.ERANGE {
			continue
		}
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	}
}
