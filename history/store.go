package history

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dendrascience/versfs/internal/logging"
	"github.com/dendrascience/versfs/internal/pathmap"
	"github.com/dendrascience/versfs/util"
)

// Store records file history under a backing root. All paths passed to
// Store methods are virtual paths; they are translated with the Translator
// given to New.
type Store struct {
	paths    *pathmap.Translator
	locks    *util.KeyedMutex
	log      *logging.Logger
	observer Observer
}

// Observer is told about live name changes while the affected names are
// still locked, so no mutation can slip in between the change and the
// observer catching up with it.
type Observer interface {
	Moved(from, to string)
	Removed(virtual string)
}

// Snapshot describes one recorded version.
type Snapshot struct {
	Version uint64
	Path    string // backing path of the snapshot file
	Size    int64
	ModTime time.Time
}

// New creates a Store.
func New(paths *pathmap.Translator, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{
		paths: paths,
		locks: util.NewKeyedMutex(),
		log:   log,
	}
}

// Translator returns the translator the store was built with.
func (s *Store) Translator() *pathmap.Translator {
	return s.paths
}

// SetObserver registers o to hear about renames and unlinks. It must be
// called before the store is used concurrently.
func (s *Store) SetObserver(o Observer) {
	s.observer = o
}

// Inspect returns the history state of the file at virtual.
func (s *Store) Inspect(virtual string) (State, error) {
	backing := s.paths.Translate(virtual)
	unlock := s.locks.Lock(backing)
	defer unlock()
	return inspect(backing)
}

// Write writes data at off through live and records the resulting content
// as the next version. The byte count and error of the live write are
// returned as is; a bookkeeping failure after a successful live write is
// returned as a *BookkeepingError with the full byte count.
//
// When live can report its identity and is no longer the file at virtual,
// nothing is written and ErrMoved is returned.
func (s *Store) Write(virtual string, live io.WriterAt, data []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	backing := s.paths.Translate(virtual)
	unlock := s.locks.Lock(backing)
	defer unlock()

	if err := checkIdentity(backing, live); err != nil {
		return 0, err
	}

	st, ierr := inspect(backing)

	var pre *os.File
	if ierr == nil && st.Phase == NoHistory {
		info, err := os.Stat(backing)
		if err != nil {
			return 0, err
		}
		if info.Size() > 0 {
			if pre, err = capture(backing); err != nil {
				return 0, err
			}
		}
	}

	n, err := live.WriteAt(data, off)
	if err != nil {
		abandon(backing, st, pre)
		return n, err
	}
	if ierr != nil {
		return n, s.bookkeeping("write", backing, ierr)
	}

	if err := s.recordWrite(backing, st, pre, data[:n], off); err != nil {
		return n, s.bookkeeping("write", backing, err)
	}
	return n, nil
}

// recordWrite records the write as the version after st. pre holds the
// captured pre-write content of a file without history, or is nil when
// that content was empty.
func (s *Store) recordWrite(backing string, st State, pre *os.File, data []byte, off int64) error {
	if pre != nil {
		next, err := s.record(backing, st, pre)
		if err != nil {
			return err
		}
		st = next
	}

	var src io.Reader
	if st.Phase == HasHistory {
		in, err := openSnapshot(backing, st.Counter)
		if err != nil {
			return err
		}
		defer in.Close()
		src = in
	}

	tmp, err := stage(backing, src, func(f *os.File) error {
		return ApplyWrite(f, data, off)
	})
	if err != nil {
		return err
	}
	_, err = s.record(backing, st, tmp)
	return err
}

// Truncate resizes the live file and records the result. A file without
// history first has its pre-truncate content recorded as version 0, unless
// the size does not change, in which case nothing is recorded.
func (s *Store) Truncate(virtual string, size int64) error {
	if size < 0 {
		return ErrNegativeSize
	}
	backing := s.paths.Translate(virtual)
	unlock := s.locks.Lock(backing)
	defer unlock()
	return s.truncate(backing, size)
}

func (s *Store) truncate(backing string, size int64) error {
	st, ierr := inspect(backing)

	var pre *os.File
	if ierr == nil && st.Phase == NoHistory {
		info, err := regularInfo(backing)
		if err != nil {
			return err
		}
		if info.Size() == size {
			return os.Truncate(backing, size)
		}
		if pre, err = capture(backing); err != nil {
			return err
		}
	}

	if err := os.Truncate(backing, size); err != nil {
		abandon(backing, st, pre)
		return err
	}
	if ierr != nil {
		return s.bookkeeping("truncate", backing, ierr)
	}

	if err := s.recordTruncate(backing, st, pre, size); err != nil {
		return s.bookkeeping("truncate", backing, err)
	}
	return nil
}

func (s *Store) recordTruncate(backing string, st State, pre *os.File, size int64) error {
	if pre != nil {
		next, err := s.record(backing, st, pre)
		if err != nil {
			return err
		}
		st = next
	}

	in, err := openSnapshot(backing, st.Counter)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := stage(backing, io.LimitReader(in, size), func(f *os.File) error {
		return ApplyTruncate(f, size)
	})
	if err != nil {
		return err
	}
	_, err = s.record(backing, st, tmp)
	return err
}

// Open opens the live file at virtual with the given os.OpenFile flags.
// When the call creates the file, a stale history area under the same name
// is removed first. O_TRUNC on a regular file is carried out as a Truncate
// to zero instead of being passed to open. O_APPEND is dropped because
// writes always carry an explicit offset.
func (s *Store) Open(virtual string, flag int, perm os.FileMode) (*os.File, error) {
	backing := s.paths.Translate(virtual)
	unlock := s.locks.Lock(backing)
	defer unlock()

	info, err := os.Stat(backing)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && flag&os.O_CREATE != 0:
		if err := s.clearStale(backing); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	f, err := os.OpenFile(backing, flag&^(os.O_TRUNC|os.O_APPEND), perm)
	if err != nil {
		return nil, err
	}
	if flag&os.O_TRUNC != 0 && info != nil && info.Mode().IsRegular() {
		if err := s.truncate(backing, 0); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Rename renames an entry. Whatever history the destination name had is
// discarded, and the source history is deleted. A regular file restarts
// its history at the destination with a single version 0 holding the moved
// content. Directories are renamed with the history areas inside them.
func (s *Store) Rename(fromVirtual, toVirtual string) error {
	from := s.paths.Translate(fromVirtual)
	to := s.paths.Translate(toVirtual)
	unlock := s.locks.LockMany(from, to)
	defer unlock()

	info, err := os.Lstat(from)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if toInfo, err := os.Lstat(to); err == nil && os.SameFile(info, toInfo) {
		// Two links to the same file: rename(2) is a no-op.
		return os.Rename(from, to)
	}

	if err := os.Rename(from, to); err != nil {
		return err
	}
	if s.observer != nil {
		s.observer.Moved(fromVirtual, toVirtual)
	}
	if info.IsDir() {
		return nil
	}

	if err := s.purge(to); err != nil {
		return s.bookkeeping("rename", to, err)
	}
	if info.Mode().IsRegular() {
		if err := s.restart(to); err != nil {
			return s.bookkeeping("rename", to, err)
		}
	}
	if err := s.purge(from); err != nil {
		return s.bookkeeping("rename", from, err)
	}
	s.log.Verbosef("history: %s restarted at %s", from, to)
	return nil
}

// restart records the live content of backing as version 0 of a new chain.
func (s *Store) restart(backing string) error {
	in, err := os.Open(backing)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := stage(backing, in, nil)
	if err != nil {
		return err
	}
	_, err = s.record(backing, State{Phase: NoHistory}, tmp)
	return err
}

// Unlink removes a file together with any history area under its name. The
// area is purged before the live file is removed; if the purge fails the
// live file is left in place. Missing snapshots are reported as a
// *ConsistencyError after the file and its area are gone.
func (s *Store) Unlink(virtual string) error {
	backing := s.paths.Translate(virtual)
	unlock := s.locks.Lock(backing)
	defer unlock()

	info, err := os.Lstat(backing)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &os.PathError{Op: "unlink", Path: backing, Err: syscall.EISDIR}
	}

	problem := verifyChain(backing)
	if err := s.purge(backing); err != nil {
		return err
	}

	if err := os.Remove(backing); err != nil {
		return err
	}
	if s.observer != nil {
		s.observer.Removed(virtual)
	}
	if problem != nil {
		s.log.Errorf("history: unlink %s: %v", backing, problem)
	}
	return problem
}

// Prepare clears a stale history area left behind for a name that has no
// live file, so a new file created under that name starts a fresh chain.
func (s *Store) Prepare(virtual string) error {
	backing := s.paths.Translate(virtual)
	unlock := s.locks.Lock(backing)
	defer unlock()
	return s.clearStale(backing)
}

func (s *Store) clearStale(backing string) error {
	if _, err := os.Lstat(backing); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if _, err := os.Lstat(AreaPath(backing)); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	s.log.Warnf("history: removing stale history area of %s", backing)
	return s.purge(backing)
}

// Versions lists the recorded snapshots of the file at virtual, oldest
// first. A file without history has no versions.
func (s *Store) Versions(virtual string) ([]Snapshot, error) {
	backing := s.paths.Translate(virtual)
	unlock := s.locks.Lock(backing)
	defer unlock()
	return ListVersions(backing)
}

// Check inspects the history area of the file at virtual.
func (s *Store) Check(virtual string) (Report, error) {
	backing := s.paths.Translate(virtual)
	unlock := s.locks.Lock(backing)
	defer unlock()
	return CheckArea(backing)
}

// ListVersions lists the snapshots of the live file at backing.
func ListVersions(backing string) ([]Snapshot, error) {
	st, err := inspect(backing)
	if err != nil {
		return nil, err
	}
	if st.Phase == NoHistory {
		return nil, nil
	}

	out := make([]Snapshot, 0, st.Counter+1)
	var missing []uint64
	for v := uint64(0); v <= st.Counter; v++ {
		p := SnapshotPath(backing, v)
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, v)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{Version: v, Path: p, Size: info.Size(), ModTime: info.ModTime()})
	}
	if len(missing) > 0 {
		return out, &ConsistencyError{Path: backing, Problem: "snapshots missing", Missing: missing}
	}
	return out, nil
}

// record commits the staged tmp as the version after st and advances the
// counter. The snapshot is durable before the counter moves. tmp is
// consumed either way.
func (s *Store) record(backing string, st State, tmp *os.File) (State, error) {
	next := st.Next()

	var size int64
	if info, err := tmp.Stat(); err == nil {
		size = info.Size()
	}

	snap := SnapshotPath(backing, next.Counter)
	if _, err := os.Lstat(snap); err == nil {
		s.log.Warnf("history: overwriting uncommitted snapshot %s", snap)
	}
	if err := util.CommitTemp(tmp, snap); err != nil {
		return st, fmt.Errorf("write snapshot %d: %w", next.Counter, err)
	}
	if err := util.WriteFileAtomic(CounterPath(backing), formatCounter(next.Counter), snapshotPerm); err != nil {
		return st, fmt.Errorf("advance counter to %d: %w", next.Counter, err)
	}

	s.log.Verbosef("history: %s version %d (%s)", backing, next.Counter, humanize.IBytes(uint64(size)))
	return next, nil
}

// purge removes the history area of backing. A missing area is not an error.
func (s *Store) purge(backing string) error {
	area := AreaPath(backing)
	entries, err := os.ReadDir(area)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &ConsistencyError{Path: backing, Problem: "history area unreadable", Err: err}
	}

	var errs []error
	for _, e := range entries {
		p := filepath.Join(area, e.Name())
		if e.IsDir() {
			s.log.Warnf("history: unexpected directory %s in history area", p)
			errs = append(errs, os.RemoveAll(p))
			continue
		}
		errs = append(errs, os.Remove(p))
	}
	errs = append(errs, os.Remove(area))

	if err := errors.Join(errs...); err != nil {
		return &ConsistencyError{Path: backing, Problem: "history area could not be purged", Err: err}
	}
	return util.SyncDir(filepath.Dir(area))
}

func (s *Store) bookkeeping(op, backing string, err error) error {
	s.log.Errorf("history: %s %s: %v", op, backing, err)
	return &BookkeepingError{Op: op, Path: backing, Err: err}
}

// inspect determines the state of backing from its history area.
func inspect(backing string) (State, error) {
	area := AreaPath(backing)
	info, err := os.Lstat(area)
	if errors.Is(err, fs.ErrNotExist) {
		return State{Phase: NoHistory}, nil
	}
	if err != nil {
		return State{}, err
	}
	if !info.IsDir() {
		return State{}, &ConsistencyError{Path: backing, Problem: "history area is not a directory"}
	}

	data, err := os.ReadFile(CounterPath(backing))
	if errors.Is(err, fs.ErrNotExist) {
		return uninitialised(backing)
	}
	if err != nil {
		return State{}, err
	}
	n, err := parseCounter(data)
	if err != nil {
		return State{}, &ConsistencyError{Path: backing, Problem: "unreadable version counter", Err: err}
	}

	if _, err := os.Lstat(SnapshotPath(backing, n)); errors.Is(err, fs.ErrNotExist) {
		return State{}, &ConsistencyError{Path: backing, Problem: "counter points at a missing snapshot", Missing: []uint64{n}}
	} else if err != nil {
		return State{}, err
	}
	return State{Phase: HasHistory, Counter: n, Area: true}, nil
}

// uninitialised handles an area without a counter. At most an uncommitted
// snapshot 0 may be present; anything later means the counter was lost.
func uninitialised(backing string) (State, error) {
	entries, err := os.ReadDir(AreaPath(backing))
	if err != nil {
		return State{}, err
	}
	base := filepath.Base(backing)
	for _, e := range entries {
		if v, ok := ParseSnapshotName(base, e.Name()); ok && v > 0 {
			return State{}, &ConsistencyError{Path: backing, Problem: "version counter missing"}
		}
	}
	return State{Phase: NoHistory, Area: true}, nil
}

// verifyChain checks that an existing history area holds a counter and every
// snapshot up to it.
func verifyChain(backing string) error {
	st, err := inspect(backing)
	if err != nil {
		return err
	}
	if !st.Area {
		return nil
	}
	if st.Phase == NoHistory {
		return &ConsistencyError{Path: backing, Problem: "version counter missing"}
	}
	var missing []uint64
	for v := uint64(0); v < st.Counter; v++ {
		if _, err := os.Lstat(SnapshotPath(backing, v)); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, v)
		} else if err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return &ConsistencyError{Path: backing, Problem: "snapshots missing", Missing: missing}
	}
	return nil
}

// openSnapshot opens version n of backing for reading.
func openSnapshot(backing string, n uint64) (*os.File, error) {
	f, err := os.Open(SnapshotPath(backing, n))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ConsistencyError{Path: backing, Problem: "snapshot missing", Missing: []uint64{n}, Err: err}
	}
	return f, err
}

// capture stages the current live content of backing, to be committed as
// version 0 once the live mutation has succeeded.
func capture(backing string) (*os.File, error) {
	in, err := os.Open(backing)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return stage(backing, in, nil)
}

// abandon drops a capture after the live mutation failed, together with
// the area if the capture created it.
func abandon(backing string, st State, pre *os.File) {
	if pre == nil {
		return
	}
	util.DiscardTemp(pre)
	if !st.Area {
		os.Remove(AreaPath(backing))
	}
}

// checkIdentity reports ErrMoved when live can stat itself and is not the
// file currently at backing.
func checkIdentity(backing string, live io.WriterAt) error {
	statter, ok := live.(interface{ Stat() (os.FileInfo, error) })
	if !ok {
		return nil
	}
	own, err := statter.Stat()
	if err != nil {
		return err
	}
	cur, err := os.Lstat(backing)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrMoved
	}
	if err != nil {
		return err
	}
	if !os.SameFile(own, cur) {
		return ErrMoved
	}
	return nil
}

func regularInfo(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &os.PathError{Op: "truncate", Path: path, Err: syscall.EISDIR}
	}
	if !info.Mode().IsRegular() {
		return nil, &os.PathError{Op: "truncate", Path: path, Err: syscall.EINVAL}
	}
	return info, nil
}
