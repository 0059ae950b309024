package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/dendrascience/versfs/util"
)

// Report is the result of checking one history area.
type Report struct {
	Live       string // backing path of the live file
	Area       string
	LiveExists bool
	HasCounter bool
	Counter    uint64
	Snapshots  []uint64 // versions present, sorted
	Missing    []uint64 // versions 0..Counter that are absent
	Orphans    []uint64 // versions above Counter (uncommitted)
	Temps      []string // leftover temporaries
	Foreign    []string // entries that are neither snapshots nor the counter
	Drift      bool     // live content differs from the latest snapshot
}

// Errors lists problems that mean history was lost or cannot be trusted.
func (r Report) Errors() []string {
	var out []string
	if !r.HasCounter && !r.uninitialised() {
		out = append(out, "version counter missing")
	}
	if len(r.Missing) > 0 {
		out = append(out, fmt.Sprintf("missing snapshots %v", r.Missing))
	}
	return out
}

// Warnings lists non-fatal leftovers, typically from an interrupted update.
func (r Report) Warnings() []string {
	var out []string
	if !r.LiveExists {
		out = append(out, "history area without a live file")
	}
	if r.uninitialised() {
		out = append(out, "history area was never initialised")
	}
	if len(r.Orphans) > 0 {
		out = append(out, fmt.Sprintf("uncommitted snapshots %v", r.Orphans))
	}
	if len(r.Temps) > 0 {
		out = append(out, fmt.Sprintf("%d leftover temporary files", len(r.Temps)))
	}
	if len(r.Foreign) > 0 {
		out = append(out, fmt.Sprintf("unexpected entries %v", r.Foreign))
	}
	if r.Drift {
		out = append(out, "live content differs from the latest snapshot")
	}
	return out
}

// uninitialised reports an area whose first counter write never happened.
func (r Report) uninitialised() bool {
	if r.HasCounter {
		return false
	}
	return len(r.Snapshots) == 0 || len(r.Snapshots) == 1 && r.Snapshots[0] == 0
}

// OK reports whether the area has no errors.
func (r Report) OK() bool {
	return len(r.Errors()) == 0
}

// CheckArea inspects the history area of the live file at backing without
// modifying anything.
func CheckArea(backing string) (Report, error) {
	r := Report{Live: backing, Area: AreaPath(backing)}

	liveInfo, err := os.Lstat(backing)
	switch {
	case err == nil:
		r.LiveExists = true
	case errors.Is(err, fs.ErrNotExist):
	default:
		return r, err
	}

	entries, err := os.ReadDir(r.Area)
	if err != nil {
		return r, err
	}

	base := filepath.Base(backing)
	for _, e := range entries {
		name := e.Name()
		switch {
		case name == CounterFile:
			data, err := os.ReadFile(filepath.Join(r.Area, name))
			if err != nil {
				return r, err
			}
			n, err := parseCounter(data)
			if err != nil {
				r.Foreign = append(r.Foreign, name)
				continue
			}
			r.HasCounter = true
			r.Counter = n
		case util.IsTempName(name):
			r.Temps = append(r.Temps, name)
		default:
			if v, ok := ParseSnapshotName(base, name); ok && !e.IsDir() {
				r.Snapshots = append(r.Snapshots, v)
			} else {
				r.Foreign = append(r.Foreign, name)
			}
		}
	}
	slices.Sort(r.Snapshots)

	if r.HasCounter {
		for v := uint64(0); v <= r.Counter; v++ {
			if _, found := slices.BinarySearch(r.Snapshots, v); !found {
				r.Missing = append(r.Missing, v)
			}
		}
		for _, v := range r.Snapshots {
			if v > r.Counter {
				r.Orphans = append(r.Orphans, v)
			}
		}
	} else if r.uninitialised() {
		r.Orphans = slices.Clone(r.Snapshots)
	}

	if r.HasCounter && r.LiveExists && liveInfo.Mode().IsRegular() && !slices.Contains(r.Missing, r.Counter) {
		live, err := util.GetFileDigest(backing)
		if err != nil {
			return r, err
		}
		latest, err := util.GetFileDigest(SnapshotPath(backing, r.Counter))
		if err != nil {
			return r, err
		}
		r.Drift = live != latest
	}

	return r, nil
}

// Repair removes what a Report flagged as leftovers: uncommitted snapshots,
// temporaries, and the whole area when the live file is gone. Missing
// snapshots cannot be recreated and are left as they are.
func Repair(r Report) error {
	if !r.LiveExists {
		return os.RemoveAll(r.Area)
	}

	var errs []error
	base := filepath.Base(r.Live)
	for _, v := range r.Orphans {
		errs = append(errs, os.Remove(filepath.Join(r.Area, SnapshotName(base, v))))
	}
	for _, name := range r.Temps {
		errs = append(errs, os.Remove(filepath.Join(r.Area, name)))
	}
	if r.uninitialised() && len(r.Foreign) == 0 {
		errs = append(errs, os.Remove(r.Area))
	}
	return errors.Join(errs...)
}

// WalkAreas calls fn with the live backing path of every history area under
// root. Directories inside history areas are not descended into.
func WalkAreas(root string, fn func(live string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if live, ok := LivePath(path); ok {
			if err := fn(live); err != nil {
				return err
			}
			return filepath.SkipDir
		}
		return nil
	})
}

// Totals summarises the history kept under a backing root.
type Totals struct {
	LiveFiles     int
	TrackedFiles  int
	Snapshots     int
	SnapshotBytes int64
	LiveBytes     int64
}

// Summarize walks root and counts live files and recorded snapshots.
func Summarize(root string) (Totals, error) {
	var t Totals
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if live, ok := LivePath(path); ok && path != root {
				n, size, err := countSnapshots(live)
				if err != nil {
					return err
				}
				t.TrackedFiles++
				t.Snapshots += n
				t.SnapshotBytes += size
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			t.LiveFiles++
			t.LiveBytes += info.Size()
		}
		return nil
	})
	return t, err
}

func countSnapshots(live string) (int, int64, error) {
	entries, err := os.ReadDir(AreaPath(live))
	if err != nil {
		return 0, 0, err
	}
	base := filepath.Base(live)
	var n int
	var size int64
	for _, e := range entries {
		if _, ok := ParseSnapshotName(base, e.Name()); !ok || e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, 0, err
		}
		n++
		size += info.Size()
	}
	return n, size, nil
}
