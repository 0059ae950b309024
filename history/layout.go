package history

import (
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// Marker is appended to a file name to form its history area. Names that
	// contain it are reserved.
	Marker = "__versions__"
	// CounterFile holds the current version counter inside a history area.
	CounterFile = ".version_file.txt"

	areaPerm     = 0o744
	snapshotPerm = 0o600
)

// ContainsMarker reports whether name (or any path containing it) is
// reserved for history areas.
func ContainsMarker(name string) bool {
	return strings.Contains(name, Marker)
}

// AreaPath returns the history area of the live file at path.
func AreaPath(path string) string {
	return path + Marker
}

// LivePath is the inverse of AreaPath. ok is false when area is not a
// history area path.
func LivePath(area string) (path string, ok bool) {
	if !strings.HasSuffix(area, Marker) || len(area) == len(Marker) {
		return "", false
	}
	return strings.TrimSuffix(area, Marker), true
}

// CounterPath returns the counter file of the live file at path.
func CounterPath(path string) string {
	return filepath.Join(AreaPath(path), CounterFile)
}

// SnapshotName returns the file name of version n of a file named base.
func SnapshotName(base string, n uint64) string {
	return base + "," + strconv.FormatUint(n, 10)
}

// SnapshotPath returns the path of version n of the live file at path.
func SnapshotPath(path string, n uint64) string {
	return filepath.Join(AreaPath(path), SnapshotName(filepath.Base(path), n))
}

// ParseSnapshotName extracts the version from a snapshot file name of a file
// named base.
func ParseSnapshotName(base, name string) (uint64, bool) {
	rest, ok := strings.CutPrefix(name, base+",")
	if !ok || rest == "" {
		return 0, false
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatCounter(n uint64) []byte {
	return []byte(strconv.FormatUint(n, 10) + "\n")
}

// parseCounter accepts decimal text with trailing whitespace or NUL padding.
func parseCounter(data []byte) (uint64, error) {
	s := strings.TrimRight(string(data), "\x00 \t\r\n")
	return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
}
