package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dendrascience/versfs/history"
	"github.com/dendrascience/versfs/internal/logging"
	"github.com/dendrascience/versfs/internal/pathmap"
)

// seedHistory writes each of contents over the start of name, recording one
// version per write.
func seedHistory(t *testing.T, root, name string, contents ...string) {
	t.Helper()
	tr, err := pathmap.New(root)
	if err != nil {
		t.Fatal(err)
	}
	store := history.New(tr, logging.Discard())

	live := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(live), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, c := range contents {
		f, err := store.Open("/"+name, os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.Write("/"+name, f, []byte(c), 0); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
}

func TestRunVerify(t *testing.T) {
	root := t.TempDir()
	seedHistory(t, root, "ok.txt", "a", "b")
	seedHistory(t, root, "sub/broken.txt", "a", "b", "c")

	var out bytes.Buffer
	if err := runVerify(&out, root, false, false); err != nil {
		t.Fatalf("runVerify on healthy tree: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "History areas checked: 2") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}

	broken := filepath.Join(root, "sub", "broken.txt")
	if err := os.Remove(history.SnapshotPath(broken, 0)); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	err := runVerify(&out, root, false, false)
	if !errors.Is(err, errVerifyFailed) {
		t.Fatalf("Expected errVerifyFailed, got %v", err)
	}
	if !strings.Contains(out.String(), "missing snapshots") {
		t.Errorf("missing snapshot not reported:\n%s", out.String())
	}
}

func TestRunVerifyRepair(t *testing.T) {
	root := t.TempDir()
	seedHistory(t, root, "f", "one")
	live := filepath.Join(root, "f")

	orphan := history.SnapshotPath(live, 1)
	if err := os.WriteFile(orphan, []byte("uncommitted"), 0o600); err != nil {
		t.Fatal(err)
	}
	seedHistory(t, root, "deleted", "x")
	if err := os.Remove(filepath.Join(root, "deleted")); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runVerify(&out, root, true, true); err != nil {
		t.Fatalf("runVerify: %v\n%s", err, out.String())
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Errorf("orphan snapshot not removed: %v", err)
	}
	if _, err := os.Stat(history.AreaPath(filepath.Join(root, "deleted"))); !os.IsNotExist(err) {
		t.Errorf("stale history area not removed: %v", err)
	}
	if _, err := os.Stat(history.SnapshotPath(live, 0)); err != nil {
		t.Errorf("committed snapshot removed: %v", err)
	}
}

func TestRunHistory(t *testing.T) {
	root := t.TempDir()
	seedHistory(t, root, "docs/a.txt", "first", "second version")

	var out bytes.Buffer
	if err := runHistory(&out, root, "docs/a.txt"); err != nil {
		t.Fatalf("runHistory: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 versions, got:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[1], "0 ") || !strings.HasPrefix(lines[2], "1 ") {
		t.Errorf("versions out of order:\n%s", out.String())
	}
	if !strings.Contains(lines[2], "14 B") {
		t.Errorf("Expected size of version 1 to be 14 B:\n%s", out.String())
	}
}

func TestRunHistoryUntracked(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "plain"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runHistory(&out, root, "plain"); err != nil {
		t.Fatalf("runHistory: %v", err)
	}
	if !strings.Contains(out.String(), "no recorded history") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunStats(t *testing.T) {
	root := t.TempDir()
	seedHistory(t, root, "a", "1", "22")
	if err := os.WriteFile(filepath.Join(root, "b"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runStats(&out, root); err != nil {
		t.Fatalf("runStats: %v", err)
	}
	for _, want := range []string{"Live files:     2 (7 B)", "Tracked files:  1", "Snapshots:      2 (3 B)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, out.String())
		}
	}
}
