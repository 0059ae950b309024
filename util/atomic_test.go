package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt,0")

	if err := WriteFileAtomic(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("HELLO!"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic overwrite failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "HELLO!" {
		t.Errorf("Expected %q, got %q", "HELLO!", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if IsTempName(e.Name()) {
			t.Errorf("Temporary file %s left behind", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "a.txt,0")
	err := WriteFileAtomic(path, []byte("x"), 0o600)
	if !os.IsNotExist(err) {
		t.Errorf("Expected IsNotExist error, got %v", err)
	}
}

func TestIsTempName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{".tmp-0b6a1c9e-8f7d-4f4e-9d1e-7a4c2b1e0f00", true},
		{"a.txt,3", false},
		{".version_file.txt", false},
		{"tmp-file", false},
	}
	for _, tt := range tests {
		if got := IsTempName(tt.name); got != tt.expected {
			t.Errorf("IsTempName(%q) = %v, expected %v", tt.name, got, tt.expected)
		}
	}
}

func TestCommitTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.txt,1")

	f, err := CreateTemp(dir, 0o600)
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	if !IsTempName(filepath.Base(f.Name())) {
		t.Errorf("Expected a temporary name, got %s", f.Name())
	}
	if _, err := f.WriteAt([]byte("x"), 1<<20); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	if err := CommitTemp(f, path); err != nil {
		t.Fatalf("CommitTemp failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 1<<20+1 {
		t.Errorf("Expected size %d, got %d", 1<<20+1, info.Size())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
}

func TestDiscardTemp(t *testing.T) {
	dir := t.TempDir()
	f, err := CreateTemp(dir, 0o600)
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	DiscardTemp(f)
	DiscardTemp(nil)

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected empty directory, got %d entries", len(entries))
	}
}
