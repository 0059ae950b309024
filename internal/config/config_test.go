package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPathsOverlap(t *testing.T) {
	tests := []struct {
		name     string
		path1    string
		path2    string
		expected bool
	}{
		{
			name:     "identical paths",
			path1:    "/tmp/storage",
			path2:    "/tmp/storage",
			expected: true,
		},
		{
			name:     "path1 contains path2",
			path1:    "/tmp/storage/data",
			path2:    "/tmp/storage",
			expected: true,
		},
		{
			name:     "path2 contains path1",
			path1:    "/tmp/storage",
			path2:    "/tmp/storage/mount",
			expected: true,
		},
		{
			name:     "completely separate paths",
			path1:    "/tmp/storage",
			path2:    "/mnt/mount",
			expected: false,
		},
		{
			name:     "sibling directories",
			path1:    "/tmp/storage",
			path2:    "/tmp/mount",
			expected: false,
		},
		{
			name:     "shared name prefix",
			path1:    "/tmp/storage",
			path2:    "/tmp/storage2",
			expected: false,
		},
		{
			name:     "trailing slash",
			path1:    "/tmp/storage/",
			path2:    "/tmp/storage",
			expected: true,
		},
		{
			name:     "relative paths - overlapping",
			path1:    "storage",
			path2:    "storage/mount",
			expected: true,
		},
		{
			name:     "relative paths - separate",
			path1:    "storage",
			path2:    "mount",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PathsOverlap(tt.path1, tt.path2)
			if result != tt.expected {
				t.Errorf("PathsOverlap(%q, %q) = %v, expected %v", tt.path1, tt.path2, result, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	base := t.TempDir()
	storage := filepath.Join(base, "storage")
	mount := filepath.Join(base, "mnt")
	os.Mkdir(storage, 0o755)
	os.Mkdir(mount, 0o755)
	file := filepath.Join(base, "file")
	os.WriteFile(file, nil, 0o644)

	tests := []struct {
		name     string
		cfg      Config
		expected error
	}{
		{name: "valid", cfg: Config{BackingRoot: storage, MountPoint: mount}},
		{name: "missing backing root", cfg: Config{MountPoint: mount}, expected: ErrMissingPath},
		{name: "missing mount point", cfg: Config{BackingRoot: storage}, expected: ErrMissingPath},
		{name: "relative backing root", cfg: Config{BackingRoot: "storage", MountPoint: mount}, expected: ErrNotAbsolute},
		{name: "relative mount point", cfg: Config{BackingRoot: storage, MountPoint: "mnt"}, expected: ErrNotAbsolute},
		{name: "backing root is a file", cfg: Config{BackingRoot: file, MountPoint: mount}, expected: ErrNotDir},
		{name: "backing root missing", cfg: Config{BackingRoot: filepath.Join(base, "nope"), MountPoint: mount}, expected: os.ErrNotExist},
		{name: "mount inside storage", cfg: Config{BackingRoot: storage, MountPoint: filepath.Join(storage, "mnt")}, expected: ErrOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expected == nil {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.expected) {
				t.Errorf("Validate() error = %v, expected %v", err, tt.expected)
			}
		})
	}
}

func TestParseMountOptions(t *testing.T) {
	cfg := Config{Options: []string{"allow_other,fsname=archive", "ro", "noatime, default_permissions", "uid=1000"}}
	opts, unknown := cfg.ParseMountOptions()

	expected := MountOptions{
		AllowOther:         true,
		ReadOnly:           true,
		DefaultPermissions: true,
		FSName:             "archive",
	}
	if opts != expected {
		t.Errorf("ParseMountOptions() = %+v, expected %+v", opts, expected)
	}
	if !reflect.DeepEqual(unknown, []string{"noatime", "uid=1000"}) {
		t.Errorf("Unexpected unknown options %v", unknown)
	}

	empty := Config{}
	opts, unknown = empty.ParseMountOptions()
	if opts.FSName != DefaultFSName || len(unknown) != 0 {
		t.Errorf("Unexpected defaults %+v %v", opts, unknown)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "versfs.yaml")
	content := `backing_root: /srv/storage
mount_point: /mnt/versfs
options:
  - allow_other
log:
  file: /var/log/versfs.log
  verbose: true
  rotation:
    max_size_mb: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BackingRoot != "/srv/storage" || cfg.MountPoint != "/mnt/versfs" {
		t.Errorf("Unexpected paths %q %q", cfg.BackingRoot, cfg.MountPoint)
	}
	if len(cfg.Options) != 1 || cfg.Options[0] != "allow_other" {
		t.Errorf("Unexpected options %v", cfg.Options)
	}
	if !cfg.Log.Verbose || cfg.Log.File != "/var/log/versfs.log" || cfg.Log.Rotation.MaxSize != 10 {
		t.Errorf("Unexpected log options %+v", cfg.Log)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}
