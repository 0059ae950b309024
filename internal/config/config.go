// Package config holds the mount-time configuration for versfs.
//
// Values come from an optional YAML file and are overridden by command-line
// arguments. Validate is called once at startup; a Config that passed
// validation is passed explicitly to every component that needs it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dendrascience/versfs/internal/logging"
	"gopkg.in/yaml.v3"
)

var (
	// ErrConfigNotFound is returned when the config file does not exist.
	// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
	ErrConfigNotFound = errors.New("config file not found")

	ErrMissingPath = errors.New("path is required")
	ErrNotAbsolute = errors.New("path must be absolute")
	ErrNotDir      = errors.New("backing root is not a directory")
	ErrOverlap     = errors.New("backing root and mount point overlap")
)

// DefaultFSName is reported to the kernel when no fsname option is given.
const DefaultFSName = "versfs"

type Config struct {
	BackingRoot string          `yaml:"backing_root"`
	MountPoint  string          `yaml:"mount_point"`
	Options     []string        `yaml:"options"`
	Log         logging.Options `yaml:"log"`
	DebugFUSE   bool            `yaml:"debug_fuse"`
}

// MountOptions are the -o options versfs understands.
type MountOptions struct {
	AllowOther         bool
	ReadOnly           bool
	DefaultPermissions bool
	FSName             string
}

// Load reads a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the backing root and mount point.
func (c *Config) Validate() error {
	if c.BackingRoot == "" {
		return fmt.Errorf("backing root: %w", ErrMissingPath)
	}
	if c.MountPoint == "" {
		return fmt.Errorf("mount point: %w", ErrMissingPath)
	}
	if !filepath.IsAbs(c.BackingRoot) {
		return fmt.Errorf("backing root %q: %w", c.BackingRoot, ErrNotAbsolute)
	}
	if !filepath.IsAbs(c.MountPoint) {
		return fmt.Errorf("mount point %q: %w", c.MountPoint, ErrNotAbsolute)
	}

	info, err := os.Stat(c.BackingRoot)
	if err != nil {
		return fmt.Errorf("backing root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", c.BackingRoot, ErrNotDir)
	}

	if PathsOverlap(c.BackingRoot, c.MountPoint) {
		return fmt.Errorf("%s and %s: %w", c.BackingRoot, c.MountPoint, ErrOverlap)
	}
	return nil
}

// ParseMountOptions splits comma separated -o values and returns the
// recognised options along with every option it did not recognise.
func (c *Config) ParseMountOptions() (MountOptions, []string) {
	opts := MountOptions{FSName: DefaultFSName}
	var unknown []string

	for _, group := range c.Options {
		for _, opt := range strings.Split(group, ",") {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				continue
			}
			key, value, _ := strings.Cut(opt, "=")
			switch key {
			case "allow_other":
				opts.AllowOther = true
			case "ro":
				opts.ReadOnly = true
			case "rw":
				opts.ReadOnly = false
			case "default_permissions":
				opts.DefaultPermissions = true
			case "fsname":
				if value != "" {
					opts.FSName = value
				}
			default:
				unknown = append(unknown, opt)
			}
		}
	}
	return opts, unknown
}

// PathsOverlap reports whether one path equals or contains the other.
func PathsOverlap(path1, path2 string) bool {
	p1 := filepath.Clean(path1)
	p2 := filepath.Clean(path2)
	if p1 == p2 {
		return true
	}
	return hasPathPrefix(p1, p2) || hasPathPrefix(p2, p1)
}

func hasPathPrefix(path, prefix string) bool {
	if prefix == string(filepath.Separator) {
		return strings.HasPrefix(path, prefix)
	}
	return strings.HasPrefix(path, prefix+string(filepath.Separator))
}
