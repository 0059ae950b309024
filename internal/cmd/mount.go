package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/spf13/cobra"

	"github.com/dendrascience/versfs/history"
	"github.com/dendrascience/versfs/internal/config"
	"github.com/dendrascience/versfs/internal/logging"
	"github.com/dendrascience/versfs/internal/pathmap"
	"github.com/dendrascience/versfs/version"
	"github.com/dendrascience/versfs/versfs"
)

// NewMountCmd creates and returns the mount subcommand for the versfs CLI.
// It handles mounting a backing directory at the specified mountpoint.
func NewMountCmd() *cobra.Command {
	var (
		configPath string
		options    []string
		logFile    string
		verbose    bool
		debugFUSE  bool
	)

	cmd := &cobra.Command{
		Use:   "mount BACKING_ROOT MOUNTPOINT",
		Short: "Mount a backing directory with version history",
		Long: `Mount BACKING_ROOT at MOUNTPOINT.

BACKING_ROOT is an existing directory holding the live files and their
history areas. MOUNTPOINT is the directory where the filesystem will be
mounted. Both must be absolute and must not contain each other.

Both paths may instead come from a YAML file given with --config; arguments
on the command line take precedence.

Recognised -o options: allow_other, ro, rw, default_permissions, fsname=NAME.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return cobra.MaximumNArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if len(args) > 0 {
				cfg.BackingRoot = args[0]
			}
			if len(args) > 1 {
				cfg.MountPoint = args[1]
			}
			cfg.Options = append(cfg.Options, options...)
			if logFile != "" {
				cfg.Log.File = logFile
			}
			cfg.Log.Verbose = cfg.Log.Verbose || verbose || debugFUSE
			cfg.DebugFUSE = cfg.DebugFUSE || debugFUSE

			return runMount(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringArrayVarP(&options, "option", "o", nil, "Mount options, comma separated (repeatable)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Also write logs to this file, rotated")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.Flags().BoolVar(&debugFUSE, "debug-fuse", false, "Log every FUSE request and response")

	return cmd
}

func runMount(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New("versfs: ", cfg.Log)
	defer log.Close()

	opts, unknown := cfg.ParseMountOptions()
	for _, opt := range unknown {
		log.Warnf("ignoring unsupported mount option %q", opt)
	}

	paths, err := pathmap.New(cfg.BackingRoot)
	if err != nil {
		return err
	}
	filesystem := versfs.New(history.New(paths, log), log)

	c, err := fuse.Mount(cfg.MountPoint, mountOptions(opts)...)
	if err != nil {
		return fmt.Errorf("mount %s: %w", cfg.MountPoint, err)
	}
	defer c.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		log.Infof("Received interrupt signal, unmounting %s...", cfg.MountPoint)
		if err := fuse.Unmount(cfg.MountPoint); err != nil {
			log.Errorf("unmount %s: %v", cfg.MountPoint, err)
		}
	}()

	var fsConfig fs.Config
	if cfg.DebugFUSE {
		fsConfig.Debug = func(msg interface{}) {
			log.Verbosef("fuse: %v", msg)
		}
	}

	log.Infof("versfs %s mounted at %s (backing: %s)", version.GetVersion(), cfg.MountPoint, cfg.BackingRoot)
	if err := fs.New(c, &fsConfig).Serve(filesystem); err != nil {
		return fmt.Errorf("serve %s: %w", cfg.MountPoint, err)
	}
	log.Infof("Shutdown complete")
	return nil
}

// mountOptions converts the recognised -o options into bazil mount options.
func mountOptions(opts config.MountOptions) []fuse.MountOption {
	out := []fuse.MountOption{
		fuse.FSName(opts.FSName),
		fuse.Subtype("versfs"),
	}
	if opts.AllowOther {
		out = append(out, fuse.AllowOther())
	}
	if opts.ReadOnly {
		out = append(out, fuse.ReadOnly())
	}
	if opts.DefaultPermissions {
		out = append(out, fuse.DefaultPermissions())
	}
	return out
}
