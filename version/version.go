package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Set with -ldflags -X; the build info embedded by the Go toolchain is used
// for whatever is left at its default.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Module    string `json:"module"`
	GoVersion string `json:"go_version"`
}

var buildInfo = sync.OnceValue(func() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
})

func setting(key string) string {
	if bi := buildInfo(); bi != nil {
		for _, s := range bi.Settings {
			if s.Key == key {
				return s.Value
			}
		}
	}
	return ""
}

// Get collects version information for the running binary.
func Get() Info {
	info := Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Module:  "github.com/dendrascience/versfs",
	}
	bi := buildInfo()
	if bi != nil {
		info.GoVersion = bi.GoVersion
		if bi.Main.Path != "" {
			info.Module = bi.Main.Path
		}
	}

	if info.Version == "dev" || info.Version == "" {
		info.Version = "development"
		if bi != nil && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	if info.Commit == "unknown" || info.Commit == "" {
		if rev := setting("vcs.revision"); rev != "" {
			info.Commit = rev
			if setting("vcs.modified") == "true" {
				info.Commit += "-dirty"
			}
		}
	}
	if info.Date == "unknown" || info.Date == "" {
		if t := setting("vcs.time"); t != "" {
			info.Date = t
		}
	}
	return info
}

// String formats the version with a short commit and the build date when
// they are known.
func (i Info) String() string {
	if i.Commit == "unknown" || len(i.Commit) <= 7 {
		return i.Version
	}
	if i.Date != "unknown" {
		return fmt.Sprintf("%s (%s, built %s)", i.Version, i.Commit[:7], i.Date)
	}
	return fmt.Sprintf("%s (%s)", i.Version, i.Commit[:7])
}

// GetVersion returns the bare version string.
func GetVersion() string {
	return Get().Version
}

// GetFullVersion returns the version with commit and build date.
func GetFullVersion() string {
	return Get().String()
}
