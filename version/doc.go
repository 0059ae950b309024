// Package version provides version information and build metadata for versfs.
//
// Version information comes from, in order of preference:
//   - Compile-time variables (Version, Commit, Date) set via -ldflags
//   - Runtime build info from debug.ReadBuildInfo()
//   - Fallback defaults for development builds
//
// Build with:
//
//	go build -ldflags "-X github.com/dendrascience/versfs/version.Version=v1.0.0 -X github.com/dendrascience/versfs/version.Commit=abc123"
//
// GetFullVersion is what the CLI reports for --version and at mount time.
package version
