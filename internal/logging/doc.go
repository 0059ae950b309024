// Package logging provides the leveled logger shared by versfs components.
//
// Output goes to stderr and, when a file is configured, to a size-rotated log
// file managed by lumberjack. Components receive a *Logger at construction
// time; there is no package-level logger.
package logging
