package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation controls how the log file is rotated.
type Rotation struct {
	MaxSize    int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAge     int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// Options configures a Logger.
type Options struct {
	File     string   `yaml:"file"`
	Verbose  bool     `yaml:"verbose"`
	Quiet    bool     `yaml:"quiet"` // no stderr output
	Rotation Rotation `yaml:"rotation"`
}

// DefaultRotation mirrors the rotation defaults used for service logs.
var DefaultRotation = Rotation{
	MaxSize:    128,
	MaxBackups: 5,
	MaxAge:     16,
}

// Logger is a leveled wrapper around the standard library logger.
// Safe for concurrent use by multiple goroutines.
type Logger struct {
	l       *log.Logger
	verbose bool
	closer  io.Closer
}

// New builds a Logger from opts.
func New(prefix string, opts Options) *Logger {
	var writers []io.Writer
	if !opts.Quiet {
		writers = append(writers, os.Stderr)
	}

	var closer io.Closer
	if opts.File != "" {
		rot := opts.Rotation
		if rot == (Rotation{}) {
			rot = DefaultRotation
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    rot.MaxSize,
			MaxBackups: rot.MaxBackups,
			MaxAge:     rot.MaxAge,
			Compress:   rot.Compress,
		}
		writers = append(writers, lj)
		closer = lj
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	return &Logger{
		l:       log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
		verbose: opts.Verbose,
		closer:  closer,
	}
}

// NewWriter builds a Logger that writes everything to w.
func NewWriter(w io.Writer, verbose bool) *Logger {
	return &Logger{l: log.New(w, "", 0), verbose: verbose}
}

// Discard returns a Logger that drops all output.
func Discard() *Logger {
	return NewWriter(io.Discard, false)
}

// Verbosef logs diagnostic detail when verbose mode is enabled.
func (l *Logger) Verbosef(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.l.Printf("[VERBOSE] "+format, args...)
}

// Infof logs normal operational messages.
func (l *Logger) Infof(format string, args ...any) {
	l.l.Printf(format, args...)
}

// Warnf logs recoverable problems.
func (l *Logger) Warnf(format string, args ...any) {
	l.l.Printf("[WARN] "+format, args...)
}

// Errorf logs failures.
func (l *Logger) Errorf(format string, args ...any) {
	l.l.Printf("[ERROR] "+format, args...)
}

// IsVerbose reports whether Verbosef produces output.
func (l *Logger) IsVerbose() bool {
	return l.verbose
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
