// Package diaglog is a thin, leveled wrapper over the standard
// library's log.Logger, grounded in the teacher corpus's own log
// package conventions (a *Logger wrapping an io.Writer, a package-level
// "std" default). It is for ordinary progress messages only — demo
// and debug harness output — never for the sanitizer's own fatal or
// leak reports, which must stay on the raw, unbuffered path in
// sanitize/diagnostic (see SPEC_FULL.md's Ambient Stack notes).
package diaglog

import (
	"io"
	"log"
	"os"
)

// Logger prefixes every line with "[alloc-demo]" and a timestamp,
// following the teacher's own LstdFlags convention.
type Logger struct {
	l *log.Logger
}

// New returns a Logger writing to out.
func New(out io.Writer) *Logger {
	return &Logger{l: log.New(out, "[alloc-demo] ", log.LstdFlags)}
}

// Default is the package-level logger, writing to stderr, mirroring
// the teacher's own package-level "std" Logger.
var Default = New(os.Stderr)

// Infof logs a formatted progress message.
func (lg *Logger) Infof(format string, args ...any) {
	lg.l.Printf(format, args...)
}

// Info logs a progress message.
func (lg *Logger) Info(args ...any) {
	lg.l.Print(args...)
}
