// Package logging provides the process-wide structured logger and the
// status-file writer used by the simulator, partitioner, and analyzer
// tools. It plays the role the teacher's logger.go plays for simulation
// output, but for operational/diagnostic logging rather than data output.
package logging

import (
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Kind classifies an error the way §7 of the specification requires.
type Kind string

const (
	ConfigurationError Kind = "configuration"
	ResourceError      Kind = "resource"
	SemanticError      Kind = "semantic"
	RuntimeError       Kind = "runtime"
)

// Flag is the process-wide fatal-error flag. Logger.Error sets it and
// Logger.Warn counts warnings; cmd/epihiper checks it once the run has
// returned, and the driver does not read it during the tick loop.
type Flag struct {
	set      atomic.Bool
	warnings atomic.Int64
}

func (f *Flag) SetError()        { f.set.Store(true) }
func (f *Flag) IsSet() bool      { return f.set.Load() }
func (f *Flag) Warn()            { f.warnings.Add(1) }
func (f *Flag) Warnings() int64  { return f.warnings.Load() }

// Logger wraps a logrus.Logger with the single-line structured entries
// mandated by §7: every error/warn record carries a "kind" field.
type Logger struct {
	*logrus.Logger
	flag *Flag
}

// New builds a Logger writing to stderr in the given level, formatted as
// logfmt-style text (logrus' default TextFormatter), mirroring ployz's
// convention of leaving JSON formatting to the daemon boundary only.
func New(level string, flag *Flag) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return &Logger{Logger: l, flag: flag}
}

// Error logs a fatal-class structured entry and sets the process-wide flag.
func (l *Logger) Error(kind Kind, msg string, fields logrus.Fields) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["kind"] = string(kind)
	l.WithFields(fields).Error(msg)
	if l.flag != nil {
		l.flag.SetError()
	}
}

// Warn logs a recoverable-class structured entry and increments the
// warning counter without setting the fatal flag.
func (l *Logger) Warn(kind Kind, msg string, fields logrus.Fields) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["kind"] = string(kind)
	l.WithFields(fields).Warn(msg)
	if l.flag != nil {
		l.flag.Warn()
	}
}
