// Package ambient carries the cross-cutting concerns (logging today) that
// every pass of the resolver and lowerer shares, threaded as a single
// logger through each pass the way a codegen pipeline threads one
// *log.Logger through its lowering stages.
package ambient

import "github.com/sirupsen/logrus"

// Logger wraps a logrus.Entry pre-seeded with a "component" field, so every
// call site just adds what's specific to it (pass, flavor, name, ...).
type Logger struct {
	entry *logrus.Entry
}

// NewLogger builds a Logger for the given component name, writing
// structured (text) output to logrus's default destination.
func NewLogger(component string) *Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{entry: base.WithField("component", component)}
}

// With returns a derived Logger carrying the extra fields, leaving the
// receiver untouched.
func (l *Logger) With(fields logrus.Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
