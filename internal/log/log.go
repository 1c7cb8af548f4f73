// Package log provides the process-wide logger backed by logrus.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	Panic(args ...interface{})
	Panicf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

// std is the single process-wide logrus logger. Init reconfigures it in
// place, so loggers derived from GetLogger before a reload follow it.
var (
	std    = logrus.New()
	global Logger
)

func init() {
	std.SetOutput(os.Stderr)
	std.SetLevel(logrus.InfoLevel)
	global = &logrusAdapter{entry: logrus.NewEntry(std)}
}

// GetLogger returns the global logger. It is usable before Init.
func GetLogger() Logger {
	return global
}

// NewLogger wraps an existing logrus logger.
func NewLogger(l *logrus.Logger) Logger {
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}
