package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"firestige.xyz/arpreflect/internal/config"
)

const (
	defaultPattern    = "%time [%level] %msg %field\n"
	defaultTimeFormat = "2006-01-02 15:04:05.000"
)

var (
	initMu sync.Mutex
	// current is the output installed by the last Init; it owns the file
	// appenders that must be closed when the output is replaced.
	current *MultiWriter
)

// Init configures the global logger from cfg. Calling it again reconfigures
// the same logger in place and closes the file appenders of the previous
// configuration.
func Init(cfg config.LogConfig) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	formatter, err := newFormatter(cfg)
	if err != nil {
		return err
	}

	out := NewMultiWriter()
	if cfg.Outputs.Console.Enabled {
		w, err := consoleWriter(cfg.Outputs.Console.Stream)
		if err != nil {
			return fmt.Errorf("failed to create console output: %w", err)
		}
		out.Add(w)
	}
	if cfg.Outputs.File.Enabled {
		if err := out.AddFileAppender(cfg.Outputs.File); err != nil {
			out.Close()
			return fmt.Errorf("failed to create file output: %w", err)
		}
	}

	initMu.Lock()
	defer initMu.Unlock()

	std.SetLevel(level)
	std.SetFormatter(formatter)
	std.SetReportCaller(cfg.ReportCaller)
	if out.Len() == 0 {
		std.SetOutput(io.Discard)
	} else {
		std.SetOutput(out)
	}

	// SetOutput holds the logger mutex, so no write is still using prev.
	prev := current
	current = out
	if prev != nil {
		if err := prev.Close(); err != nil {
			return fmt.Errorf("failed to close previous log output: %w", err)
		}
	}
	return nil
}

// parseLevel accepts the levels the config validator allows.
func parseLevel(levelStr string) (logrus.Level, error) {
	switch strings.ToLower(levelStr) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown level: %s", levelStr)
	}
}

func newFormatter(cfg config.LogConfig) (logrus.Formatter, error) {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = defaultTimeFormat
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return &logrus.JSONFormatter{TimestampFormat: timeFormat}, nil
	case "text":
		return &logrus.TextFormatter{TimestampFormat: timeFormat, FullTimestamp: true, DisableColors: true}, nil
	case "prefixed":
		return &prefixed.TextFormatter{TimestampFormat: timeFormat, FullTimestamp: true, ForceFormatting: true, DisableColors: true}, nil
	case "pattern":
		pattern := cfg.Pattern
		if pattern == "" {
			pattern = defaultPattern
		}
		return &formatter{pattern: pattern, time: timeFormat}, nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s (must be json, text, prefixed or pattern)", cfg.Format)
	}
}

func consoleWriter(stream string) (io.Writer, error) {
	switch strings.ToLower(stream) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return nil, fmt.Errorf("unknown console stream: %s", stream)
	}
}
