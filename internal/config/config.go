// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/arpreflect/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `arpreflect:` root key in YAML.
type GlobalConfig struct {
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Trace     TraceConfig     `mapstructure:"trace"`
	Source    SourceConfig    `mapstructure:"source"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Reporters ReportersConfig `mapstructure:"reporters"`
}

// ─── Event sink ───

// SinkConfig sizes the shared event buffer.
type SinkConfig struct {
	CapacityBytes int `mapstructure:"capacity_bytes"` // default 16 MiB
}

// TraceConfig rate-limits malformed-frame diagnostics per source MAC.
type TraceConfig struct {
	MaxPerSource int           `mapstructure:"max_per_source"` // 0 = unlimited
	Window       time.Duration `mapstructure:"window"`
}

// ─── Source ───

// SourceConfig selects where frames come from. Options are decoded by the
// chosen source type (see internal/source).
type SourceConfig struct {
	Type    string                 `mapstructure:"type"` // pcap | afpacket | tap
	Options map[string]interface{} `mapstructure:"options"`
}

// ─── Pipeline ───

// PipelineConfig controls classifier concurrency.
type PipelineConfig struct {
	Workers   int `mapstructure:"workers"`    // 0 = GOMAXPROCS
	QueueSize int `mapstructure:"queue_size"` // frames buffered between reader and workers
}

// ─── Reporters ───

// ReportersConfig configures the event consumers.
type ReportersConfig struct {
	Console  ConsoleReporterConfig  `mapstructure:"console"`
	Neighbor NeighborReporterConfig `mapstructure:"neighbor"`
}

// ConsoleReporterConfig prints every event.
type ConsoleReporterConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Format  string `mapstructure:"format"` // text | json | yaml
}

// NeighborReporterConfig installs neighbor entries for announced addresses.
type NeighborReporterConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Interface    string        `mapstructure:"interface"`
	DedupeWindow time.Duration `mapstructure:"dedupe_window"`
	CacheSize    int           `mapstructure:"cache_size"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level        string           `mapstructure:"level"`  // trace / debug / info / warn / error
	Format       string           `mapstructure:"format"` // json / text / prefixed / pattern
	Pattern      string           `mapstructure:"pattern"`
	TimeFormat   string           `mapstructure:"time_format"`
	ReportCaller bool             `mapstructure:"report_caller"`
	Outputs      LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains log output destinations.
type LogOutputsConfig struct {
	Console ConsoleOutputConfig `mapstructure:"console"`
	File    FileOutputConfig    `mapstructure:"file"`
}

// ConsoleOutputConfig configures console log output.
type ConsoleOutputConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Stream  string `mapstructure:"stream"` // stderr | stdout
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `arpreflect: ...`.
type configRoot struct {
	ARPReflect GlobalConfig `mapstructure:"arpreflect"`
}

// Load loads configuration from file. An empty path yields the defaults.
// Env vars use the ARPREFLECT_ prefix (e.g., ARPREFLECT_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `arpreflect.` key prefix maps to `ARPREFLECT_` through the replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.ARPReflect

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "arpreflect." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("arpreflect.log.level", "info")
	v.SetDefault("arpreflect.log.format", "text")
	v.SetDefault("arpreflect.log.outputs.console.enabled", true)
	v.SetDefault("arpreflect.log.outputs.console.stream", "stderr")
	v.SetDefault("arpreflect.log.outputs.file.enabled", false)
	v.SetDefault("arpreflect.log.outputs.file.path", "/var/log/arpreflect/arpreflect.log")
	v.SetDefault("arpreflect.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("arpreflect.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("arpreflect.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("arpreflect.log.outputs.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("arpreflect.metrics.enabled", false)
	v.SetDefault("arpreflect.metrics.listen", ":9091")
	v.SetDefault("arpreflect.metrics.path", "/metrics")

	// Sink and diagnostics defaults
	v.SetDefault("arpreflect.sink.capacity_bytes", 1<<24)
	v.SetDefault("arpreflect.trace.max_per_source", 10)
	v.SetDefault("arpreflect.trace.window", "10s")

	// Source and pipeline defaults
	v.SetDefault("arpreflect.source.type", "pcap")
	v.SetDefault("arpreflect.pipeline.workers", 0)
	v.SetDefault("arpreflect.pipeline.queue_size", 4096)

	// Reporter defaults
	v.SetDefault("arpreflect.reporters.console.enabled", true)
	v.SetDefault("arpreflect.reporters.console.format", "text")
	v.SetDefault("arpreflect.reporters.neighbor.enabled", false)
	v.SetDefault("arpreflect.reporters.neighbor.dedupe_window", "1m")
	v.SetDefault("arpreflect.reporters.neighbor.cache_size", 4096)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text", "prefixed", "pattern":
	default:
		return fmt.Errorf("%w: log format %q (must be json/text/prefixed/pattern)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Sink ──
	if cfg.Sink.CapacityBytes <= 0 {
		return fmt.Errorf("%w: sink.capacity_bytes must be positive, got %d", core.ErrConfigInvalid, cfg.Sink.CapacityBytes)
	}
	if cfg.Trace.MaxPerSource < 0 {
		return fmt.Errorf("%w: trace.max_per_source must not be negative", core.ErrConfigInvalid)
	}

	// ── Source ──
	switch cfg.Source.Type {
	case "pcap", "afpacket", "tap":
	default:
		return fmt.Errorf("%w: source.type %q (must be pcap/afpacket/tap)", core.ErrConfigInvalid, cfg.Source.Type)
	}

	// ── Pipeline ──
	if cfg.Pipeline.Workers < 0 {
		return fmt.Errorf("%w: pipeline.workers must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("%w: pipeline.queue_size must be positive", core.ErrConfigInvalid)
	}

	// ── Reporters ──
	switch cfg.Reporters.Console.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: reporters.console.format %q (must be text/json/yaml)", core.ErrConfigInvalid, cfg.Reporters.Console.Format)
	}
	if nb := &cfg.Reporters.Neighbor; nb.Enabled {
		if nb.Interface == "" {
			return fmt.Errorf("%w: reporters.neighbor.interface is required when the neighbor reporter is enabled", core.ErrConfigInvalid)
		}
		if nb.DedupeWindow < 0 {
			return fmt.Errorf("%w: reporters.neighbor.dedupe_window must not be negative", core.ErrConfigInvalid)
		}
		if nb.CacheSize <= 0 {
			nb.CacheSize = 4096
		}
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics are enabled", core.ErrConfigInvalid)
	}

	return nil
}
