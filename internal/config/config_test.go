package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/arpreflect/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
arpreflect:
  log:
    level: "debug"
    format: "json"
  metrics:
    enabled: true
    listen: "127.0.0.1:9100"
  sink:
    capacity_bytes: 65536
  source:
    type: "afpacket"
    options:
      device: "eth0"
      arp_only: true
  pipeline:
    workers: 4
    queue_size: 128
  reporters:
    console:
      format: "yaml"
    neighbor:
      enabled: true
      interface: "br0"
      dedupe_window: "30s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Listen)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 65536, cfg.Sink.CapacityBytes)
	assert.Equal(t, "afpacket", cfg.Source.Type)
	assert.Equal(t, "eth0", cfg.Source.Options["device"])
	assert.Equal(t, true, cfg.Source.Options["arp_only"])
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 128, cfg.Pipeline.QueueSize)
	assert.True(t, cfg.Reporters.Console.Enabled)
	assert.Equal(t, "yaml", cfg.Reporters.Console.Format)
	assert.True(t, cfg.Reporters.Neighbor.Enabled)
	assert.Equal(t, "br0", cfg.Reporters.Neighbor.Interface)
	assert.Equal(t, 30*time.Second, cfg.Reporters.Neighbor.DedupeWindow)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Log.Outputs.Console.Enabled)
	assert.Equal(t, "stderr", cfg.Log.Outputs.Console.Stream)
	assert.Equal(t, 1<<24, cfg.Sink.CapacityBytes)
	assert.Equal(t, 10, cfg.Trace.MaxPerSource)
	assert.Equal(t, 10*time.Second, cfg.Trace.Window)
	assert.Equal(t, "pcap", cfg.Source.Type)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Pipeline.Workers)
	assert.Equal(t, 4096, cfg.Pipeline.QueueSize)
	assert.False(t, cfg.Reporters.Neighbor.Enabled)
	assert.Equal(t, time.Minute, cfg.Reporters.Neighbor.DedupeWindow)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ARPREFLECT_LOG_LEVEL", "trace")
	t.Setenv("ARPREFLECT_SINK_CAPACITY_BYTES", "4096")

	cfg, err := Load(writeConfig(t, "arpreflect:\n  log:\n    level: info\n"))
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.Log.Level)
	assert.Equal(t, 4096, cfg.Sink.CapacityBytes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "arpreflect:\n  log:\n    level: verbose\n"},
		{"log format", "arpreflect:\n  log:\n    format: xml\n"},
		{"sink capacity", "arpreflect:\n  sink:\n    capacity_bytes: 0\n"},
		{"source type", "arpreflect:\n  source:\n    type: netmap\n"},
		{"workers", "arpreflect:\n  pipeline:\n    workers: -1\n"},
		{"queue size", "arpreflect:\n  pipeline:\n    queue_size: 0\n"},
		{"console format", "arpreflect:\n  reporters:\n    console:\n      format: csv\n"},
		{"neighbor interface", "arpreflect:\n  reporters:\n    neighbor:\n      enabled: true\n"},
		{"file path", "arpreflect:\n  log:\n    outputs:\n      file:\n        enabled: true\n        path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}
