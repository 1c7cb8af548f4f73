// Package neighbor installs the sender of each ARP event into the kernel
// neighbor table, at most once per address within a dedupe window.
package neighbor

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/projectdiscovery/gcache"

	"firestige.xyz/arpreflect/internal/core"
	"firestige.xyz/arpreflect/internal/log"
)

const Name = "neighbor"

const (
	DefaultDedupeWindow = time.Minute
	DefaultCacheSize    = 4096
)

// Writer installs one neighbor entry.
type Writer interface {
	SetNeighbor(ip netip.Addr, mac net.HardwareAddr) error
}

// Config configures the reporter.
type Config struct {
	DedupeWindow time.Duration
	CacheSize    int
}

// Reporter dedupes events by sender protocol address before handing them to
// a Writer. Concurrent use is safe; the consumer loop calls it from a single
// goroutine in practice.
type Reporter struct {
	writer Writer
	seen   gcache.Cache[netip.Addr, struct{}]
	logger log.Logger

	installed atomic.Uint64
	skipped   atomic.Uint64
}

// New returns a reporter installing entries through w.
func New(w Writer, cfg Config) *Reporter {
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = DefaultDedupeWindow
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	return &Reporter{
		writer: w,
		seen: gcache.New[netip.Addr, struct{}](cfg.CacheSize).
			LRU().
			Expiration(cfg.DedupeWindow).
			Build(),
		logger: log.GetLogger().WithField("reporter", Name),
	}
}

func (r *Reporter) Name() string {
	return Name
}

// Report installs the event's sender unless it was installed within the
// dedupe window. Probes with an unspecified sender address are skipped.
func (r *Reporter) Report(ctx context.Context, ev core.Event) error {
	ip := ev.ProtocolAddr()
	if !ip.IsValid() || ip.IsUnspecified() {
		r.skipped.Add(1)
		return nil
	}
	if r.seen.Has(ip) {
		r.skipped.Add(1)
		return nil
	}

	mac := ev.HardwareAddr()
	if err := r.writer.SetNeighbor(ip, mac); err != nil {
		return fmt.Errorf("install neighbor %s at %s: %w", ip, mac, err)
	}
	_ = r.seen.Set(ip, struct{}{})
	r.installed.Add(1)

	if r.logger.IsDebugEnabled() {
		r.logger.WithFields(map[string]interface{}{
			"ip":  ip.String(),
			"mac": mac.String(),
		}).Debug("neighbor installed")
	}
	return nil
}

func (r *Reporter) Flush(ctx context.Context) error {
	return nil
}

// Installed returns the number of entries written.
func (r *Reporter) Installed() uint64 {
	return r.installed.Load()
}

// Skipped returns the number of events suppressed by the dedupe window.
func (r *Reporter) Skipped() uint64 {
	return r.skipped.Load()
}
