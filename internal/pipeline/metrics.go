package pipeline

import (
	"errors"
	"sync/atomic"

	"firestige.xyz/arpreflect/internal/core"
	"firestige.xyz/arpreflect/internal/core/decoder"
	"firestige.xyz/arpreflect/internal/metrics"
)

// Metrics contains per-pipeline counters. Every update is mirrored to the
// process-wide Prometheus collectors.
type Metrics struct {
	Source string

	Received      atomic.Uint64
	ReadErrors    atomic.Uint64
	Forwarded     atomic.Uint64
	Dropped       atomic.Uint64
	Emitted       atomic.Uint64
	Lost          atomic.Uint64
	ForwardErrors atomic.Uint64
	Consumed      atomic.Uint64
	Reported      atomic.Uint64
	ReportErrors  atomic.Uint64

	dropTooShort    atomic.Uint64
	dropUnsupported atomic.Uint64
	dropTruncated   atomic.Uint64
}

// NewMetrics creates a new metrics instance.
func NewMetrics(source string) *Metrics {
	return &Metrics{Source: source}
}

// Stats represents pipeline statistics.
type Stats struct {
	Received      uint64
	ReadErrors    uint64
	Forwarded     uint64
	Dropped       uint64
	Emitted       uint64
	Lost          uint64
	ForwardErrors uint64
	Consumed      uint64
	Reported      uint64
	ReportErrors  uint64
	DropReasons   map[string]uint64
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Stats {
	return Stats{
		Received:      m.Received.Load(),
		ReadErrors:    m.ReadErrors.Load(),
		Forwarded:     m.Forwarded.Load(),
		Dropped:       m.Dropped.Load(),
		Emitted:       m.Emitted.Load(),
		Lost:          m.Lost.Load(),
		ForwardErrors: m.ForwardErrors.Load(),
		Consumed:      m.Consumed.Load(),
		Reported:      m.Reported.Load(),
		ReportErrors:  m.ReportErrors.Load(),
		DropReasons: map[string]uint64{
			reasonTooShort:    m.dropTooShort.Load(),
			reasonUnsupported: m.dropUnsupported.Load(),
			reasonTruncated:   m.dropTruncated.Load(),
		},
	}
}

const (
	reasonTooShort    = "too_short"
	reasonUnsupported = "unsupported_proto"
	reasonTruncated   = "field_truncated"
	reasonOther       = "other"
)

// DropReason maps a classifier drop reason to its metric label.
func DropReason(err error) string {
	switch {
	case errors.Is(err, core.ErrPacketTooShort):
		return reasonTooShort
	case errors.Is(err, core.ErrUnsupportedProto):
		return reasonUnsupported
	case errors.Is(err, core.ErrFieldTruncated):
		return reasonTruncated
	default:
		return reasonOther
	}
}

func (m *Metrics) recordReceived() {
	m.Received.Add(1)
	metrics.CaptureFramesTotal.WithLabelValues(m.Source).Inc()
}

func (m *Metrics) recordOutcome(out decoder.Outcome) {
	metrics.ClassifyVerdictsTotal.WithLabelValues(out.Verdict.String()).Inc()

	switch out.State {
	case decoder.StateDrop:
		m.Dropped.Add(1)
		reason := DropReason(out.Reason)
		switch reason {
		case reasonTooShort:
			m.dropTooShort.Add(1)
		case reasonUnsupported:
			m.dropUnsupported.Add(1)
		case reasonTruncated:
			m.dropTruncated.Add(1)
		}
		metrics.ClassifyDropsTotal.WithLabelValues(reason).Inc()
		return
	case decoder.StateAccept:
		m.Emitted.Add(1)
		metrics.SinkEventsTotal.WithLabelValues("emitted").Inc()
	case decoder.StateAcceptNoEvent:
		m.Lost.Add(1)
		metrics.SinkEventsTotal.WithLabelValues("lost").Inc()
	}
	m.Forwarded.Add(1)
}

func (m *Metrics) recordConsumed(pending int) {
	m.Consumed.Add(1)
	metrics.SinkPendingEvents.Set(float64(pending))
}

func (m *Metrics) recordReported(reporter string) {
	m.Reported.Add(1)
	metrics.ReporterEventsTotal.WithLabelValues(reporter).Inc()
}

func (m *Metrics) recordReportError(reporter string) {
	m.ReportErrors.Add(1)
	metrics.ReporterErrorsTotal.WithLabelValues(reporter).Inc()
}
