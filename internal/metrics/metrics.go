// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CaptureFramesTotal counts frames read from a source
	CaptureFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arpreflect_capture_frames_total",
			Help: "Total number of frames read from the source",
		},
		[]string{"source"},
	)

	// ClassifyVerdictsTotal counts classifier verdicts
	ClassifyVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arpreflect_classify_verdicts_total",
			Help: "Total number of classifier verdicts by verdict",
		},
		[]string{"verdict"},
	)

	// ClassifyDropsTotal counts dropped frames by reason
	ClassifyDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arpreflect_classify_drops_total",
			Help: "Total number of dropped frames by reason",
		},
		[]string{"reason"},
	)

	// SinkEventsTotal counts events emitted into the sink and events lost to a full sink
	SinkEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arpreflect_sink_events_total",
			Help: "Total number of events by result (emitted, lost)",
		},
		[]string{"result"},
	)

	// SinkPendingEvents tracks submitted events waiting for the consumer
	SinkPendingEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arpreflect_sink_pending_events",
			Help: "Number of submitted events not yet consumed",
		},
	)

	// ReporterEventsTotal counts events handled by each reporter
	ReporterEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arpreflect_reporter_events_total",
			Help: "Total number of events handled per reporter",
		},
		[]string{"reporter"},
	)

	// ReporterErrorsTotal counts reporter errors by name
	ReporterErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arpreflect_reporter_errors_total",
			Help: "Total number of reporter errors",
		},
		[]string{"reporter"},
	)
)
