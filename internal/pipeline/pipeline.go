// Package pipeline wires a frame source, the classifier, the event sink and
// the reporters together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"firestige.xyz/arpreflect/internal/core"
	"firestige.xyz/arpreflect/internal/core/decoder"
	"firestige.xyz/arpreflect/internal/log"
	"firestige.xyz/arpreflect/internal/source"
)

// Reporter consumes events drained from the sink. Report errors are logged
// and counted, never fatal.
type Reporter interface {
	Name() string
	Report(ctx context.Context, ev core.Event) error
	Flush(ctx context.Context) error
}

// Forwarder receives every frame the classifier forwards.
type Forwarder interface {
	Forward(pkt core.RawPacket) error
}

// EventReader is the consumer side of the sink.
type EventReader interface {
	Read(ctx context.Context) (core.Event, error)
	Len() int
	Close() error
}

// interrupter is implemented by sources whose reads block indefinitely.
type interrupter interface {
	Interrupt() error
}

// Config contains pipeline configuration.
type Config struct {
	Name       string // source label for metrics
	Source     source.Source
	Classifier decoder.FrameClassifier
	Events     EventReader
	Forwarder  Forwarder
	Reporters  []Reporter
	Workers    int
	QueueSize  int
}

// Pipeline runs one reader, a pool of classifier workers and one consumer.
// The reader hands frames to the workers through a bounded queue, so a slow
// classifier applies backpressure to the source rather than growing memory.
type Pipeline struct {
	name       string
	src        source.Source
	classifier decoder.FrameClassifier
	events     EventReader
	forwarder  Forwarder
	reporters  []Reporter
	workers    int
	metrics    *Metrics
	logger     log.Logger

	queue chan core.RawPacket
}

// New creates a new pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &Pipeline{
		name:       cfg.Name,
		src:        cfg.Source,
		classifier: cfg.Classifier,
		events:     cfg.Events,
		forwarder:  cfg.Forwarder,
		reporters:  cfg.Reporters,
		workers:    cfg.Workers,
		metrics:    NewMetrics(cfg.Name),
		logger:     log.GetLogger().WithField("source", cfg.Name),
		queue:      make(chan core.RawPacket, cfg.QueueSize),
	}
}

// Run processes frames until the source is exhausted or ctx is cancelled.
// Frames already queued are still classified and every submitted event is
// delivered to the reporters before Run returns. The returned error is the
// source's terminal error, if any; io.EOF and cancellation are not errors.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.WithField("workers", p.workers).Info("pipeline starting")

	stopInterrupt := p.interruptOnCancel(ctx)
	defer stopInterrupt()

	var consumerWG sync.WaitGroup
	if p.events != nil {
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			p.consumeLoop(ctx)
		}()
	}

	var workerWG sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			p.classifyLoop()
		}()
	}

	err := p.readLoop(ctx)
	close(p.queue)
	workerWG.Wait()

	if p.events != nil {
		p.events.Close()
	}
	consumerWG.Wait()
	p.flushReporters()

	p.logger.WithFields(map[string]interface{}{
		"received":  p.metrics.Received.Load(),
		"forwarded": p.metrics.Forwarded.Load(),
		"dropped":   p.metrics.Dropped.Load(),
		"emitted":   p.metrics.Emitted.Load(),
	}).Info("pipeline stopped")
	return err
}

func (p *Pipeline) interruptOnCancel(ctx context.Context) func() {
	in, ok := p.src.(interrupter)
	if !ok {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := in.Interrupt(); err != nil {
				p.logger.WithError(err).Debug("source interrupt failed")
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

// readLoop is the only goroutine touching the source.
func (p *Pipeline) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		data, ci, err := p.src.ReadPacketData()
		if err != nil {
			switch {
			case errors.Is(err, source.ErrTimeout):
				continue
			case errors.Is(err, io.EOF):
				return nil
			case ctx.Err() != nil:
				// read unblocked by Interrupt
				return nil
			default:
				p.metrics.ReadErrors.Add(1)
				return fmt.Errorf("read frame: %w", err)
			}
		}

		p.metrics.recordReceived()
		pkt := core.RawPacket{
			Data:           data,
			Timestamp:      ci.Timestamp,
			CaptureLen:     uint32(ci.CaptureLength),
			OrigLen:        uint32(ci.Length),
			InterfaceIndex: ci.InterfaceIndex,
		}

		select {
		case p.queue <- pkt:
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Pipeline) classifyLoop() {
	for pkt := range p.queue {
		out := p.classifier.Inspect(pkt.Data)
		p.metrics.recordOutcome(out)

		if out.Verdict != core.VerdictForward || p.forwarder == nil {
			continue
		}
		if err := p.forwarder.Forward(pkt); err != nil {
			p.metrics.ForwardErrors.Add(1)
			p.logger.WithError(err).Warn("forward failed")
		}
	}
}

// consumeLoop drains the sink until it is closed and empty. Cancellation of
// ctx does not stop it early; Close does.
func (p *Pipeline) consumeLoop(ctx context.Context) {
	reportCtx := context.WithoutCancel(ctx)
	for {
		ev, err := p.events.Read(reportCtx)
		if err != nil {
			if !errors.Is(err, core.ErrSinkClosed) {
				p.logger.WithError(err).Error("event read failed")
			}
			return
		}
		p.metrics.recordConsumed(p.events.Len())

		for _, r := range p.reporters {
			if err := r.Report(reportCtx, ev); err != nil {
				p.metrics.recordReportError(r.Name())
				p.logger.WithError(err).WithField("reporter", r.Name()).Warn("report failed")
				continue
			}
			p.metrics.recordReported(r.Name())
		}
	}
}

func (p *Pipeline) flushReporters() {
	for _, r := range p.reporters {
		if err := r.Flush(context.Background()); err != nil {
			p.logger.WithError(err).WithField("reporter", r.Name()).Error("reporter flush failed")
		}
	}
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Stats {
	return p.metrics.Snapshot()
}
