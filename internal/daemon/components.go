package daemon

import (
	"io"

	"firestige.xyz/arpreflect/internal/config"
	"firestige.xyz/arpreflect/internal/core"
	"firestige.xyz/arpreflect/internal/core/decoder"
	"firestige.xyz/arpreflect/internal/log"
	"firestige.xyz/arpreflect/internal/pipeline"
	"firestige.xyz/arpreflect/internal/reporter/console"
	"firestige.xyz/arpreflect/internal/reporter/neighbor"
	"firestige.xyz/arpreflect/internal/sink/ring"
	"firestige.xyz/arpreflect/internal/source"
	_ "firestige.xyz/arpreflect/plugins"
)

// Components holds everything one pipeline run needs.
type Components struct {
	Source     source.Source
	Sink       *ring.Buffer
	Classifier *decoder.Classifier
	Reporters  []pipeline.Reporter
}

// Build opens the configured source and creates the sink, classifier and
// reporters. Console output goes to out.
func Build(cfg *config.GlobalConfig, out io.Writer) (*Components, error) {
	sink, err := ring.New(cfg.Sink.CapacityBytes)
	if err != nil {
		return nil, err
	}

	reporters, err := BuildReporters(cfg.Reporters, out)
	if err != nil {
		return nil, err
	}

	src, err := source.Open(cfg.Source)
	if err != nil {
		return nil, err
	}

	return &Components{
		Source:     src,
		Sink:       sink,
		Classifier: NewClassifier(cfg.Trace, sink),
		Reporters:  reporters,
	}, nil
}

// NewClassifier returns a classifier emitting into sink with rate-limited
// diagnostics.
func NewClassifier(cfg config.TraceConfig, sink core.Sink) *decoder.Classifier {
	var limiter *decoder.TraceLimiter
	if cfg.MaxPerSource > 0 {
		limiter = decoder.NewTraceLimiter(cfg.MaxPerSource, cfg.Window)
	}
	tracer := decoder.NewLogTracer(log.GetLogger().WithField("component", "classifier"), limiter)
	return decoder.NewClassifier(sink, decoder.WithTracer(tracer))
}

// BuildReporters creates the enabled reporters.
func BuildReporters(cfg config.ReportersConfig, out io.Writer) ([]pipeline.Reporter, error) {
	var reporters []pipeline.Reporter

	if cfg.Console.Enabled {
		r, err := console.New(out, cfg.Console.Format)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, r)
	}

	if cfg.Neighbor.Enabled {
		w, err := neighbor.NewNetlinkWriter(cfg.Neighbor.Interface)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, neighbor.New(w, neighbor.Config{
			DedupeWindow: cfg.Neighbor.DedupeWindow,
			CacheSize:    cfg.Neighbor.CacheSize,
		}))
	}

	return reporters, nil
}

// Pipeline wires the components into a pipeline.
func (c *Components) Pipeline(name string, cfg config.PipelineConfig, fwd pipeline.Forwarder) *pipeline.Pipeline {
	return pipeline.New(pipeline.Config{
		Name:       name,
		Source:     c.Source,
		Classifier: c.Classifier,
		Events:     c.Sink,
		Forwarder:  fwd,
		Reporters:  c.Reporters,
		Workers:    cfg.Workers,
		QueueSize:  cfg.QueueSize,
	})
}

// Close releases the source.
func (c *Components) Close() error {
	return c.Source.Close()
}
