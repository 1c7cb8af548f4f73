package decoder

import (
	"net"
	"time"

	"firestige.xyz/arpreflect/internal/log"
)

// LogTracer writes classifier diagnostics at trace level.
type LogTracer struct {
	logger  log.Logger
	limiter *TraceLimiter
	now     func() time.Time
}

// NewLogTracer creates a tracer on logger. A nil limiter writes every
// diagnostic.
func NewLogTracer(logger log.Logger, limiter *TraceLimiter) *LogTracer {
	return &LogTracer{logger: logger, limiter: limiter, now: time.Now}
}

// Trace implements Tracer.
func (t *LogTracer) Trace(stage State, reason error, src [6]byte) {
	if !t.logger.IsTraceEnabled() {
		return
	}
	if t.limiter != nil && !t.limiter.Allow(src, t.now()) {
		return
	}
	t.logger.WithFields(map[string]interface{}{
		"stage": stage.String(),
		"src":   net.HardwareAddr(src[:]).String(),
	}).WithError(reason).Trace("malformed arp frame")
}
