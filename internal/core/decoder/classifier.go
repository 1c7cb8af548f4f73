package decoder

import (
	"firestige.xyz/arpreflect/internal/core"
)

// State is a classifier state. Accept, AcceptNoEvent and Drop are terminal.
type State uint8

const (
	StateStart State = iota
	StateLinkOK
	StateResolutionOK
	StateAddrOK
	StateAccept
	StateAcceptNoEvent
	StateDrop
)

var stateNames = [...]string{
	StateStart:         "start",
	StateLinkOK:        "link_ok",
	StateResolutionOK:  "resolution_ok",
	StateAddrOK:        "addr_ok",
	StateAccept:        "accept",
	StateAcceptNoEvent: "accept_no_event",
	StateDrop:          "drop",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Outcome describes how one frame was classified. Reason is nil for Accept,
// core.ErrSinkFull (or ErrSinkClosed) for AcceptNoEvent, and wraps one of the
// frame errors for Drop. Stage is the last state reached before the terminal one.
type Outcome struct {
	Verdict core.Verdict
	State   State
	Stage   State
	Reason  error
}

// Tracer receives best-effort diagnostics for malformed ARP frames.
type Tracer interface {
	Trace(stage State, reason error, src [6]byte)
}

// Classifier is a dedicated ARP filter: it drops everything that is not a
// well-formed ARP frame and emits one event per accepted frame. It is safe
// for concurrent use; invocations share only the sink.
type Classifier struct {
	sink   core.Sink
	tracer Tracer
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTracer sets the diagnostic tracer.
func WithTracer(t Tracer) Option {
	return func(c *Classifier) {
		c.tracer = t
	}
}

// NewClassifier creates a classifier emitting into sink. A nil sink behaves
// like a permanently full one.
func NewClassifier(sink core.Sink, opts ...Option) *Classifier {
	c := &Classifier{sink: sink}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the verdict for frame.
func (c *Classifier) Classify(frame []byte) core.Verdict {
	return c.Inspect(frame).Verdict
}

// Inspect runs the classifier over frame and reports the full outcome.
// The path is straight-line: each stage either advances or drops.
func (c *Classifier) Inspect(frame []byte) Outcome {
	v := NewFrameView(frame)

	eth, err := decodeEthernet(v)
	if err != nil {
		return drop(StateStart, err)
	}
	if eth.EtherType != core.EtherTypeARP {
		return drop(StateStart, core.ErrUnsupportedProto)
	}

	// LINK_OK
	hdr, err := decodeARP(v, arpOffset)
	if err != nil {
		c.trace(StateLinkOK, err, eth.SrcMAC)
		return drop(StateLinkOK, err)
	}

	// RESOLUTION_OK
	hw, proto, err := senderAddrs(v, hdr)
	if err != nil {
		c.trace(StateResolutionOK, err, eth.SrcMAC)
		return drop(StateResolutionOK, err)
	}

	// ADDR_OK
	if c.sink == nil {
		return Outcome{Verdict: core.VerdictForward, State: StateAcceptNoEvent, Stage: StateAddrOK, Reason: core.ErrSinkFull}
	}
	slot, err := c.sink.Reserve()
	if err != nil {
		return Outcome{Verdict: core.VerdictForward, State: StateAcceptNoEvent, Stage: StateAddrOK, Reason: err}
	}

	ev := slot.Event()
	*ev = core.Event{OpCode: uint32(hdr.Operation)}
	copy(ev.SenderHW[:], hw)
	copy(ev.SenderProto[:], proto)
	c.sink.Submit(slot)

	return Outcome{Verdict: core.VerdictForward, State: StateAccept, Stage: StateAddrOK}
}

func (c *Classifier) trace(stage State, reason error, src [6]byte) {
	if c.tracer != nil {
		c.tracer.Trace(stage, reason, src)
	}
}

func drop(stage State, reason error) Outcome {
	return Outcome{Verdict: core.VerdictDrop, State: StateDrop, Stage: stage, Reason: reason}
}
