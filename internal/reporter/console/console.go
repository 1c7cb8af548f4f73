// Package console writes events to a stream as text, JSON or YAML.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"firestige.xyz/arpreflect/internal/core"
)

const Name = "console"

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// record is the structured form of an event.
type record struct {
	Op        string `json:"op" yaml:"op"`
	OpCode    uint32 `json:"opcode" yaml:"opcode"`
	SenderMAC string `json:"sender_mac" yaml:"sender_mac"`
	SenderIP  string `json:"sender_ip" yaml:"sender_ip"`
}

func newRecord(ev core.Event) record {
	return record{
		Op:        ev.OpName(),
		OpCode:    ev.OpCode,
		SenderMAC: ev.HardwareAddr().String(),
		SenderIP:  ev.ProtocolAddr().String(),
	}
}

// Reporter writes one entry per event. It is safe for concurrent use.
type Reporter struct {
	mu     sync.Mutex
	w      io.Writer
	format string

	reported atomic.Uint64
}

// New returns a reporter writing to w in the given format.
func New(w io.Writer, format string) (*Reporter, error) {
	switch format {
	case "":
		format = FormatText
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: console format %q", core.ErrConfigInvalid, format)
	}
	return &Reporter{w: w, format: format}, nil
}

func (r *Reporter) Name() string {
	return Name
}

func (r *Reporter) Report(ctx context.Context, ev core.Event) error {
	out, err := r.encode(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(out); err != nil {
		return err
	}
	r.reported.Add(1)
	return nil
}

func (r *Reporter) encode(ev core.Event) ([]byte, error) {
	switch r.format {
	case FormatJSON:
		b, err := json.Marshal(newRecord(ev))
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case FormatYAML:
		b, err := yaml.Marshal(newRecord(ev))
		if err != nil {
			return nil, err
		}
		// one document per event
		return append([]byte("---\n"), b...), nil
	default:
		return []byte(ev.String() + "\n"), nil
	}
}

// Flush flushes w if it buffers.
func (r *Reporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Reported returns the number of events written.
func (r *Reporter) Reported() uint64 {
	return r.reported.Load()
}
