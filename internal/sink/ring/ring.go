// Package ring implements the bounded event sink shared by all classifier
// invocations.
package ring

import (
	"context"
	"fmt"
	"sync/atomic"

	"firestige.xyz/arpreflect/internal/core"
)

const (
	// RecordHeaderLen is the per-record bookkeeping charged against capacity.
	RecordHeaderLen = 8
	// RecordSize is the capacity consumed by one event record: header plus
	// payload, rounded up to 8 bytes.
	RecordSize = (RecordHeaderLen + core.EventSize + 7) &^ 7

	// DefaultCapacity is the default buffer size in bytes (16 MiB).
	DefaultCapacity = 1 << 24
)

// slot is one event record. At any moment it sits in exactly one place: the
// free list, a producer between Reserve and Submit/Discard, the ready queue,
// or the consumer inside Read.
type slot struct {
	ev    core.Event
	owner *Buffer
}

func (s *slot) Event() *core.Event {
	return &s.ev
}

// Stats is a point-in-time snapshot of buffer counters.
type Stats struct {
	Capacity  int    // records
	Pending   int    // submitted, not yet read
	Reserved  uint64 // successful reservations
	Submitted uint64
	Discarded uint64
	Full      uint64 // reservations refused for lack of space
	Consumed  uint64
}

// Buffer is a fixed-capacity event queue. Producers reserve and submit
// without blocking; a single consumer (or several) drains with Read.
type Buffer struct {
	slots []slot
	free  chan *slot
	ready chan *slot

	closed atomic.Bool
	done   chan struct{}

	reserved  atomic.Uint64
	submitted atomic.Uint64
	discarded atomic.Uint64
	full      atomic.Uint64
	consumed  atomic.Uint64
}

var _ core.Sink = (*Buffer)(nil)

// New creates a buffer holding capacityBytes/RecordSize records.
func New(capacityBytes int) (*Buffer, error) {
	n := capacityBytes / RecordSize
	if n < 1 {
		return nil, fmt.Errorf("%w: sink capacity %d bytes is below one %d-byte record",
			core.ErrConfigInvalid, capacityBytes, RecordSize)
	}

	b := &Buffer{
		slots: make([]slot, n),
		free:  make(chan *slot, n),
		ready: make(chan *slot, n),
		done:  make(chan struct{}),
	}
	for i := range b.slots {
		b.slots[i].owner = b
		b.free <- &b.slots[i]
	}
	return b, nil
}

// Reserve claims a zeroed record. It never blocks: when every record is in
// use it returns core.ErrSinkFull.
func (b *Buffer) Reserve() (core.Slot, error) {
	if b.closed.Load() {
		return nil, core.ErrSinkClosed
	}
	select {
	case s := <-b.free:
		s.ev = core.Event{}
		b.reserved.Add(1)
		return s, nil
	default:
		b.full.Add(1)
		return nil, core.ErrSinkFull
	}
}

// Submit publishes a reserved record to the consumer. Slots from another
// buffer are ignored.
func (b *Buffer) Submit(cs core.Slot) {
	s, ok := cs.(*slot)
	if !ok || s.owner != b {
		return
	}
	// ready has room for every slot, so this send cannot block.
	b.ready <- s
	b.submitted.Add(1)
}

// Discard returns a reserved record without publishing it, for producers
// that give up after Reserve. The classifier never does.
func (b *Buffer) Discard(cs core.Slot) {
	s, ok := cs.(*slot)
	if !ok || s.owner != b {
		return
	}
	b.free <- s
	b.discarded.Add(1)
}

// Read waits for the next submitted event. After Close it keeps returning
// pending events and then core.ErrSinkClosed.
func (b *Buffer) Read(ctx context.Context) (core.Event, error) {
	select {
	case s := <-b.ready:
		return b.release(s), nil
	case <-ctx.Done():
		return core.Event{}, ctx.Err()
	case <-b.done:
	}

	select {
	case s := <-b.ready:
		return b.release(s), nil
	default:
		return core.Event{}, core.ErrSinkClosed
	}
}

// TryRead returns the next submitted event without waiting.
func (b *Buffer) TryRead() (core.Event, bool) {
	select {
	case s := <-b.ready:
		return b.release(s), true
	default:
		return core.Event{}, false
	}
}

func (b *Buffer) release(s *slot) core.Event {
	ev := s.ev
	b.free <- s
	b.consumed.Add(1)
	return ev
}

// Close stops new reservations and wakes blocked readers. Records already
// submitted can still be read.
func (b *Buffer) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
	return nil
}

// Cap returns the capacity in records.
func (b *Buffer) Cap() int {
	return len(b.slots)
}

// Len returns the number of submitted records waiting to be read.
func (b *Buffer) Len() int {
	return len(b.ready)
}

// Stats returns a snapshot of the buffer counters.
func (b *Buffer) Stats() Stats {
	return Stats{
		Capacity:  len(b.slots),
		Pending:   len(b.ready),
		Reserved:  b.reserved.Load(),
		Submitted: b.submitted.Load(),
		Discarded: b.discarded.Load(),
		Full:      b.full.Load(),
		Consumed:  b.consumed.Load(),
	}
}
