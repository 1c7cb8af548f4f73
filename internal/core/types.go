// Package core defines core types with zero external dependencies.
package core

// Wire sizes of the fixed headers the classifier reads.
const (
	EthernetHeaderLen = 14
	ARPHeaderLen      = 8

	// MaxHardwareAddrLen and MaxProtocolAddrLen are the capacities of the
	// event address fields; declared ARP lengths are clamped to them.
	MaxHardwareAddrLen = 6
	MaxProtocolAddrLen = 4
)

// EtherType and ARP operation values.
const (
	EtherTypeARP = 0x0806

	ARPRequest = 1
	ARPReply   = 2
)

// EthernetHeader represents the L2 Ethernet frame header.
type EthernetHeader struct {
	DstMAC    [6]byte
	SrcMAC    [6]byte
	EtherType uint16 // host order
}

// ARPHeader is the fixed part of an ARP message. HLen and PLen hold the
// declared lengths until the decoder clamps them.
type ARPHeader struct {
	HardwareType uint16
	ProtocolType uint16
	HLen         uint8
	PLen         uint8
	Operation    uint16
}

// Verdict is the per-frame forward/drop decision.
type Verdict int32

const (
	VerdictForward Verdict = 0
	VerdictDrop    Verdict = -1
)

func (v Verdict) String() string {
	switch v {
	case VerdictForward:
		return "forward"
	case VerdictDrop:
		return "drop"
	default:
		return "invalid"
	}
}

// Slot is a reserved, writable event record owned by one producer until it is
// submitted.
type Slot interface {
	Event() *Event
}

// Sink is a bounded event queue. Reserve never blocks; it returns ErrSinkFull
// when no record is free.
type Sink interface {
	Reserve() (Slot, error)
	Submit(Slot)
}
