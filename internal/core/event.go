package core

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
)

// EventSize is the binary size of an Event record.
const EventSize = MaxHardwareAddrLen + MaxProtocolAddrLen + 4

// Event is the fixed-layout record emitted for every accepted ARP frame.
// Address bytes past the clamped length are zero.
type Event struct {
	SenderHW    [MaxHardwareAddrLen]byte
	SenderProto [MaxProtocolAddrLen]byte
	OpCode      uint32 // host order
}

// MarshalBinary encodes the event as senderHW | senderProto | opCode with the
// opcode in host byte order.
func (e Event) MarshalBinary() ([]byte, error) {
	return e.AppendBinary(make([]byte, 0, EventSize))
}

// AppendBinary appends the 14-byte record to b.
func (e Event) AppendBinary(b []byte) ([]byte, error) {
	b = append(b, e.SenderHW[:]...)
	b = append(b, e.SenderProto[:]...)
	return binary.NativeEndian.AppendUint32(b, e.OpCode), nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (e *Event) UnmarshalBinary(data []byte) error {
	if len(data) != EventSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrEventSize, len(data), EventSize)
	}
	copy(e.SenderHW[:], data[0:6])
	copy(e.SenderProto[:], data[6:10])
	e.OpCode = binary.NativeEndian.Uint32(data[10:14])
	return nil
}

// HardwareAddr returns the sender hardware address.
func (e Event) HardwareAddr() net.HardwareAddr {
	mac := make(net.HardwareAddr, MaxHardwareAddrLen)
	copy(mac, e.SenderHW[:])
	return mac
}

// ProtocolAddr returns the sender protocol address as an IPv4 address.
func (e Event) ProtocolAddr() netip.Addr {
	return netip.AddrFrom4(e.SenderProto)
}

// OpName returns a short name for the ARP operation.
func (e Event) OpName() string {
	switch e.OpCode {
	case ARPRequest:
		return "request"
	case ARPReply:
		return "reply"
	default:
		return fmt.Sprintf("op(%d)", e.OpCode)
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s is-at %s", e.OpName(), e.ProtocolAddr(), e.HardwareAddr())
}
