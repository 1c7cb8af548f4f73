package decoder

import (
	"fmt"

	"firestige.xyz/arpreflect/internal/core"
)

const (
	// arpOffset is where the ARP message starts inside an untagged frame.
	arpOffset = core.EthernetHeaderLen
	// senderHWOffset is the first byte after the fixed ARP header.
	senderHWOffset = arpOffset + core.ARPHeaderLen
)

// decodeARP reads the fixed ARP header that starts at off and clamps the
// declared address lengths to the event field capacities.
func decodeARP(v FrameView, off int) (core.ARPHeader, error) {
	if !v.InBounds(off, core.ARPHeaderLen) {
		return core.ARPHeader{}, fmt.Errorf("%w: arp header needs %d bytes at offset %d, frame has %d",
			core.ErrPacketTooShort, core.ARPHeaderLen, off, v.Len())
	}

	// All reads below fall inside the range checked above.
	htype, _ := v.Uint16(off)
	ptype, _ := v.Uint16(off + 2)
	hlen, _ := v.Uint8(off + 4)
	plen, _ := v.Uint8(off + 5)
	op, _ := v.Uint16(off + 6)

	return core.ARPHeader{
		HardwareType: htype,
		ProtocolType: ptype,
		HLen:         min(hlen, core.MaxHardwareAddrLen),
		PLen:         min(plen, core.MaxProtocolAddrLen),
		Operation:    op,
	}, nil
}

// senderAddrs returns the sender hardware and protocol address fields that
// follow the fixed header. hdr must already be clamped.
func senderAddrs(v FrameView, hdr core.ARPHeader) (hw, proto []byte, err error) {
	hw, ok := v.Slice(senderHWOffset, int(hdr.HLen))
	if !ok {
		return nil, nil, fmt.Errorf("%w: sender hardware address (%d bytes at offset %d)",
			core.ErrFieldTruncated, hdr.HLen, senderHWOffset)
	}

	protoOffset := senderHWOffset + int(hdr.HLen)
	proto, ok = v.Slice(protoOffset, int(hdr.PLen))
	if !ok {
		return nil, nil, fmt.Errorf("%w: sender protocol address (%d bytes at offset %d)",
			core.ErrFieldTruncated, hdr.PLen, protoOffset)
	}
	return hw, proto, nil
}
