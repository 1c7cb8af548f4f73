package decoder

import (
	"firestige.xyz/arpreflect/internal/core"
)

// decodeEthernet decodes the Ethernet frame header. VLAN tags are not
// unwrapped: a tagged frame reports the tag TPID as its EtherType.
func decodeEthernet(v FrameView) (core.EthernetHeader, error) {
	hdr, ok := v.Slice(0, core.EthernetHeaderLen)
	if !ok {
		return core.EthernetHeader{}, core.ErrPacketTooShort
	}

	eth := core.EthernetHeader{}

	// Destination MAC (6 bytes)
	copy(eth.DstMAC[:], hdr[0:6])

	// Source MAC (6 bytes)
	copy(eth.SrcMAC[:], hdr[6:12])

	// EtherType (2 bytes), already proven in-bounds by the slice above
	eth.EtherType, _ = v.Uint16(12)

	return eth, nil
}
