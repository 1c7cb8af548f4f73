package pipeline

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/arpreflect/internal/core"
)

// PcapForwarder writes forwarded frames to a pcap stream. Workers call
// Forward concurrently, so writes are serialized.
type PcapForwarder struct {
	mu sync.Mutex
	w  *pcapgo.Writer
}

// NewPcapForwarder writes the file header and returns a forwarder on w.
func NewPcapForwarder(w io.Writer, snapLen uint32) (*PcapForwarder, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &PcapForwarder{w: pw}, nil
}

func (f *PcapForwarder) Forward(pkt core.RawPacket) error {
	ci := gopacket.CaptureInfo{
		Timestamp:      pkt.Timestamp,
		CaptureLength:  len(pkt.Data),
		Length:         int(pkt.OrigLen),
		InterfaceIndex: pkt.InterfaceIndex,
	}
	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w.WritePacket(ci, pkt.Data)
}
