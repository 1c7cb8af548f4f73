//go:build linux

package afpacket

import (
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/arpreflect/internal/source"
)

// Source captures frames from a live interface through a TPACKET_V3 ring.
type Source struct {
	handle *afpacket.TPacket
	device string
}

func init() {
	source.Register(Name, func(options map[string]interface{}) (source.Source, error) {
		opts := DefaultOptions()
		if err := source.DecodeOptions(options, &opts); err != nil {
			return nil, err
		}
		return NewSource(opts)
	})
}

// NewSource opens the ring on opts.Device.
func NewSource(opts Options) (*Source, error) {
	if opts.Device == "" {
		return nil, fmt.Errorf("device is required")
	}
	geo, err := computeGeometry(opts.BufferSizeMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, err
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(opts.Device),
		afpacket.OptFrameSize(geo.frameSize),
		afpacket.OptBlockSize(geo.blockSize),
		afpacket.OptNumBlocks(geo.numBlocks),
		afpacket.OptPollTimeout(time.Duration(opts.TimeoutMs)*time.Millisecond),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open af_packet on %s: %w", opts.Device, err)
	}

	if opts.FanoutID > 0 {
		if err := tp.SetFanout(afpacket.FanoutHashWithDefrag, opts.FanoutID); err != nil {
			tp.Close()
			return nil, fmt.Errorf("failed to join fanout group %d: %w", opts.FanoutID, err)
		}
	}

	if opts.ARPOnly {
		filter, err := source.ARPFilter(uint32(opts.SnapLen))
		if err != nil {
			tp.Close()
			return nil, err
		}
		if err := tp.SetBPF(filter); err != nil {
			tp.Close()
			return nil, fmt.Errorf("failed to attach arp filter: %w", err)
		}
	}

	return &Source{handle: tp, device: opts.Device}, nil
}

// ReadPacketData returns source.ErrTimeout when the poll timeout expires
// with no frame, so callers can check for cancellation.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err == afpacket.ErrTimeout {
		return nil, ci, source.ErrTimeout
	}
	return data, ci, err
}

func (s *Source) LinkType() layers.LinkType {
	return layers.LinkTypeEthernet
}

func (s *Source) Close() error {
	s.handle.Close()
	return nil
}
