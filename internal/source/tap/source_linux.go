//go:build linux

package tap

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/songgao/water"

	"firestige.xyz/arpreflect/internal/core"
	"firestige.xyz/arpreflect/internal/source"
)

// Source reads one Ethernet frame per read from a TAP device.
type Source struct {
	ifce      *water.Interface
	buf       []byte
	closeOnce sync.Once
	closeErr  error
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

func NewSource(opts Options) (*Source, error) {
	if opts.MTU <= 0 {
		return nil, fmt.Errorf("mtu must be positive, got %d", opts.MTU)
	}
	cfg := water.Config{DeviceType: water.TAP}
	cfg.Name = opts.Name
	cfg.Persist = opts.Persist

	ifce, err := water.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open tap device %q: %w", opts.Name, err)
	}
	return &Source{
		ifce: ifce,
		buf:  make([]byte, opts.MTU+core.EthernetHeaderLen+4),
	}, nil
}

// DeviceName reports the name the kernel assigned.
func (s *Source) DeviceName() string {
	return s.ifce.Name()
}

// ReadPacketData is not safe for concurrent use.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	n, err := s.ifce.Read(s.buf)
	if err != nil {
		return nil, gopacket.CaptureInfo{}, err
	}
	data := make([]byte, n)
	copy(data, s.buf[:n])
	return data, gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: n,
		Length:        n,
	}, nil
}

func (s *Source) LinkType() layers.LinkType {
	return layers.LinkTypeEthernet
}

// Interrupt closes the device so a blocked ReadPacketData returns.
func (s *Source) Interrupt() error {
	return s.Close()
}

func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.ifce.Close()
	})
	return s.closeErr
}
