// Package file reads frames from pcap and pcapng capture files.
package file

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/arpreflect/internal/source"
)

const Name = "pcap"

// pcapng section header block type
var ngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

// Options configures the file source.
type Options struct {
	Path string `mapstructure:"path"`
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Source replays frames from a capture file.
type Source struct {
	path   string
	f      *os.File
	reader packetReader
}

func init() {
	source.Register(Name, func(options map[string]interface{}) (source.Source, error) {
		var opts Options
		if err := source.DecodeOptions(options, &opts); err != nil {
			return nil, err
		}
		return Open(opts.Path)
	})
}

// Open opens a pcap or pcapng file. Only Ethernet captures are accepted.
func Open(path string) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
	}

	reader, err := newReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture file %s: %w", path, err)
	}
	if reader.LinkType() != layers.LinkTypeEthernet {
		f.Close()
		return nil, fmt.Errorf("capture file %s has link type %s, want Ethernet", path, reader.LinkType())
	}

	return &Source{path: path, f: f, reader: reader}, nil
}

func newReader(br *bufio.Reader) (packetReader, error) {
	magic, err := br.Peek(len(ngMagic))
	if err != nil {
		return nil, err
	}
	if bytes.Equal(magic, ngMagic) {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}

func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		if err == io.EOF {
			return nil, gopacket.CaptureInfo{}, io.EOF
		}
		return nil, gopacket.CaptureInfo{}, fmt.Errorf("failed to read packet: %w", err)
	}
	return data, ci, nil
}

func (s *Source) LinkType() layers.LinkType {
	return s.reader.LinkType()
}

func (s *Source) Close() error {
	return s.f.Close()
}
