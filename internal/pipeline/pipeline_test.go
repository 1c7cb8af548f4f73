package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/arpreflect/internal/core"
	"firestige.xyz/arpreflect/internal/core/decoder"
	"firestige.xyz/arpreflect/internal/sink/ring"
	"firestige.xyz/arpreflect/internal/source"
)

// Mock implementations for testing

// MockSource replays a fixed list of frames, then returns its terminal error.
type MockSource struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
	closed bool
}

func NewMockSource(frames ...[]byte) *MockSource {
	return &MockSource{frames: frames, err: io.EOF}
}

func (m *MockSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil, gopacket.CaptureInfo{}, m.err
	}
	f := m.frames[0]
	m.frames = m.frames[1:]
	return f, gopacket.CaptureInfo{
		Timestamp:     time.Unix(1700000000, 0),
		CaptureLength: len(f),
		Length:        len(f),
	}, nil
}

func (m *MockSource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

// BlockingSource blocks in ReadPacketData until interrupted.
type BlockingSource struct {
	once sync.Once
	stop chan struct{}
}

func NewBlockingSource() *BlockingSource {
	return &BlockingSource{stop: make(chan struct{})}
}

func (b *BlockingSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	<-b.stop
	return nil, gopacket.CaptureInfo{}, errors.New("device closed")
}

func (b *BlockingSource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }
func (b *BlockingSource) Close() error              { return nil }

func (b *BlockingSource) Interrupt() error {
	b.once.Do(func() { close(b.stop) })
	return nil
}

// MockReporter records every event.
type MockReporter struct {
	name       string
	shouldFail bool
	mu         sync.Mutex
	events     []core.Event
	flushed    int
}

func NewMockReporter(name string, shouldFail bool) *MockReporter {
	return &MockReporter{name: name, shouldFail: shouldFail}
}

func (m *MockReporter) Name() string { return m.name }

func (m *MockReporter) Report(ctx context.Context, ev core.Event) error {
	if m.shouldFail {
		return errors.New("report failed")
	}
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

func (m *MockReporter) Flush(ctx context.Context) error {
	m.mu.Lock()
	m.flushed++
	m.mu.Unlock()
	return nil
}

func (m *MockReporter) Events() []core.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Event(nil), m.events...)
}

var senderMAC = net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

func arpFrame(t *testing.T, op uint16, ip net.IP) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{},
		&layers.Ethernet{SrcMAC: senderMAC, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP},
		&layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         op,
			SourceHwAddress:   senderMAC,
			SourceProtAddress: ip.To4(),
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    []byte{10, 0, 0, 254},
		})
	if err != nil {
		t.Fatalf("serialize arp: %v", err)
	}
	return buf.Bytes()
}

func ipv4Frame(t *testing.T) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true},
		&layers.Ethernet{SrcMAC: senderMAC, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeIPv4},
		&layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP,
			SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2)},
		&layers.UDP{SrcPort: 1234, DstPort: 53},
		gopacket.Payload([]byte("query")),
	)
	if err != nil {
		t.Fatalf("serialize ipv4: %v", err)
	}
	return buf.Bytes()
}

func newRing(t *testing.T, records int) *ring.Buffer {
	t.Helper()
	b, err := ring.New(records * ring.RecordSize)
	if err != nil {
		t.Fatalf("ring.New: %v", err)
	}
	return b
}

func TestPipeline_Run(t *testing.T) {
	sink := newRing(t, 16)
	reporter := NewMockReporter("mock", false)
	src := NewMockSource(
		arpFrame(t, layers.ARPRequest, net.IPv4(10, 0, 0, 1)),
		ipv4Frame(t),
		arpFrame(t, layers.ARPReply, net.IPv4(10, 0, 0, 2)),
		[]byte{0x01, 0x02},
	)

	p := New(Config{
		Name:       "test",
		Source:     src,
		Classifier: decoder.NewClassifier(sink),
		Events:     sink,
		Reporters:  []Reporter{reporter},
		Workers:    2,
		QueueSize:  4,
	})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := p.Stats()
	if stats.Received != 4 {
		t.Errorf("Expected 4 received frames, got %d", stats.Received)
	}
	if stats.Forwarded != 2 {
		t.Errorf("Expected 2 forwarded frames, got %d", stats.Forwarded)
	}
	if stats.Dropped != 2 {
		t.Errorf("Expected 2 dropped frames, got %d", stats.Dropped)
	}
	if stats.DropReasons[reasonUnsupported] != 1 || stats.DropReasons[reasonTooShort] != 1 {
		t.Errorf("Unexpected drop reasons: %v", stats.DropReasons)
	}
	if stats.Emitted != 2 || stats.Consumed != 2 || stats.Reported != 2 {
		t.Errorf("Expected 2 emitted/consumed/reported, got %d/%d/%d", stats.Emitted, stats.Consumed, stats.Reported)
	}

	events := reporter.Events()
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	ops := map[uint32]core.Event{}
	for _, ev := range events {
		ops[ev.OpCode] = ev
	}
	if got := ops[layers.ARPRequest].SenderProto; got != [4]byte{10, 0, 0, 1} {
		t.Errorf("Unexpected request sender %v", got)
	}
	if got := ops[layers.ARPReply].SenderHW; !bytes.Equal(got[:], senderMAC) {
		t.Errorf("Unexpected reply sender %v", got)
	}
	if reporter.flushed != 1 {
		t.Errorf("Expected reporter to be flushed once, got %d", reporter.flushed)
	}
}

func TestPipeline_FullSinkStillForwards(t *testing.T) {
	sink := newRing(t, 1)
	var out bytes.Buffer
	fwd, err := NewPcapForwarder(&out, 65535)
	if err != nil {
		t.Fatalf("NewPcapForwarder: %v", err)
	}

	frames := make([][]byte, 8)
	for i := range frames {
		frames[i] = arpFrame(t, layers.ARPRequest, net.IPv4(10, 0, 0, byte(i+1)))
	}

	// No consumer: the single slot fills and stays full.
	p := New(Config{
		Source:     NewMockSource(frames...),
		Classifier: decoder.NewClassifier(sink),
		Forwarder:  fwd,
		Workers:    4,
	})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := p.Stats()
	if stats.Forwarded != 8 {
		t.Errorf("Expected all 8 frames forwarded, got %d", stats.Forwarded)
	}
	if stats.Emitted != 1 || stats.Lost != 7 {
		t.Errorf("Expected 1 emitted and 7 lost, got %d and %d", stats.Emitted, stats.Lost)
	}

	r, err := pcapgo.NewReader(&out)
	if err != nil {
		t.Fatalf("pcapgo.NewReader: %v", err)
	}
	n := 0
	for {
		if _, _, err := r.ReadPacketData(); err != nil {
			break
		}
		n++
	}
	if n != 8 {
		t.Errorf("Expected 8 frames in forwarded capture, got %d", n)
	}
}

func TestPipeline_ReporterFailure(t *testing.T) {
	sink := newRing(t, 4)
	failing := NewMockReporter("failing", true)
	ok := NewMockReporter("ok", false)

	p := New(Config{
		Source:     NewMockSource(arpFrame(t, layers.ARPRequest, net.IPv4(10, 0, 0, 1))),
		Classifier: decoder.NewClassifier(sink),
		Events:     sink,
		Reporters:  []Reporter{failing, ok},
	})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := p.Stats()
	if stats.ReportErrors != 1 {
		t.Errorf("Expected 1 report error, got %d", stats.ReportErrors)
	}
	if len(ok.Events()) != 1 {
		t.Errorf("Expected the healthy reporter to get the event")
	}
}

func TestPipeline_SourceError(t *testing.T) {
	src := NewMockSource()
	src.err = errors.New("link down")

	p := New(Config{Source: src, Classifier: decoder.NewClassifier(nil)})
	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Expected source error")
	}
	if p.Stats().ReadErrors != 1 {
		t.Errorf("Expected 1 read error")
	}
}

func TestPipeline_TimeoutIsNotTerminal(t *testing.T) {
	src := &timeoutSource{MockSource: NewMockSource(arpFrame(t, layers.ARPRequest, net.IPv4(10, 0, 0, 1))), timeouts: 3}

	p := New(Config{Source: src, Classifier: decoder.NewClassifier(nil)})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.Stats().Forwarded != 1 {
		t.Errorf("Expected 1 forwarded frame after timeouts")
	}
}

type timeoutSource struct {
	*MockSource
	timeouts int
}

func (s *timeoutSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	if s.timeouts > 0 {
		s.timeouts--
		return nil, gopacket.CaptureInfo{}, source.ErrTimeout
	}
	return s.MockSource.ReadPacketData()
}

func TestPipeline_CancelInterruptsSource(t *testing.T) {
	sink := newRing(t, 4)
	p := New(Config{
		Source:     NewBlockingSource(),
		Classifier: decoder.NewClassifier(sink),
		Events:     sink,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDropReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{core.ErrPacketTooShort, reasonTooShort},
		{core.ErrUnsupportedProto, reasonUnsupported},
		{core.ErrFieldTruncated, reasonTruncated},
		{errors.New("x"), reasonOther},
		{nil, reasonOther},
	}
	for _, tt := range tests {
		if got := DropReason(tt.err); got != tt.want {
			t.Errorf("DropReason(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
