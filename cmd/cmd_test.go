package cmd

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/arpreflect/internal/core"
)

func arpFrame(t *testing.T, op uint16, ip net.IP) []byte {
	t.Helper()
	mac := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{},
		&layers.Ethernet{SrcMAC: mac, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP},
		&layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         op,
			SourceHwAddress:   mac,
			SourceProtAddress: ip.To4(),
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    []byte{10, 0, 0, 254},
		}))
	return buf.Bytes()
}

func writeCapture(t *testing.T, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for _, frame := range frames {
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     time.Unix(1700000000, 0),
			CaptureLength: len(frame),
			Length:        len(frame),
		}, frame))
	}
	return path
}

func quietConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
arpreflect:
  log:
    level: error
    outputs:
      console:
        enabled: false
`), 0644))
	return path
}

func TestRunReplay(t *testing.T) {
	request := arpFrame(t, layers.ARPRequest, net.IPv4(10, 0, 0, 1))
	truncated := request[:25]
	input := writeCapture(t, request, truncated, []byte{0x01}, arpFrame(t, layers.ARPReply, net.IPv4(10, 0, 0, 2)))
	output := filepath.Join(t.TempDir(), "out.pcap")

	var out, summary bytes.Buffer
	err := runReplay(context.Background(), quietConfig(t), replayOptions{
		Input:   input,
		Output:  output,
		Format:  "text",
		Workers: 1,
	}, &out, &summary)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "10.0.0.1")
	assert.Contains(t, lines[1], "10.0.0.2")
	assert.Contains(t, summary.String(), "4 frames: 2 forwarded, 2 dropped")
	assert.Contains(t, summary.String(), "truncated 1")

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)

	var forwarded [][]byte
	for {
		data, _, err := r.ReadPacketData()
		if err != nil {
			break
		}
		forwarded = append(forwarded, data)
	}
	require.Len(t, forwarded, 2)
	assert.Equal(t, request, forwarded[0])
}

func TestRunReplay_Quiet(t *testing.T) {
	input := writeCapture(t, arpFrame(t, layers.ARPRequest, net.IPv4(10, 0, 0, 1)))

	var out, summary bytes.Buffer
	err := runReplay(context.Background(), quietConfig(t), replayOptions{Input: input, Quiet: true, Workers: 1}, &out, &summary)
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Contains(t, summary.String(), "1 events")
}

func TestRunReplay_Errors(t *testing.T) {
	var out, summary bytes.Buffer
	err := runReplay(context.Background(), quietConfig(t), replayOptions{Input: "/nonexistent.pcap"}, &out, &summary)
	assert.Error(t, err)

	input := writeCapture(t)
	err = runReplay(context.Background(), quietConfig(t), replayOptions{Input: input, Format: "xml"}, &out, &summary)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yml")
	require.NoError(t, os.WriteFile(valid, []byte(`
arpreflect:
  source:
    type: afpacket
    options:
      device: eth0
  pipeline:
    workers: 3
  reporters:
    neighbor:
      enabled: true
      interface: eth0
`), 0644))

	var out bytes.Buffer
	require.NoError(t, runValidate(valid, &out))
	assert.Contains(t, out.String(), `VALID: source "afpacket", 3 worker(s)`)
	assert.Contains(t, out.String(), "neighbor(eth0)")

	invalid := filepath.Join(dir, "invalid.yml")
	require.NoError(t, os.WriteFile(invalid, []byte("arpreflect:\n  sink:\n    capacity_bytes: -1\n"), 0644))

	out.Reset()
	err := runValidate(invalid, &out)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Contains(t, out.String(), "INVALID")

	assert.Error(t, runValidate("", &out))
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["replay"])
	assert.True(t, names["validate"])
}
