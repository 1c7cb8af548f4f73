// Package afpacket captures frames from a Linux interface with AF_PACKET.
package afpacket

const Name = "afpacket"

// Options configures the af_packet source.
type Options struct {
	Device       string `mapstructure:"device"`
	SnapLen      int    `mapstructure:"snap_len"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
	FanoutID     uint16 `mapstructure:"fanout_id"`
	// ARPOnly installs a kernel filter that rejects everything but ARP.
	ARPOnly bool `mapstructure:"arp_only"`
}

func DefaultOptions() Options {
	return Options{
		SnapLen:      1600,
		BufferSizeMB: 8,
		TimeoutMs:    100,
	}
}
