//go:build linux

package neighbor

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// NetlinkWriter writes REACHABLE entries to the neighbor table of one link.
type NetlinkWriter struct {
	linkIndex int
}

// NewNetlinkWriter resolves the interface by name.
func NewNetlinkWriter(ifname string) (*NetlinkWriter, error) {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("could not get interface %s: %w", ifname, err)
	}
	return &NetlinkWriter{linkIndex: link.Attrs().Index}, nil
}

// SetNeighbor replaces any existing entry for ip.
func (w *NetlinkWriter) SetNeighbor(ip netip.Addr, mac net.HardwareAddr) error {
	neigh := &netlink.Neigh{
		LinkIndex:    w.linkIndex,
		Family:       unix.AF_INET,
		State:        netlink.NUD_REACHABLE,
		IP:           net.IP(ip.AsSlice()),
		HardwareAddr: mac,
	}
	if err := netlink.NeighSet(neigh); err != nil {
		return fmt.Errorf("failed to set neigh %v: %w", neigh, err)
	}
	return nil
}
