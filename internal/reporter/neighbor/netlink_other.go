//go:build !linux

package neighbor

import (
	"fmt"
	"net"
	"net/netip"
	"runtime"
)

type NetlinkWriter struct{}

func NewNetlinkWriter(ifname string) (*NetlinkWriter, error) {
	return nil, fmt.Errorf("neighbor table updates are not supported on %s", runtime.GOOS)
}

func (w *NetlinkWriter) SetNeighbor(netip.Addr, net.HardwareAddr) error {
	return fmt.Errorf("neighbor table updates are not supported on %s", runtime.GOOS)
}
