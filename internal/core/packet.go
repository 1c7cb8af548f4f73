// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawPacket is one frame read from a source.
type RawPacket struct {
	Data           []byte    // Raw frame data
	Timestamp      time.Time // Capture timestamp (kernel timestamp preferred)
	CaptureLen     uint32    // Actual captured length
	OrigLen        uint32    // Original frame length
	InterfaceIndex int       // Network interface index
}
