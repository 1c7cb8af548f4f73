package afpacket

import (
	"fmt"
)

const (
	tpacketAlignment = 16
	// TPACKET3_HDRLEN, rounded
	tpacketHdrLen = 52
	maxBlockSize  = 4 << 20
)

// ringGeometry is the PACKET_MMAP layout handed to the kernel.
type ringGeometry struct {
	frameSize int
	blockSize int
	numBlocks int
}

// computeGeometry fits a TPACKET_V3 ring into roughly bufferSizeMB. The
// kernel requires frameSize to be a multiple of TPACKET_ALIGNMENT and
// blockSize to be a multiple of both the page size and frameSize.
func computeGeometry(bufferSizeMB, snapLen, pageSize int) (ringGeometry, error) {
	if bufferSizeMB <= 0 {
		return ringGeometry{}, fmt.Errorf("buffer_size_mb must be positive, got %d", bufferSizeMB)
	}
	if snapLen <= 0 {
		return ringGeometry{}, fmt.Errorf("snap_len must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return ringGeometry{}, fmt.Errorf("page size must be a positive multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frame := roundUp(tpacketHdrLen+snapLen, tpacketAlignment)
	block := lcm(pageSize, frame)
	if block > maxBlockSize {
		// give up on dense packing: page-sized frames always divide evenly
		frame = roundUp(frame, pageSize)
		block = max(maxBlockSize/frame, 1) * frame
	}

	return ringGeometry{
		frameSize: frame,
		blockSize: block,
		numBlocks: max(bufferSizeMB<<20/block, 1),
	}, nil
}

func roundUp(n, multiple int) int {
	return (n + multiple - 1) / multiple * multiple
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
