package decoder

import "encoding/binary"

// FrameView is a read-only, length-bounded view over one frame. Every
// accessor checks its range with InBounds before touching the buffer and
// reports failure instead of panicking.
type FrameView struct {
	buf []byte
}

// NewFrameView wraps frame without copying it.
func NewFrameView(frame []byte) FrameView {
	return FrameView{buf: frame}
}

// Len returns the frame length.
func (v FrameView) Len() int {
	return len(v.buf)
}

// InBounds reports whether [offset, offset+length) lies inside the frame.
// The comparison is arranged so offset+length cannot overflow.
func (v FrameView) InBounds(offset, length int) bool {
	return offset >= 0 && length >= 0 && offset <= len(v.buf) && length <= len(v.buf)-offset
}

// Uint8 reads one byte at offset.
func (v FrameView) Uint8(offset int) (uint8, bool) {
	if !v.InBounds(offset, 1) {
		return 0, false
	}
	return v.buf[offset], true
}

// Uint16 reads a big-endian 16-bit field at offset and returns it in host order.
func (v FrameView) Uint16(offset int) (uint16, bool) {
	if !v.InBounds(offset, 2) {
		return 0, false
	}
	return binary.BigEndian.Uint16(v.buf[offset : offset+2]), true
}

// Slice returns the length bytes at offset. The result has its capacity
// capped so appends cannot reach past the checked range.
func (v FrameView) Slice(offset, length int) ([]byte, bool) {
	if !v.InBounds(offset, length) {
		return nil, false
	}
	return v.buf[offset : offset+length : offset+length], true
}
