package media

import (
	"errors"
	"time"
)

// BytesPerPixel is the width of one packed BGRA pixel.
const BytesPerPixel = 4

// ErrNotReady signals that the source has no new frame yet. Callers retry on
// the next cycle.
var ErrNotReady = errors.New("frame not ready")

// RawFrame is one captured image in packed 32-bit BGRA form.
type RawFrame struct {
	Data     []byte
	Width    int
	Height   int
	Stride   int
	Captured time.Time
}

// RowStride returns the byte distance between rows, deriving it from the
// buffer length when the source did not report one.
func (f RawFrame) RowStride() int {
	if f.Stride > 0 {
		return f.Stride
	}
	if f.Height <= 0 {
		return f.Width * BytesPerPixel
	}
	return len(f.Data) / f.Height
}

// Empty reports whether the frame carries no pixel data.
func (f RawFrame) Empty() bool {
	return len(f.Data) == 0
}

// Clone returns an independent copy of the frame.
func (f RawFrame) Clone() RawFrame {
	out := f
	if f.Data != nil {
		out.Data = make([]byte, len(f.Data))
		copy(out.Data, f.Data)
	}
	return out
}

// CopyFrame builds an owned RawFrame from a source buffer that is only valid
// until the next grab.
func CopyFrame(buf []byte, width, height, stride int, captured time.Time) RawFrame {
	data := make([]byte, len(buf))
	copy(data, buf)
	return RawFrame{Data: data, Width: width, Height: height, Stride: stride, Captured: captured}
}

// PlanarFrame holds an I420 image: a full-resolution luma plane followed by
// two quarter-resolution chroma planes.
type PlanarFrame struct {
	Width  int
	Height int
	Y      []byte
	U      []byte
	V      []byte
}

// ChromaSize returns the dimensions of each chroma plane.
func ChromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// Bytes returns the three planes concatenated in Y, U, V order.
func (p *PlanarFrame) Bytes() []byte {
	out := make([]byte, 0, len(p.Y)+len(p.U)+len(p.V))
	out = append(out, p.Y...)
	out = append(out, p.U...)
	return append(out, p.V...)
}
