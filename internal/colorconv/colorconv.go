// Package colorconv converts packed BGRA frames into the I420 planar layout
// expected by video encoders.
//
// Chroma is sampled from the top-left pixel of each 2x2 block rather than an
// average of the block.
package colorconv

import (
	"fmt"

	"skmotion/internal/media"
)

// BGRAToI420 converts src into dst, reusing dst's plane buffers when they are
// large enough.
func BGRAToI420(src media.RawFrame, dst *media.PlanarFrame) error {
	width, height := src.Width, src.Height
	if width <= 0 || height <= 0 {
		return fmt.Errorf("convert frame: invalid dimensions %dx%d", width, height)
	}
	stride := src.RowStride()
	if stride < width*media.BytesPerPixel {
		return fmt.Errorf("convert frame: stride %d shorter than row of %d pixels", stride, width)
	}
	if need := stride*(height-1) + width*media.BytesPerPixel; len(src.Data) < need {
		return fmt.Errorf("convert frame: buffer holds %d bytes, need %d", len(src.Data), need)
	}

	cw, ch := media.ChromaSize(width, height)
	dst.Width = width
	dst.Height = height
	dst.Y = resize(dst.Y, width*height)
	dst.U = resize(dst.U, cw*ch)
	dst.V = resize(dst.V, cw*ch)

	data := src.Data
	for y := 0; y < height; y++ {
		row := y * stride
		out := dst.Y[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			o := row + x*media.BytesPerPixel
			b, g, r := int(data[o]), int(data[o+1]), int(data[o+2])
			out[x] = clamp((66*r+129*g+25*b+128)/256 + 16)
		}
	}

	i := 0
	for y := 0; y < height; y += 2 {
		row := y * stride
		for x := 0; x < width; x += 2 {
			o := row + x*media.BytesPerPixel
			b, g, r := int(data[o]), int(data[o+1]), int(data[o+2])
			dst.U[i] = clamp((-38*r-74*g+112*b+128)/256 + 128)
			dst.V[i] = clamp((112*r-94*g-18*b+128)/256 + 128)
			i++
		}
	}
	return nil
}

func resize(buf []byte, n int) []byte {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]byte, n)
}

func clamp(v int) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}
