package colorconv_test

import (
	"bytes"
	"testing"

	"skmotion/internal/colorconv"
	"skmotion/internal/media"
)

func solidFrame(width, height, padding int, b, g, r byte) media.RawFrame {
	stride := width*4 + padding
	data := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := y*stride + x*4
			data[o], data[o+1], data[o+2], data[o+3] = b, g, r, 255
		}
		for p := 0; p < padding; p++ {
			data[y*stride+width*4+p] = 0xEE
		}
	}
	return media.RawFrame{Data: data, Width: width, Height: height, Stride: stride}
}

func TestKnownColors(t *testing.T) {
	cases := []struct {
		name    string
		b, g, r byte
		y, u, v byte
	}{
		{"black", 0, 0, 0, 16, 128, 128},
		{"white", 255, 255, 255, 235, 128, 128},
		{"red", 0, 0, 255, 82, 91, 240},
		{"blue", 255, 0, 0, 41, 240, 111},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dst media.PlanarFrame
			if err := colorconv.BGRAToI420(solidFrame(4, 2, 0, tc.b, tc.g, tc.r), &dst); err != nil {
				t.Fatalf("convert: %v", err)
			}
			if dst.Y[0] != tc.y || dst.U[0] != tc.u || dst.V[0] != tc.v {
				t.Fatalf("got y=%d u=%d v=%d want y=%d u=%d v=%d", dst.Y[0], dst.U[0], dst.V[0], tc.y, tc.u, tc.v)
			}
		})
	}
}

func TestPlaneSizesWithOddDimensions(t *testing.T) {
	var dst media.PlanarFrame
	if err := colorconv.BGRAToI420(solidFrame(5, 3, 0, 10, 20, 30), &dst); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(dst.Y) != 15 || len(dst.U) != 6 || len(dst.V) != 6 {
		t.Fatalf("unexpected plane sizes y=%d u=%d v=%d", len(dst.Y), len(dst.U), len(dst.V))
	}
}

func TestStridePaddingIgnored(t *testing.T) {
	var plain, padded media.PlanarFrame
	if err := colorconv.BGRAToI420(solidFrame(6, 4, 0, 40, 80, 120), &plain); err != nil {
		t.Fatalf("convert plain: %v", err)
	}
	if err := colorconv.BGRAToI420(solidFrame(6, 4, 8, 40, 80, 120), &padded); err != nil {
		t.Fatalf("convert padded: %v", err)
	}
	if !bytes.Equal(plain.Bytes(), padded.Bytes()) {
		t.Fatal("row padding changed the converted output")
	}
}

func TestChromaUsesTopLeftPixel(t *testing.T) {
	frame := solidFrame(2, 2, 0, 0, 0, 0)
	// Paint every pixel except the top-left white.
	for _, o := range []int{4, 8, 12} {
		frame.Data[o], frame.Data[o+1], frame.Data[o+2] = 255, 255, 255
	}
	frame.Data[2] = 255 // top-left red
	var dst media.PlanarFrame
	if err := colorconv.BGRAToI420(frame, &dst); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if dst.U[0] != 91 || dst.V[0] != 240 {
		t.Fatalf("expected chroma from the red top-left pixel, got u=%d v=%d", dst.U[0], dst.V[0])
	}
}

func TestDeterministicAndInRange(t *testing.T) {
	width, height := 7, 5
	frame := media.RawFrame{Data: make([]byte, width*height*4), Width: width, Height: height}
	for i := range frame.Data {
		frame.Data[i] = byte(i * 37)
	}
	var first, second media.PlanarFrame
	if err := colorconv.BGRAToI420(frame, &first); err != nil {
		t.Fatalf("convert: %v", err)
	}
	snapshot := first.Bytes()
	if err := colorconv.BGRAToI420(frame, &second); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !bytes.Equal(snapshot, second.Bytes()) {
		t.Fatal("conversion is not deterministic")
	}
	// Reusing the destination must give the same result.
	if err := colorconv.BGRAToI420(frame, &first); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !bytes.Equal(snapshot, first.Bytes()) {
		t.Fatal("conversion into a reused buffer changed the output")
	}
}

func TestRejectsShortBuffer(t *testing.T) {
	frame := media.RawFrame{Data: make([]byte, 10), Width: 4, Height: 4, Stride: 16}
	var dst media.PlanarFrame
	if err := colorconv.BGRAToI420(frame, &dst); err == nil {
		t.Fatal("expected error for truncated buffer")
	}
}
