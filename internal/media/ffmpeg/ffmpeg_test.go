package ffmpeg

import (
	"testing"

	"skmotion/internal/media"
)

func TestCodecIDCoversEveryCodec(t *testing.T) {
	for _, codec := range []media.Codec{media.CodecVP8, media.CodecVP9, media.CodecH264} {
		if _, err := codecID(codec); err != nil {
			t.Fatalf("codecID(%s): %v", codec, err)
		}
	}
	if _, err := codecID("theora"); err == nil {
		t.Fatal("expected error for unsupported codec")
	}
}

func TestEncoderOptionsDisableReordering(t *testing.T) {
	if encoderOptions(media.CodecH264)["bf"] != "0" {
		t.Fatal("h264 must not emit B-frames")
	}
	if encoderOptions(media.CodecVP9)["lag-in-frames"] != "0" {
		t.Fatal("vpx must not buffer look-ahead frames")
	}
}

func TestPlanarImageSharesPlanes(t *testing.T) {
	p := &media.PlanarFrame{Width: 5, Height: 3, Y: make([]byte, 15), U: make([]byte, 6), V: make([]byte, 6)}
	p.Y[7] = 200
	p.U[4] = 90
	img := planarImage(p)
	if img.YStride != 5 || img.CStride != 3 {
		t.Fatalf("strides = %d/%d", img.YStride, img.CStride)
	}
	if got := img.YCbCrAt(2, 1); got.Y != 200 {
		t.Fatalf("Y at (2,1) = %d", got.Y)
	}
	if got := img.YCbCrAt(2, 2); got.Cb != 90 {
		t.Fatalf("Cb at (2,2) = %d", got.Cb)
	}
}
