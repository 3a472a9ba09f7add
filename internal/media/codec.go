package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Codec identifies the video codec used for a recording.
type Codec string

const (
	CodecVP8  Codec = "vp8"
	CodecVP9  Codec = "vp9"
	CodecH264 Codec = "h264"
)

// ParseCodec normalizes a codec name.
func ParseCodec(value string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "vp8":
		return CodecVP8, nil
	case "", "vp9":
		return CodecVP9, nil
	case "h264", "avc":
		return CodecH264, nil
	default:
		return "", fmt.Errorf("unsupported codec %q (expected vp8, vp9, or h264)", value)
	}
}

// ContainerFor returns the container format implied by the destination
// extension, and whether the codec can be stored in it.
func ContainerFor(path string, codec Codec) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".webm":
		if codec == CodecH264 {
			return "", fmt.Errorf("codec %s cannot be stored in a webm container", codec)
		}
		return "webm", nil
	case ".mkv":
		return "matroska", nil
	case ".mp4":
		if codec == CodecVP8 {
			return "", fmt.Errorf("codec %s cannot be stored in an mp4 container", codec)
		}
		return "mp4", nil
	case "":
		return "", fmt.Errorf("destination %q has no extension; use .webm, .mkv, or .mp4", path)
	default:
		return "", fmt.Errorf("unsupported container extension %q", ext)
	}
}
