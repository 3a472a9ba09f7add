package recorder

import (
	"context"
	"fmt"
	"time"

	"skmotion/internal/media"
	"skmotion/internal/media/ffmpeg"
	"skmotion/internal/media/ffprobe"
	"skmotion/internal/pipeline"
)

// OpenMedia opens the libav encoder and muxer for path. The container is
// chosen from the file extension.
func OpenMedia(cfg media.EncoderConfig, path string) (media.Encoder, media.Muxer, error) {
	container, err := media.ContainerFor(path, cfg.Codec)
	if err != nil {
		return nil, nil, err
	}
	muxer, err := ffmpeg.NewMuxer(path, container)
	if err != nil {
		return nil, nil, err
	}
	encoder, err := ffmpeg.NewEncoder(cfg, muxer.NeedsGlobalHeader())
	if err != nil {
		_ = muxer.Finalize()
		return nil, nil, err
	}
	muxer.UseEncoder(encoder)
	return encoder, muxer, nil
}

// Probe is what ffprobe reported about the finalized file.
type Probe struct {
	Duration time.Duration
	Frames   int64
	Codec    string
	Width    int
	Height   int
}

// ProbeWithFFprobe inspects path when ffprobe is installed and checks it
// against the session settings. It returns nil, nil when ffprobe is missing.
func ProbeWithFFprobe(ctx context.Context, path string, settings pipeline.Settings) (*Probe, error) {
	if !ffprobe.Available("") {
		return nil, nil
	}
	result, err := ffprobe.Inspect(ctx, "", path)
	if err != nil {
		return nil, err
	}
	video, ok := result.Video()
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ffprobe.ErrNoVideo)
	}
	probe := &Probe{
		Duration: result.Duration(),
		Frames:   video.Frames(),
		Codec:    video.CodecName,
		Width:    video.Width,
		Height:   video.Height,
	}
	if err := result.Check(string(settings.Codec), video.Width, video.Height); err != nil {
		return probe, err
	}
	return probe, nil
}
