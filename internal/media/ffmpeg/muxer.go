package ffmpeg

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asticode/go-astiav"

	"skmotion/internal/media"
)

// Muxer writes encoded packets into a container file through libavformat.
type Muxer struct {
	mu        sync.Mutex
	path      string
	fmtCtx    *astiav.FormatContext
	ioCtx     *astiav.IOContext
	stream    *astiav.Stream
	encoder   *Encoder
	packet    *astiav.Packet
	header    bool
	finalized bool
}

// NewMuxer allocates the output context for container (a libavformat short
// name such as "webm") at path. The file is created when the track is added.
func NewMuxer(path, container string) (*Muxer, error) {
	fmtCtx, err := astiav.AllocOutputFormatContext(nil, container, path)
	if err != nil {
		return nil, fmt.Errorf("allocate %s output: %w", container, err)
	}
	if fmtCtx == nil {
		return nil, fmt.Errorf("allocate %s output", container)
	}
	return &Muxer{path: path, fmtCtx: fmtCtx, packet: astiav.AllocPacket()}, nil
}

// NeedsGlobalHeader reports whether encoders must emit out-of-band headers for
// this container.
func (m *Muxer) NeedsGlobalHeader() bool {
	return m.fmtCtx.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader)
}

// UseEncoder attaches the encoder whose parameters describe the video track.
func (m *Muxer) UseEncoder(e *Encoder) {
	m.mu.Lock()
	m.encoder = e
	m.mu.Unlock()
}

// AddTrack creates the single video stream, opens the file and writes the
// container header.
func (m *Muxer) AddTrack(width, height int, codec media.Codec) (media.TrackID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		return 0, errors.New("video track already added")
	}
	if m.encoder == nil {
		return 0, errors.New("no encoder attached")
	}
	if m.encoder.cfg.Codec != codec || m.encoder.cfg.Width != width || m.encoder.cfg.Height != height {
		return 0, fmt.Errorf("track %s %dx%d does not match encoder %s %dx%d",
			codec, width, height, m.encoder.cfg.Codec, m.encoder.cfg.Width, m.encoder.cfg.Height)
	}

	stream := m.fmtCtx.NewStream(m.encoder.codec)
	if stream == nil {
		return 0, errors.New("create video stream")
	}
	if err := stream.CodecParameters().FromCodecContext(m.encoder.ctx); err != nil {
		return 0, fmt.Errorf("copy codec parameters: %w", err)
	}
	stream.SetTimeBase(m.encoder.ctx.TimeBase())

	if !m.fmtCtx.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		ioCtx, err := astiav.OpenIOContext(m.path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite))
		if err != nil {
			return 0, fmt.Errorf("open %s: %w", m.path, err)
		}
		m.ioCtx = ioCtx
		m.fmtCtx.SetPb(ioCtx)
	}
	if err := m.fmtCtx.WriteHeader(nil); err != nil {
		return 0, fmt.Errorf("write container header: %w", err)
	}
	m.header = true
	m.stream = stream
	return media.TrackID(stream.Index()), nil
}

// AddFrame writes one packet whose presentation time is ptsNs nanoseconds.
func (m *Muxer) AddFrame(track media.TrackID, data []byte, ptsNs int64, key bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil || int(track) != m.stream.Index() {
		return fmt.Errorf("unknown track %d", track)
	}
	if m.finalized {
		return errors.New("container already finalized")
	}

	if err := m.packet.FromData(data); err != nil {
		return fmt.Errorf("wrap packet: %w", err)
	}
	defer m.packet.Unref()

	ts := ptsNs / int64(time.Millisecond)
	m.packet.SetPts(ts)
	m.packet.SetDts(ts)
	m.packet.SetStreamIndex(m.stream.Index())
	if key {
		m.packet.SetFlags(astiav.NewPacketFlags(astiav.PacketFlagKey))
	}
	m.packet.RescaleTs(astiav.NewRational(1, media.TimebaseDen), m.stream.TimeBase())
	if err := m.fmtCtx.WriteInterleavedFrame(m.packet); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// Finalize writes the trailer and closes the file. It is safe to call more
// than once; later calls are no-ops.
func (m *Muxer) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return nil
	}
	m.finalized = true

	var errs []error
	if m.header {
		if err := m.fmtCtx.WriteTrailer(); err != nil {
			errs = append(errs, fmt.Errorf("write trailer: %w", err))
		}
	}
	if m.ioCtx != nil {
		if err := m.ioCtx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", m.path, err))
		}
		m.ioCtx = nil
	}
	if m.packet != nil {
		m.packet.Free()
		m.packet = nil
	}
	m.fmtCtx.Free()
	return errors.Join(errs...)
}
