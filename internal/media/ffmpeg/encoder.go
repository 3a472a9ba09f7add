package ffmpeg

import (
	"errors"
	"fmt"
	"image"

	"github.com/asticode/go-astiav"

	"skmotion/internal/media"
)

// Encoder wraps a libavcodec video encoder fed with I420 frames.
type Encoder struct {
	codec  *astiav.Codec
	ctx    *astiav.CodecContext
	frame  *astiav.Frame
	packet *astiav.Packet
	cfg    media.EncoderConfig
}

func codecID(codec media.Codec) (astiav.CodecID, error) {
	switch codec {
	case media.CodecVP8:
		return astiav.CodecIDVp8, nil
	case media.CodecVP9:
		return astiav.CodecIDVp9, nil
	case media.CodecH264:
		return astiav.CodecIDH264, nil
	default:
		return 0, fmt.Errorf("unsupported codec %q", codec)
	}
}

// encoderOptions keeps encoders real-time and B-frame free so packet order
// equals frame order.
func encoderOptions(codec media.Codec) map[string]string {
	switch codec {
	case media.CodecH264:
		return map[string]string{"preset": "veryfast", "tune": "stillimage", "bf": "0"}
	default:
		return map[string]string{"deadline": "realtime", "cpu-used": "8", "lag-in-frames": "0"}
	}
}

// NewEncoder opens an encoder. globalHeader must match the target container
// (see Muxer.NeedsGlobalHeader).
func NewEncoder(cfg media.EncoderConfig, globalHeader bool) (*Encoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	id, err := codecID(cfg.Codec)
	if err != nil {
		return nil, err
	}
	codec := astiav.FindEncoder(id)
	if codec == nil {
		return nil, fmt.Errorf("no %s encoder in this ffmpeg build", cfg.Codec)
	}
	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return nil, errors.New("allocate codec context")
	}

	ctx.SetWidth(cfg.Width)
	ctx.SetHeight(cfg.Height)
	ctx.SetPixelFormat(astiav.PixelFormatYuv420P)
	ctx.SetTimeBase(astiav.NewRational(1, media.TimebaseDen))
	if cfg.FPS > 0 {
		ctx.SetFramerate(astiav.NewRational(cfg.FPS, 1))
		ctx.SetGopSize(cfg.FPS * 10)
	}
	ctx.SetBitRate(int64(cfg.Bitrate) * 1000)
	if globalHeader {
		ctx.SetFlags(ctx.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	opts := astiav.NewDictionary()
	defer opts.Free()
	for k, v := range encoderOptions(cfg.Codec) {
		if err := opts.Set(k, v, astiav.NewDictionaryFlags()); err != nil {
			ctx.Free()
			return nil, fmt.Errorf("set encoder option %s: %w", k, err)
		}
	}
	if err := ctx.Open(codec, opts); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("open %s encoder: %w", cfg.Codec, err)
	}

	frame := astiav.AllocFrame()
	frame.SetWidth(cfg.Width)
	frame.SetHeight(cfg.Height)
	frame.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := frame.AllocBuffer(0); err != nil {
		frame.Free()
		ctx.Free()
		return nil, fmt.Errorf("allocate frame buffer: %w", err)
	}

	return &Encoder{codec: codec, ctx: ctx, frame: frame, packet: astiav.AllocPacket(), cfg: cfg}, nil
}

// Encode submits one frame stamped with timestampMs and returns the packets
// the encoder released.
func (e *Encoder) Encode(timestampMs int64, planar *media.PlanarFrame) ([]media.Packet, error) {
	if planar.Width != e.cfg.Width || planar.Height != e.cfg.Height {
		return nil, fmt.Errorf("frame size %dx%d does not match encoder %dx%d", planar.Width, planar.Height, e.cfg.Width, e.cfg.Height)
	}
	if err := e.frame.MakeWritable(); err != nil {
		return nil, fmt.Errorf("make frame writable: %w", err)
	}
	if err := e.frame.Data().FromImage(planarImage(planar)); err != nil {
		return nil, fmt.Errorf("copy planes: %w", err)
	}
	e.frame.SetPts(timestampMs)
	if err := e.ctx.SendFrame(e.frame); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}
	return e.receive()
}

// Flush drains the packets still buffered inside the encoder.
func (e *Encoder) Flush() ([]media.Packet, error) {
	if err := e.ctx.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return nil, fmt.Errorf("send flush: %w", err)
	}
	return e.receive()
}

func (e *Encoder) receive() ([]media.Packet, error) {
	var packets []media.Packet
	for {
		err := e.ctx.ReceivePacket(e.packet)
		if errors.Is(err, astiav.ErrEof) || errors.Is(err, astiav.ErrEagain) {
			return packets, nil
		}
		if err != nil {
			return packets, fmt.Errorf("receive packet: %w", err)
		}
		packets = append(packets, media.Packet{
			Data: append([]byte(nil), e.packet.Data()...),
			Pts:  e.packet.Pts(),
			Key:  e.packet.Flags().Has(astiav.PacketFlagKey),
		})
		e.packet.Unref()
	}
}

// Close releases the libav resources.
func (e *Encoder) Close() error {
	if e.packet != nil {
		e.packet.Free()
		e.packet = nil
	}
	if e.frame != nil {
		e.frame.Free()
		e.frame = nil
	}
	if e.ctx != nil {
		e.ctx.Free()
		e.ctx = nil
	}
	return nil
}

// planarImage views an I420 frame as an image.YCbCr without copying.
func planarImage(p *media.PlanarFrame) *image.YCbCr {
	cw, _ := media.ChromaSize(p.Width, p.Height)
	return &image.YCbCr{
		Y:              p.Y,
		Cb:             p.U,
		Cr:             p.V,
		YStride:        p.Width,
		CStride:        cw,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, p.Width, p.Height),
	}
}

// EncoderAvailable reports whether the linked libavcodec has an encoder for
// codec.
func EncoderAvailable(codec media.Codec) bool {
	id, err := codecID(codec)
	if err != nil {
		return false
	}
	return astiav.FindEncoder(id) != nil
}
