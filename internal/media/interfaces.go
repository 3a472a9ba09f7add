package media

// DisplayInfo describes one capturable display.
type DisplayInfo struct {
	Index  int
	Width  int
	Height int
}

// Source enumerates displays and opens grabbers for them.
type Source interface {
	Displays() ([]DisplayInfo, error)
	Open(index int) (Grabber, error)
}

// Grabber yields frames for a single display. The returned frame's buffer is
// only valid until the next Grab call; it may return ErrNotReady.
type Grabber interface {
	Grab() (RawFrame, error)
	Width() int
	Height() int
	Close() error
}

// Packet is one compressed unit produced by an Encoder. Pts is expressed in
// the encoder timebase (milliseconds).
type Packet struct {
	Data []byte
	Pts  int64
	Key  bool
}

// EncoderConfig configures an Encoder.
type EncoderConfig struct {
	Width   int
	Height  int
	FPS     int
	Bitrate int
	Codec   Codec
}

// TimebaseDen is the denominator of the encoder timebase (1/1000 s).
const TimebaseDen = 1000

// Encoder turns planar frames into compressed packets.
type Encoder interface {
	Encode(timestampMs int64, frame *PlanarFrame) ([]Packet, error)
	Flush() ([]Packet, error)
	Close() error
}

// TrackID identifies a track inside a Muxer.
type TrackID int

// Muxer interleaves packets into a container file.
type Muxer interface {
	AddTrack(width, height int, codec Codec) (TrackID, error)
	AddFrame(track TrackID, data []byte, ptsNs int64, key bool) error
	Finalize() error
}
