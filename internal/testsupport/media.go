package testsupport

import (
	"errors"
	"sync"
	"time"

	"skmotion/internal/media"
)

// SolidFrame builds a BGRA frame filled with one colour.
func SolidFrame(width, height int, b, g, r byte) media.RawFrame {
	data := make([]byte, width*height*media.BytesPerPixel)
	for i := 0; i < len(data); i += media.BytesPerPixel {
		data[i] = b
		data[i+1] = g
		data[i+2] = r
		data[i+3] = 0xff
	}
	return media.RawFrame{Data: data, Width: width, Height: height, Stride: width * media.BytesPerPixel}
}

// FakeSource serves a fixed display list and hands out FakeGrabbers.
type FakeSource struct {
	List    []media.DisplayInfo
	Grabber *FakeGrabber
	ListErr error
	Opened  []int
}

func (s *FakeSource) Displays() ([]media.DisplayInfo, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return append([]media.DisplayInfo(nil), s.List...), nil
}

func (s *FakeSource) Open(index int) (media.Grabber, error) {
	for _, d := range s.List {
		if d.Index == index {
			s.Opened = append(s.Opened, index)
			if s.Grabber == nil {
				s.Grabber = &FakeGrabber{W: d.Width, H: d.Height}
			}
			return s.Grabber, nil
		}
	}
	return nil, errors.New("no such display")
}

// FakeGrabber replays Frames in order. Once exhausted it keeps returning the
// last frame, or ErrNotReady when Frames is empty. Limit, when positive, caps
// the number of successful grabs; later grabs return ErrNotReady. FailAfter,
// when positive, makes grab number FailAfter+1 return Err.
type FakeGrabber struct {
	W, H      int
	Frames    []media.RawFrame
	Limit     int
	FailAfter int
	Err       error
	// OnGrab runs after each successful grab with its 1-based count.
	OnGrab func(n int)

	mu     sync.Mutex
	grabs  int
	closed bool
}

func (g *FakeGrabber) Grab() (media.RawFrame, error) {
	g.mu.Lock()
	if g.FailAfter > 0 && g.grabs >= g.FailAfter {
		g.mu.Unlock()
		return media.RawFrame{}, g.Err
	}
	if len(g.Frames) == 0 || (g.Limit > 0 && g.grabs >= g.Limit) {
		g.mu.Unlock()
		return media.RawFrame{}, media.ErrNotReady
	}
	idx := g.grabs
	if idx >= len(g.Frames) {
		idx = len(g.Frames) - 1
	}
	frame := g.Frames[idx]
	g.grabs++
	n := g.grabs
	hook := g.OnGrab
	g.mu.Unlock()

	frame.Captured = time.Now()
	if hook != nil {
		hook(n)
	}
	return frame, nil
}

func (g *FakeGrabber) Grabs() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.grabs
}

func (g *FakeGrabber) Width() int  { return g.W }
func (g *FakeGrabber) Height() int { return g.H }

func (g *FakeGrabber) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return nil
}

func (g *FakeGrabber) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// FakeEncoder emits one key packet per frame carrying the timestamp, and one
// trailing packet on Flush. FailAt, when positive, fails the FailAt-th Encode.
type FakeEncoder struct {
	FailAt   int
	FlushErr error

	mu         sync.Mutex
	timestamps []int64
	calls      int
	flushed    bool
	closed     bool
}

func (e *FakeEncoder) Encode(timestampMs int64, frame *media.PlanarFrame) ([]media.Packet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.FailAt > 0 && e.calls == e.FailAt {
		return nil, errors.New("encoder exploded")
	}
	e.timestamps = append(e.timestamps, timestampMs)
	return []media.Packet{{Data: append([]byte(nil), frame.Y[:1]...), Pts: timestampMs, Key: len(e.timestamps) == 1}}, nil
}

func (e *FakeEncoder) Flush() ([]media.Packet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushed = true
	if e.FlushErr != nil {
		return nil, e.FlushErr
	}
	if len(e.timestamps) == 0 {
		return nil, nil
	}
	last := e.timestamps[len(e.timestamps)-1]
	return []media.Packet{{Data: []byte{0}, Pts: last}}, nil
}

func (e *FakeEncoder) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

// Timestamps returns the millisecond timestamps of successfully encoded frames.
func (e *FakeEncoder) Timestamps() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int64(nil), e.timestamps...)
}

func (e *FakeEncoder) Flushed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushed
}

// MuxedFrame is one packet recorded by FakeMuxer.
type MuxedFrame struct {
	Track media.TrackID
	PtsNs int64
	Key   bool
	Size  int
}

// FakeMuxer records tracks and frames in memory.
type FakeMuxer struct {
	TrackErr    error
	FinalizeErr error

	mu        sync.Mutex
	tracks    int
	frames    []MuxedFrame
	finalized bool
	codec     media.Codec
}

func (m *FakeMuxer) AddTrack(width, height int, codec media.Codec) (media.TrackID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TrackErr != nil {
		return 0, m.TrackErr
	}
	m.tracks++
	m.codec = codec
	return media.TrackID(m.tracks), nil
}

func (m *FakeMuxer) AddFrame(track media.TrackID, data []byte, ptsNs int64, key bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return errors.New("muxer already finalized")
	}
	m.frames = append(m.frames, MuxedFrame{Track: track, PtsNs: ptsNs, Key: key, Size: len(data)})
	return nil
}

func (m *FakeMuxer) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = true
	return m.FinalizeErr
}

func (m *FakeMuxer) Frames() []MuxedFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MuxedFrame(nil), m.frames...)
}

func (m *FakeMuxer) Finalized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalized
}

func (m *FakeMuxer) Codec() media.Codec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codec
}
