package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"skmotion/internal/media"
	"skmotion/internal/pipeline"
	"skmotion/internal/testsupport"
)

func testSettings() pipeline.Settings {
	return pipeline.Settings{
		FPS:                 1000,
		Sensitivity:         0.001,
		Resilience:          0,
		Bitrate:             1000,
		Codec:               media.CodecVP9,
		Timestamps:          pipeline.TimestampsSynthetic,
		TimestampMultiplier: 1,
		Discipline:          pipeline.FIFO,
		IdleBackoff:         time.Millisecond,
		PausedBackoff:       time.Millisecond,
	}
}

type harness struct {
	session *pipeline.Session
	grabber *testsupport.FakeGrabber
	encoder media.Encoder
	fakeEnc *testsupport.FakeEncoder
	muxer   *testsupport.FakeMuxer
}

func newHarness(t *testing.T, settings pipeline.Settings, frames []media.RawFrame) *harness {
	t.Helper()
	enc := &testsupport.FakeEncoder{}
	return &harness{
		session: pipeline.NewSession("test-session", settings),
		grabber: &testsupport.FakeGrabber{W: 4, H: 2, Frames: frames},
		encoder: enc,
		fakeEnc: enc,
		muxer:   &testsupport.FakeMuxer{},
	}
}

// stopAfter requests a stop from inside the grab that produces the n-th frame.
func (h *harness) stopAfter(n int) {
	h.grabber.Limit = n
	h.grabber.OnGrab = func(count int) {
		if count == n {
			h.session.RequestStop(pipeline.StopOperator)
		}
	}
}

func (h *harness) build(t *testing.T, companions ...pipeline.Companion) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New(pipeline.Options{
		Session:    h.session,
		Grabber:    h.grabber,
		Encoder:    h.encoder,
		Muxer:      h.muxer,
		Companions: companions,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return p
}

func runWithTimeout(t *testing.T, p *pipeline.Pipeline, ctx context.Context) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not finish")
		return nil
	}
}

func alternating(n int) []media.RawFrame {
	frames := make([]media.RawFrame, n)
	for i := range frames {
		if i%2 == 0 {
			frames[i] = testsupport.SolidFrame(4, 2, 0, 0, 0)
		} else {
			frames[i] = testsupport.SolidFrame(4, 2, 255, 255, 255)
		}
	}
	return frames
}

func assertInvariant(t *testing.T, s *pipeline.Session) pipeline.Counters {
	t.Helper()
	c := s.Counters()
	if c.Evaluated() != c.Captured {
		t.Fatalf("saved+skipped+dropped = %d, captured = %d (%+v)", c.Evaluated(), c.Captured, c)
	}
	return c
}

func TestIdenticalFramesSaveOnlyFirst(t *testing.T) {
	frame := testsupport.SolidFrame(4, 2, 10, 20, 30)
	h := newHarness(t, testSettings(), []media.RawFrame{frame})
	h.stopAfter(10)
	p := h.build(t)

	if err := runWithTimeout(t, p, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	c := assertInvariant(t, h.session)
	if c.Captured != 10 || c.Saved != 1 || c.Skipped != 9 {
		t.Fatalf("unexpected counters %+v", c)
	}
	if !h.muxer.Finalized() {
		t.Fatal("container not finalized")
	}
	if h.session.Phase() != pipeline.PhaseClosed {
		t.Fatalf("phase = %s", h.session.Phase())
	}
	if h.session.Similarity() != 1 {
		t.Fatalf("similarity = %v, want 1", h.session.Similarity())
	}
}

func TestHoldoverKeepsFramesAfterChange(t *testing.T) {
	black := testsupport.SolidFrame(4, 2, 0, 0, 0)
	white := testsupport.SolidFrame(4, 2, 255, 255, 255)
	settings := testSettings()
	settings.Resilience = 1
	h := newHarness(t, settings, []media.RawFrame{black, white, white, white})
	h.stopAfter(4)
	p := h.build(t)

	if err := runWithTimeout(t, p, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	c := assertInvariant(t, h.session)
	if c.Saved != 3 || c.Skipped != 1 || c.Accepted != 3 {
		t.Fatalf("unexpected counters %+v", c)
	}
}

type slowEncoder struct {
	*testsupport.FakeEncoder
	delay time.Duration
}

func (s slowEncoder) Encode(ts int64, frame *media.PlanarFrame) ([]media.Packet, error) {
	time.Sleep(s.delay)
	return s.FakeEncoder.Encode(ts, frame)
}

func TestStopWithQueuedFramesCommitsAll(t *testing.T) {
	h := newHarness(t, testSettings(), alternating(20))
	h.encoder = slowEncoder{FakeEncoder: h.fakeEnc, delay: 5 * time.Millisecond}
	h.stopAfter(20)
	p := h.build(t)

	if err := runWithTimeout(t, p, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	c := assertInvariant(t, h.session)
	if c.Saved != 20 || c.Dropped != 0 {
		t.Fatalf("unexpected counters %+v", c)
	}
	if !h.fakeEnc.Flushed() || !h.muxer.Finalized() {
		t.Fatal("expected flush and finalize")
	}
	// 20 frame packets plus the flush packet.
	if got := len(h.muxer.Frames()); got != 21 {
		t.Fatalf("muxed %d packets, want 21", got)
	}
}

func TestSyntheticTimestamps(t *testing.T) {
	settings := testSettings()
	settings.TimestampMultiplier = 40
	h := newHarness(t, settings, alternating(4))
	h.stopAfter(4)
	p := h.build(t)

	if err := runWithTimeout(t, p, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []int64{0, 40, 80, 120}
	got := h.fakeEnc.Timestamps()
	if len(got) != len(want) {
		t.Fatalf("timestamps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("timestamps = %v, want %v", got, want)
		}
	}
	frames := h.muxer.Frames()
	if frames[1].PtsNs != 40*int64(time.Millisecond) {
		t.Fatalf("pts_ns = %d", frames[1].PtsNs)
	}
	if !frames[0].Key {
		t.Fatal("first packet should be a key frame")
	}
}

func TestWallclockTimestampsAreMonotonic(t *testing.T) {
	settings := testSettings()
	settings.Timestamps = pipeline.TimestampsWallclock
	settings.FPS = 200
	h := newHarness(t, settings, alternating(5))
	h.stopAfter(5)
	p := h.build(t)

	if err := runWithTimeout(t, p, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := h.fakeEnc.Timestamps()
	if len(got) != 5 {
		t.Fatalf("timestamps = %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("timestamps not monotonic: %v", got)
		}
	}
	if got[len(got)-1] == 0 {
		t.Fatalf("wallclock timestamps should advance: %v", got)
	}
}

func TestLIFOWallclockTimestampsStrictlyIncrease(t *testing.T) {
	settings := testSettings()
	settings.Timestamps = pipeline.TimestampsWallclock
	settings.Discipline = pipeline.LIFO
	settings.FPS = 200
	h := newHarness(t, settings, alternating(20))
	h.encoder = slowEncoder{FakeEncoder: h.fakeEnc, delay: 20 * time.Millisecond}
	h.stopAfter(20)
	p := h.build(t)

	if err := runWithTimeout(t, p, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	c := assertInvariant(t, h.session)
	if c.Dropped != 0 {
		t.Fatalf("unexpected drops %+v", c)
	}
	got := h.fakeEnc.Timestamps()
	if len(got) != int(c.Saved) {
		t.Fatalf("encoded %d frames, saved %d", len(got), c.Saved)
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("timestamps not strictly increasing: %v", got)
		}
	}
}

func TestPauseSuspendsCapture(t *testing.T) {
	h := newHarness(t, testSettings(), alternating(6))
	h.grabber.Limit = 6
	h.session.Pause()
	p := h.build(t)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if n := h.grabber.Grabs(); n != 0 {
		t.Fatalf("grabbed %d frames while paused", n)
	}
	if st := p.Status(); !st.Paused || st.Phase != pipeline.PhaseRunning {
		t.Fatalf("unexpected status %+v", st)
	}

	p.Resume()
	deadline := time.Now().Add(5 * time.Second)
	for h.grabber.Grabs() < 6 {
		if time.Now().After(deadline) {
			t.Fatal("capture did not resume")
		}
		time.Sleep(time.Millisecond)
	}
	p.Pause()
	p.RequestStop(pipeline.StopOperator)
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	c := assertInvariant(t, h.session)
	if c.Saved != 6 {
		t.Fatalf("stop while paused must still drain: %+v", c)
	}
}

func TestExtentStopsSession(t *testing.T) {
	settings := testSettings()
	settings.Extent = 30 * time.Millisecond
	h := newHarness(t, settings, alternating(2))
	p := h.build(t)

	if err := runWithTimeout(t, p, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.session.StopReason() != pipeline.StopExtent {
		t.Fatalf("stop reason = %q", h.session.StopReason())
	}
	assertInvariant(t, h.session)
	if !h.muxer.Finalized() {
		t.Fatal("container not finalized")
	}
}

func TestCaptureFailureDrainsAndFinalizes(t *testing.T) {
	h := newHarness(t, testSettings(), alternating(3))
	h.grabber.FailAfter = 3
	h.grabber.Err = errors.New("display gone")
	p := h.build(t)

	err := runWithTimeout(t, p, context.Background())
	if !errors.Is(err, pipeline.ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
	c := assertInvariant(t, h.session)
	if c.Saved != 3 {
		t.Fatalf("frames before the failure must be saved: %+v", c)
	}
	if !h.muxer.Finalized() {
		t.Fatal("container not finalized")
	}
	if h.session.StopReason() != pipeline.StopCaptureFailed {
		t.Fatalf("stop reason = %q", h.session.StopReason())
	}
}

func TestEncodeFailureDropsRemainingFrames(t *testing.T) {
	h := newHarness(t, testSettings(), alternating(6))
	h.fakeEnc.FailAt = 2
	h.stopAfter(6)
	p := h.build(t)

	err := runWithTimeout(t, p, context.Background())
	if err == nil {
		t.Fatal("expected encode error")
	}
	c := assertInvariant(t, h.session)
	if c.Saved != 1 || c.Dropped == 0 {
		t.Fatalf("unexpected counters %+v", c)
	}
	if !h.fakeEnc.Flushed() || !h.muxer.Finalized() {
		t.Fatal("flush and finalize must still run after an encode failure")
	}
}

func TestFinalizeFailureReported(t *testing.T) {
	h := newHarness(t, testSettings(), alternating(2))
	h.muxer.FinalizeErr = errors.New("disk full")
	h.stopAfter(2)
	p := h.build(t)

	if err := runWithTimeout(t, p, context.Background()); err == nil {
		t.Fatal("expected finalize error")
	}
}

func TestContextCancelRequestsStop(t *testing.T) {
	h := newHarness(t, testSettings(), alternating(2))
	p := h.build(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	if err := runWithTimeout(t, p, ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.session.StopReason() != pipeline.StopSignal {
		t.Fatalf("stop reason = %q", h.session.StopReason())
	}
	assertInvariant(t, h.session)
}

type blockingCompanion struct {
	returned atomic.Bool
}

func (b *blockingCompanion) Run(ctx context.Context) error {
	<-ctx.Done()
	b.returned.Store(true)
	return ctx.Err()
}

func TestCompanionsAreJoined(t *testing.T) {
	h := newHarness(t, testSettings(), alternating(2))
	h.stopAfter(2)
	companion := &blockingCompanion{}
	p := h.build(t, companion)

	if err := runWithTimeout(t, p, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !companion.returned.Load() {
		t.Fatal("companion was not joined before Run returned")
	}
}

func TestNewRejectsTrackFailure(t *testing.T) {
	h := newHarness(t, testSettings(), nil)
	h.muxer.TrackErr = errors.New("unsupported")
	if _, err := pipeline.New(pipeline.Options{Session: h.session, Grabber: h.grabber, Encoder: h.encoder, Muxer: h.muxer}); err == nil {
		t.Fatal("expected AddTrack error")
	}
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	settings := testSettings()
	settings.FPS = 0
	h := newHarness(t, settings, nil)
	if _, err := pipeline.New(pipeline.Options{Session: h.session, Grabber: h.grabber, Encoder: h.encoder, Muxer: h.muxer}); err == nil {
		t.Fatal("expected settings error")
	}
}

func TestStartTwiceFails(t *testing.T) {
	h := newHarness(t, testSettings(), alternating(2))
	p := h.build(t)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
