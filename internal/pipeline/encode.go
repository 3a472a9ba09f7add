package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skmotion/internal/colorconv"
	"skmotion/internal/logging"
	"skmotion/internal/media"
)

// EncodeStage converts accepted frames to I420, encodes them, and muxes the
// resulting packets into the destination track.
type EncodeStage struct {
	session *Session
	in      *Queue[media.RawFrame]
	encoder media.Encoder
	muxer   media.Muxer
	track   media.TrackID
	planar  media.PlanarFrame
	logger  *slog.Logger
	failed  bool

	// lastMs is the timestamp of the last committed frame; valid once saved > 0.
	lastMs int64
}

func NewEncodeStage(session *Session, in *Queue[media.RawFrame], encoder media.Encoder, muxer media.Muxer, track media.TrackID, logger *slog.Logger) *EncodeStage {
	return &EncodeStage{
		session: session,
		in:      in,
		encoder: encoder,
		muxer:   muxer,
		track:   track,
		logger:  stageLogger(logger, session, "encode"),
	}
}

// Run commits frames until the filter queue is drained, then flushes the
// encoder and finalizes the container. After a mid-stream failure the remaining
// frames are counted as dropped but flush and finalize are still attempted.
func (e *EncodeStage) Run() error {
	settings := e.session.Settings()
	var errs []error

	for !e.in.Drained() {
		if e.session.Paused() && !e.session.StopRequested() {
			e.session.Sleep(settings.pausedBackoff())
			continue
		}
		frame, ok := e.in.PopWait(settings.idleBackoff())
		if !ok {
			continue
		}
		if e.failed {
			e.session.dropped.Add(1)
			continue
		}
		if err := e.commit(frame); err != nil {
			e.failed = true
			e.session.dropped.Add(1)
			errs = append(errs, err)
			logging.ErrorWithContext(e.logger, "encoding failed; stopping recording", "encode_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check codec support and destination disk space"),
				logging.String(logging.FieldImpact, "remaining queued frames are dropped"),
			)
			e.session.RequestStop(StopEncodeFailed)
		}
	}

	if err := e.finish(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *EncodeStage) commit(frame media.RawFrame) error {
	if err := colorconv.BGRAToI420(frame, &e.planar); err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}
	tsMs := e.timestamp(frame).Milliseconds()
	// Containers reject timestamps that do not increase. LIFO hand-off can
	// commit wall-clock frames out of capture order.
	if e.session.saved.Load() > 0 && tsMs <= e.lastMs {
		tsMs = e.lastMs + 1
	}
	packets, err := e.encoder.Encode(tsMs, &e.planar)
	if err != nil {
		return fmt.Errorf("encode frame at %dms: %w", tsMs, err)
	}
	if err := e.mux(packets); err != nil {
		return err
	}
	e.lastMs = tsMs
	e.session.saved.Add(1)
	return nil
}

// timestamp is the presentation offset for the next committed frame.
func (e *EncodeStage) timestamp(frame media.RawFrame) time.Duration {
	settings := e.session.Settings()
	if settings.Timestamps == TimestampsWallclock {
		started := e.session.StartedAt()
		if started.IsZero() || frame.Captured.Before(started) {
			return 0
		}
		return frame.Captured.Sub(started)
	}
	committed := int64(e.session.saved.Load())
	return time.Duration(committed * settings.multiplier() * int64(settings.Interval()))
}

func (e *EncodeStage) mux(packets []media.Packet) error {
	for _, packet := range packets {
		ptsNs := packet.Pts * int64(time.Millisecond)
		if err := e.muxer.AddFrame(e.track, packet.Data, ptsNs, packet.Key); err != nil {
			return fmt.Errorf("mux packet at %dms: %w", packet.Pts, err)
		}
	}
	return nil
}

func (e *EncodeStage) finish() error {
	var errs []error
	packets, err := e.encoder.Flush()
	if err != nil {
		errs = append(errs, fmt.Errorf("flush encoder: %w", err))
	}
	if err := e.mux(packets); err != nil {
		errs = append(errs, err)
	}
	if err := e.muxer.Finalize(); err != nil {
		errs = append(errs, fmt.Errorf("finalize container: %w", err))
	}
	return errors.Join(errs...)
}
