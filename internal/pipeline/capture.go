package pipeline

import (
	"errors"
	"log/slog"
	"time"

	"skmotion/internal/logging"
	"skmotion/internal/media"
)

// ErrCaptureFailed wraps grabber failures that ended a session early. Frames
// captured before the failure are still encoded.
var ErrCaptureFailed = errors.New("capture failed")

// grabError matches ErrCaptureFailed and has a single unwrap chain to the
// grabber error.
type grabError struct{ err error }

func (e *grabError) Error() string        { return "capture failed: grab frame: " + e.err.Error() }
func (e *grabError) Unwrap() error        { return e.err }
func (e *grabError) Is(target error) bool { return target == ErrCaptureFailed }

// CaptureStage grabs frames at the session cadence and queues owned copies for
// the filter stage.
type CaptureStage struct {
	session *Session
	grabber media.Grabber
	out     *Queue[media.RawFrame]
	logger  *slog.Logger
	now     func() time.Time
}

func NewCaptureStage(session *Session, grabber media.Grabber, out *Queue[media.RawFrame], logger *slog.Logger) *CaptureStage {
	return &CaptureStage{
		session: session,
		grabber: grabber,
		out:     out,
		logger:  stageLogger(logger, session, "capture"),
		now:     time.Now,
	}
}

// Run loops until stop is requested, the extent elapses, or the grabber fails.
// The output queue is closed on return.
func (c *CaptureStage) Run() error {
	defer c.out.Close()

	settings := c.session.Settings()
	interval := settings.Interval()
	started := c.session.StartedAt()
	if started.IsZero() {
		started = c.now()
	}

	for !c.session.StopRequested() {
		if c.session.Paused() {
			c.session.Sleep(settings.pausedBackoff())
			continue
		}

		began := c.now()
		if settings.Extent > 0 && began.Sub(started) >= settings.Extent {
			c.logger.Info("recording extent reached",
				logging.Duration("extent", settings.Extent),
				logging.String(logging.FieldEventType, "extent_reached"),
			)
			c.session.RequestStop(StopExtent)
			return nil
		}

		frame, err := c.grabber.Grab()
		switch {
		case err == nil:
			captured := frame.Captured
			if captured.IsZero() {
				captured = began
			}
			c.out.Push(media.CopyFrame(frame.Data, frame.Width, frame.Height, frame.Stride, captured))
			c.session.captured.Add(1)
		case errors.Is(err, media.ErrNotReady):
		default:
			logging.ErrorWithContext(c.logger, "screen grab failed; finishing recording", "capture_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the display is still connected and readable"),
				logging.String(logging.FieldImpact, "frames captured so far are still encoded"),
			)
			c.session.RequestStop(StopCaptureFailed)
			return &grabError{err: err}
		}

		if wait := interval - c.now().Sub(began); wait > 0 {
			c.session.Sleep(wait)
		}
	}
	return nil
}

func stageLogger(logger *slog.Logger, session *Session, stage string) *slog.Logger {
	logger = logging.NewComponentLogger(logger, "pipeline")
	attrs := []logging.Attr{logging.String(logging.FieldStage, stage)}
	if session != nil && session.ID() != "" {
		attrs = append(attrs, logging.String(logging.FieldSessionID, session.ID()))
	}
	return logger.With(logging.Args(attrs...)...)
}
