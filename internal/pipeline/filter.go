package pipeline

import (
	"context"
	"log/slog"

	"skmotion/internal/logging"
	"skmotion/internal/media"
	"skmotion/internal/similarity"
)

// FilterStage compares each captured frame with the last changed frame and
// forwards the ones worth keeping to the encode stage.
type FilterStage struct {
	session    *Session
	in         *Queue[media.RawFrame]
	out        *Queue[media.RawFrame]
	resilience *Resilience
	reference  media.RawFrame
	logger     *slog.Logger
}

func NewFilterStage(session *Session, in, out *Queue[media.RawFrame], logger *slog.Logger) *FilterStage {
	return &FilterStage{
		session:    session,
		in:         in,
		out:        out,
		resilience: NewResilience(session.Settings().Resilience),
		logger:     stageLogger(logger, session, "filter"),
	}
}

// Run evaluates frames until the capture queue is drained. Pause is ignored
// once stop has been requested so the queue still empties.
func (f *FilterStage) Run() error {
	defer f.out.Close()

	settings := f.session.Settings()
	for !f.in.Drained() {
		if f.session.Paused() && !f.session.StopRequested() {
			f.session.Sleep(settings.pausedBackoff())
			continue
		}
		frame, ok := f.in.PopWait(settings.idleBackoff())
		if !ok {
			continue
		}
		f.evaluate(frame, settings.Sensitivity)
	}
	return nil
}

func (f *FilterStage) evaluate(frame media.RawFrame, sensitivity float64) Decision {
	result := similarity.Compare(frame.Data, f.reference.Data, sensitivity)
	f.session.setSimilarity(result.Similarity(len(frame.Data)))

	decision := f.resilience.Decide(result.Different)
	switch decision {
	case AcceptChanged:
		f.reference = frame.Clone()
		fallthrough
	case AcceptHoldover:
		f.session.accepted.Add(1)
		f.out.Push(frame)
	default:
		f.session.skipped.Add(1)
	}
	if f.logger.Enabled(context.Background(), slog.LevelDebug) {
		f.logger.Debug("frame evaluated",
			logging.String("decision", decision.String()),
			logging.Int("mismatches", result.Mismatches),
			logging.Int("acceptable", result.Acceptable),
		)
	}
	return decision
}
