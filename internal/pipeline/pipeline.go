package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"skmotion/internal/logging"
	"skmotion/internal/media"
)

// Companion is a goroutine supervised alongside the stages, such as the
// operator control surface. Its context is cancelled once the stages finish.
type Companion interface {
	Run(ctx context.Context) error
}

// Options wires the collaborators of one pipeline.
type Options struct {
	Session    *Session
	Grabber    media.Grabber
	Encoder    media.Encoder
	Muxer      media.Muxer
	Logger     *slog.Logger
	Companions []Companion
}

// Status summarizes a running pipeline for operators.
type Status struct {
	SessionID    string
	Phase        Phase
	Paused       bool
	StopReason   string
	Elapsed      time.Duration
	Counters     Counters
	Similarity   float64
	CaptureQueue int
	EncodeQueue  int
}

// Pipeline supervises the capture, filter and encode stages of one session.
type Pipeline struct {
	session    *Session
	logger     *slog.Logger
	captureQ   *Queue[media.RawFrame]
	encodeQ    *Queue[media.RawFrame]
	capture    *CaptureStage
	filter     *FilterStage
	encode     *EncodeStage
	companions []Companion

	mu       sync.Mutex
	started  bool
	wg       sync.WaitGroup
	stages   sync.WaitGroup
	cancel   context.CancelFunc
	errs     []error
	finished time.Time
}

// New validates the session settings and registers the video track. No
// goroutine runs until Start.
func New(opts Options) (*Pipeline, error) {
	if opts.Session == nil {
		return nil, errors.New("pipeline requires a session")
	}
	if opts.Grabber == nil || opts.Encoder == nil || opts.Muxer == nil {
		return nil, errors.New("pipeline requires a grabber, encoder and muxer")
	}
	settings := opts.Session.Settings()
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("session settings: %w", err)
	}
	track, err := opts.Muxer.AddTrack(opts.Grabber.Width(), opts.Grabber.Height(), settings.Codec)
	if err != nil {
		return nil, fmt.Errorf("add video track: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	captureQ := NewQueue[media.RawFrame](settings.Discipline)
	encodeQ := NewQueue[media.RawFrame](settings.Discipline)
	return &Pipeline{
		session:    opts.Session,
		logger:     stageLogger(logger, opts.Session, "supervisor"),
		captureQ:   captureQ,
		encodeQ:    encodeQ,
		capture:    NewCaptureStage(opts.Session, opts.Grabber, captureQ, logger),
		filter:     NewFilterStage(opts.Session, captureQ, encodeQ, logger),
		encode:     NewEncodeStage(opts.Session, encodeQ, opts.Encoder, opts.Muxer, track, logger),
		companions: append([]Companion(nil), opts.Companions...),
	}, nil
}

// Attach registers companions that need the pipeline itself, such as the
// control surface. It fails once the pipeline has started.
func (p *Pipeline) Attach(companions ...Companion) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.New("pipeline already started")
	}
	for _, c := range companions {
		if c != nil {
			p.companions = append(p.companions, c)
		}
	}
	return nil
}

// Start launches every stage and companion. Cancelling ctx requests a stop;
// the stages still drain and the container is still finalized.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return errors.New("pipeline already started")
	}
	if !p.session.markRunning(time.Now()) {
		p.mu.Unlock()
		return fmt.Errorf("session is %s", p.session.Phase())
	}
	p.started = true
	companionCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("recording started",
		logging.Int("fps", p.session.Settings().FPS),
		logging.Float64("sensitivity", p.session.Settings().Sensitivity),
		logging.Int("resilience", p.session.Settings().Resilience),
		logging.String("queue_discipline", p.session.Settings().Discipline.String()),
		logging.String(logging.FieldEventType, "session_started"),
	)

	p.stages.Add(3)
	p.wg.Add(3 + len(p.companions) + 1)
	p.runStage("capture", p.capture.Run)
	p.runStage("filter", p.filter.Run)
	p.runStage("encode", p.encode.Run)
	for _, companion := range p.companions {
		go func(c Companion) {
			defer p.wg.Done()
			if err := c.Run(companionCtx); err != nil && !errors.Is(err, context.Canceled) {
				logging.WarnWithContext(p.logger, "control surface stopped", "companion_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "operator commands may be unavailable"),
				)
			}
		}(companion)
	}

	// Bridge outer cancellation into the stop flag, and release companions
	// once every stage has returned.
	go func() {
		defer p.wg.Done()
		stagesDone := make(chan struct{})
		go func() {
			p.stages.Wait()
			close(stagesDone)
		}()
		select {
		case <-ctx.Done():
			p.session.RequestStop(StopSignal)
			<-stagesDone
		case <-stagesDone:
		}
		cancel()
	}()
	return nil
}

func (p *Pipeline) runStage(name string, run func() error) {
	go func() {
		defer p.wg.Done()
		defer p.stages.Done()
		if err := run(); err != nil {
			p.mu.Lock()
			p.errs = append(p.errs, fmt.Errorf("%s stage: %w", name, err))
			p.mu.Unlock()
		}
		// A stage that ends on its own ends the session.
		p.session.RequestStop(StopOperator)
		p.captureQ.Wake()
		p.encodeQ.Wake()
	}()
}

// Wait blocks until every stage and companion has returned and reports the
// combined stage errors.
func (p *Pipeline) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished.IsZero() {
		p.finished = time.Now()
		p.session.markClosed()
		counters := p.session.Counters()
		p.logger.Info("recording finished",
			logging.String("stop_reason", p.session.StopReason()),
			logging.Uint64("saved", counters.Saved),
			logging.Uint64("skipped", counters.Skipped),
			logging.Uint64("dropped", counters.Dropped),
			logging.Duration("elapsed", p.finished.Sub(p.session.StartedAt())),
			logging.String(logging.FieldEventType, "session_finished"),
		)
	}
	return errors.Join(p.errs...)
}

// Run starts the pipeline and waits for it.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	return p.Wait()
}

// Stop requests a stop and waits for the pipeline to close.
func (p *Pipeline) Stop() error {
	p.session.RequestStop(StopOperator)
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil
	}
	return p.Wait()
}

func (p *Pipeline) Session() *Session { return p.session }

func (p *Pipeline) Pause() { p.session.Pause() }

func (p *Pipeline) Resume() { p.session.Resume() }

func (p *Pipeline) RequestStop(reason string) { p.session.RequestStop(reason) }

func (p *Pipeline) Settings() Settings { return p.session.Settings() }

// Status returns a snapshot of the session state and queue depths.
func (p *Pipeline) Status() Status {
	status := Status{
		SessionID:    p.session.ID(),
		Phase:        p.session.Phase(),
		Paused:       p.session.Paused(),
		StopReason:   p.session.StopReason(),
		Counters:     p.session.Counters(),
		Similarity:   p.session.Similarity(),
		CaptureQueue: p.captureQ.Len(),
		EncodeQueue:  p.encodeQ.Len(),
	}
	if started := p.session.StartedAt(); !started.IsZero() {
		p.mu.Lock()
		end := p.finished
		p.mu.Unlock()
		if end.IsZero() {
			end = time.Now()
		}
		status.Elapsed = end.Sub(started)
	}
	return status
}
