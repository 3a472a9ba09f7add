package pipeline

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"skmotion/internal/config"
	"skmotion/internal/media"
)

// Timestamp modes.
const (
	TimestampsSynthetic = config.TimestampsSynthetic
	TimestampsWallclock = config.TimestampsWallclock
)

// Stop reasons recorded on the session.
const (
	StopOperator      = "operator"
	StopExtent        = "extent"
	StopSignal        = "signal"
	StopHotplug       = "hotplug"
	StopCaptureFailed = "capture_failed"
	StopEncodeFailed  = "encode_failed"
)

// Settings are the immutable parameters of one recording session.
type Settings struct {
	Display             int
	FPS                 int
	Sensitivity         float64
	Resilience          int
	Bitrate             int
	Extent              time.Duration
	Destination         string
	Codec               media.Codec
	Timestamps          string
	TimestampMultiplier int
	Discipline          Discipline
	IdleBackoff         time.Duration
	PausedBackoff       time.Duration
}

// SettingsFromConfig derives session settings from the recording config.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	if cfg == nil {
		return Settings{}, errors.New("config is nil")
	}
	codec, err := media.ParseCodec(cfg.Recording.Codec)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Display:             cfg.Recording.Display,
		FPS:                 cfg.Recording.FPS,
		Sensitivity:         cfg.Recording.Sensitivity,
		Resilience:          cfg.Recording.Resilience,
		Bitrate:             cfg.Recording.Bitrate,
		Extent:              cfg.Extent(),
		Destination:         cfg.Recording.Output,
		Codec:               codec,
		Timestamps:          cfg.Recording.Timestamps,
		TimestampMultiplier: cfg.Recording.TimestampMultiplier,
		Discipline:          ParseDiscipline(cfg.Recording.QueueDiscipline),
		IdleBackoff:         cfg.IdleBackoff(),
		PausedBackoff:       cfg.PausedBackoff(),
	}, nil
}

// Validate checks the invariants the stages rely on.
func (s Settings) Validate() error {
	switch {
	case s.FPS <= 0:
		return fmt.Errorf("fps must be positive, got %d", s.FPS)
	case math.IsNaN(s.Sensitivity) || s.Sensitivity < 0 || s.Sensitivity > 1:
		return fmt.Errorf("sensitivity must be within [0,1], got %v", s.Sensitivity)
	case s.Resilience < 0:
		return fmt.Errorf("resilience must be non-negative, got %d", s.Resilience)
	case s.Extent < 0:
		return fmt.Errorf("extent must be non-negative, got %s", s.Extent)
	}
	return nil
}

// Interval is the capture cadence.
func (s Settings) Interval() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Duration(int64(time.Second) / int64(s.FPS))
}

func (s Settings) multiplier() int64 {
	if s.TimestampMultiplier <= 0 {
		return 1
	}
	return int64(s.TimestampMultiplier)
}

func (s Settings) idleBackoff() time.Duration {
	if s.IdleBackoff <= 0 {
		return 20 * time.Millisecond
	}
	return s.IdleBackoff
}

func (s Settings) pausedBackoff() time.Duration {
	if s.PausedBackoff <= 0 {
		return 50 * time.Millisecond
	}
	return s.PausedBackoff
}

// Phase is the session lifecycle position.
type Phase int32

const (
	PhaseCreated Phase = iota
	PhaseRunning
	PhaseDraining
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Session is the state shared by every stage of one recording.
type Session struct {
	id       string
	settings Settings

	paused  atomic.Bool
	stopped atomic.Bool
	phase   atomic.Int32

	captured atomic.Uint64
	accepted atomic.Uint64
	saved    atomic.Uint64
	skipped  atomic.Uint64
	dropped  atomic.Uint64
	simBits  atomic.Uint64

	startedAt atomic.Int64

	stopOnce   sync.Once
	stopReason atomic.Value
	done       chan struct{}
}

// NewSession constructs a session in the created phase.
func NewSession(id string, settings Settings) *Session {
	s := &Session{id: id, settings: settings, done: make(chan struct{})}
	s.simBits.Store(math.Float64bits(1))
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Settings() Settings { return s.settings }

// Pause suspends capture, filtering and encoding until Resume.
func (s *Session) Pause() { s.paused.Store(true) }

func (s *Session) Resume() { s.paused.Store(false) }

func (s *Session) Paused() bool { return s.paused.Load() }

// RequestStop asks every stage to finish. The first reason wins; later calls
// are no-ops.
func (s *Session) RequestStop(reason string) {
	s.stopOnce.Do(func() {
		s.stopReason.Store(reason)
		s.stopped.Store(true)
		s.phase.CompareAndSwap(int32(PhaseRunning), int32(PhaseDraining))
		close(s.done)
	})
}

func (s *Session) StopRequested() bool { return s.stopped.Load() }

// StopReason returns the reason passed to the first RequestStop call.
func (s *Session) StopReason() string {
	if reason, ok := s.stopReason.Load().(string); ok {
		return reason
	}
	return ""
}

// Done is closed once stop has been requested.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Phase() Phase { return Phase(s.phase.Load()) }

func (s *Session) markRunning(now time.Time) bool {
	if !s.phase.CompareAndSwap(int32(PhaseCreated), int32(PhaseRunning)) {
		return false
	}
	s.startedAt.Store(now.UnixNano())
	if s.stopped.Load() {
		s.phase.CompareAndSwap(int32(PhaseRunning), int32(PhaseDraining))
	}
	return true
}

func (s *Session) markClosed() { s.phase.Store(int32(PhaseClosed)) }

// StartedAt is the instant the session entered the running phase.
func (s *Session) StartedAt() time.Time {
	ns := s.startedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Similarity is the score of the most recently evaluated frame against the
// retained reference; 1 means identical.
func (s *Session) Similarity() float64 { return math.Float64frombits(s.simBits.Load()) }

func (s *Session) setSimilarity(v float64) { s.simBits.Store(math.Float64bits(v)) }

// Counters is a point-in-time copy of the session counters.
type Counters struct {
	Captured uint64
	Accepted uint64
	Saved    uint64
	Skipped  uint64
	Dropped  uint64
}

// Evaluated is the number of frames the filter stage has ruled on, once the
// session has closed.
func (c Counters) Evaluated() uint64 {
	return c.Saved + c.Skipped + c.Dropped
}

func (s *Session) Counters() Counters {
	return Counters{
		Captured: s.captured.Load(),
		Accepted: s.accepted.Load(),
		Saved:    s.saved.Load(),
		Skipped:  s.skipped.Load(),
		Dropped:  s.dropped.Load(),
	}
}

// Sleep waits for d or until stop is requested. It reports false when woken by
// stop.
func (s *Session) Sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.StopRequested()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.done:
		return false
	case <-timer.C:
		return true
	}
}
