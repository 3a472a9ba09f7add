package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"skmotion/internal/capture"
	"skmotion/internal/config"
	"skmotion/internal/control"
	"skmotion/internal/destination"
	"skmotion/internal/history"
	"skmotion/internal/hotplug"
	"skmotion/internal/ipc"
	"skmotion/internal/logging"
	"skmotion/internal/media"
	"skmotion/internal/pipeline"
	"skmotion/internal/preflight"
)

// ErrNoDisplays is returned when there is nothing to record. Callers report it
// and exit successfully.
var ErrNoDisplays = capture.ErrNoDisplays

// MediaFactory opens the encoder and muxer for a destination.
type MediaFactory func(cfg media.EncoderConfig, path string) (media.Encoder, media.Muxer, error)

// Prober inspects the finalized file.
type Prober func(ctx context.Context, path string, settings pipeline.Settings) (*Probe, error)

// Options wires one recording session. Only Config is required.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	Source media.Source
	Media  MediaFactory
	// Probe verifies the finished file; nil skips verification.
	Probe Prober
	// Preflight defaults to preflight.RunAll.
	Preflight func(ctx context.Context, cfg *config.Config) []preflight.Result

	// In and Out carry operator commands and replies. Defaults: stdin/stdout.
	In  io.Reader
	Out io.Writer

	// Prompter confirms overwrites under the prompt policy.
	Prompter destination.Prompter
	// Chooser picks a display when several exist and none is configured.
	Chooser Chooser
	// Usage samples process CPU and memory for status replies.
	Usage control.UsageSampler
}

// Summary describes a finished session.
type Summary struct {
	SessionID   string
	Display     int
	Destination string
	Status      history.Status
	StopReason  string
	Counters    pipeline.Counters
	Elapsed     time.Duration
	FileSize    int64
	Probe       *Probe
	// Warning carries a non-fatal failure, such as the grabber failing after
	// the file was finalized.
	Warning error
}

// Run records one session and blocks until it is closed. Cancelling ctx stops
// the session gracefully; the container is still finalized.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("recorder requires a config")
	}
	if err := cfg.ValidateForRecording(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	opts = withDefaults(opts)
	logger := logging.NewComponentLogger(opts.Logger, "recorder")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create state directories: %w", err)
	}
	if err := preflight.Failed(opts.Preflight(ctx, cfg)); err != nil {
		return nil, err
	}

	displays, err := opts.Source.Displays()
	if err != nil {
		return nil, fmt.Errorf("list displays: %w", err)
	}
	if len(displays) == 0 {
		return nil, ErrNoDisplays
	}
	display, err := selectDisplay(displays, cfg.Recording.Display, opts.Chooser)
	if err != nil {
		return nil, err
	}

	lease, err := destination.Acquire(destination.Options{
		Path:     cfg.Recording.Output,
		Policy:   cfg.Recording.Overwrite,
		Prompter: opts.Prompter,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(); err != nil {
			logger.Debug("release destination lock", logging.Error(err))
		}
	}()

	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	if n, err := store.ReconcileStale(ctx); err != nil {
		logger.Debug("reconcile stale sessions", logging.Error(err))
	} else if n > 0 {
		logger.Info("marked stale sessions interrupted", logging.Int64("count", n))
	}

	settings, err := pipeline.SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	settings.Display = display.Index
	settings.Destination = lease.Path

	grabber, err := opts.Source.Open(display.Index)
	if err != nil {
		return nil, fmt.Errorf("open display %d: %w", display.Index, err)
	}
	defer grabber.Close()

	encoder, muxer, err := opts.Media(media.EncoderConfig{
		Width:   grabber.Width(),
		Height:  grabber.Height(),
		FPS:     settings.FPS,
		Bitrate: settings.Bitrate,
		Codec:   settings.Codec,
	}, lease.Path)
	if err != nil {
		return nil, fmt.Errorf("open encoder: %w", err)
	}
	defer encoder.Close()

	id := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldSessionID, id))

	// Begin precedes pipeline.New, which writes the container header.
	if _, err := store.Begin(ctx, history.Session{
		ID:          id,
		Display:     display.Index,
		Destination: lease.Path,
		Codec:       string(settings.Codec),
		FPS:         settings.FPS,
		Sensitivity: settings.Sensitivity,
		Resilience:  settings.Resilience,
	}); err != nil {
		return nil, fmt.Errorf("record session start: %w", err)
	}
	abort := func(err error) (*Summary, error) {
		finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ferr := store.Finish(finishCtx, id, history.Outcome{Status: history.StatusFailed, Err: err}); ferr != nil {
			logger.Debug("record aborted session", logging.Error(ferr))
		}
		return nil, err
	}

	session := pipeline.NewSession(id, settings)
	p, err := pipeline.New(pipeline.Options{
		Session: session,
		Grabber: grabber,
		Encoder: encoder,
		Muxer:   muxer,
		Logger:  opts.Logger,
	})
	if err != nil {
		_ = muxer.Finalize()
		return abort(err)
	}

	dispatcher := control.NewDispatcher(p, opts.Usage, opts.Logger)
	if cfg.Control.Stdin {
		if err := p.Attach(control.NewSurface(opts.In, opts.Out, dispatcher, opts.Logger)); err != nil {
			_ = muxer.Finalize()
			return abort(err)
		}
	}
	if socket := cfg.SocketPath(); socket != "" {
		server, err := ipc.NewServer(context.Background(), socket, dispatcher, p, opts.Logger)
		if err != nil {
			logging.WarnWithContext(logger, "control socket unavailable", "ipc_start_failed",
				logging.Error(err),
				logging.String("socket", socket),
				logging.String(logging.FieldImpact, "skmotion ctl cannot reach this session"),
			)
		} else if err := p.Attach(server); err != nil {
			server.Close()
			_ = muxer.Finalize()
			return abort(err)
		}
	}
	monitor := hotplug.NewMonitor(cfg, opts.Logger, func(e hotplug.Event) {
		if !cfg.Monitor.StopOnHotplug {
			return
		}
		logger.Info("stopping after display change",
			logging.String("device", e.Device),
			logging.String(logging.FieldEventType, "hotplug_stop"),
		)
		session.RequestStop(pipeline.StopHotplug)
	})
	if monitor != nil {
		if err := p.Attach(monitor); err != nil {
			_ = muxer.Finalize()
			return abort(err)
		}
	}

	runErr := p.Run(ctx)

	status := p.Status()
	summary := &Summary{
		SessionID:   id,
		Display:     display.Index,
		Destination: lease.Path,
		StopReason:  status.StopReason,
		Counters:    status.Counters,
		Elapsed:     status.Elapsed,
		Status:      history.StatusCompleted,
	}
	switch {
	case runErr == nil:
	case onlyCaptureFailures(runErr):
		summary.Status = history.StatusInterrupted
		summary.Warning = runErr
		runErr = nil
	default:
		summary.Status = history.StatusFailed
	}
	if size, err := lease.Size(); err == nil {
		summary.FileSize = size
	}

	outcome := history.Outcome{
		Status:     summary.Status,
		StopReason: summary.StopReason,
		Captured:   summary.Counters.Captured,
		Saved:      summary.Counters.Saved,
		Skipped:    summary.Counters.Skipped,
		Dropped:    summary.Counters.Dropped,
		FileSize:   summary.FileSize,
		Err:        errors.Join(runErr, summary.Warning),
	}
	// The caller's context is usually cancelled by now.
	finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Finish(finishCtx, id, outcome); err != nil {
		logging.WarnWithContext(logger, "failed to record session outcome", "history_finish_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "skmotion history shows the session as running"),
		)
	}

	if runErr != nil {
		return summary, runErr
	}
	if opts.Probe != nil && summary.Counters.Saved > 0 {
		probe, err := opts.Probe(finishCtx, lease.Path, settings)
		if err != nil {
			logging.WarnWithContext(logger, "recording verification failed", "probe_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the file with ffprobe"),
			)
		}
		summary.Probe = probe
	}
	return summary, nil
}

func withDefaults(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Source == nil {
		opts.Source = capture.NewScreenSource()
	}
	if opts.Media == nil {
		opts.Media = OpenMedia
	}
	if opts.Preflight == nil {
		opts.Preflight = preflight.RunAll
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return opts
}

// onlyCaptureFailures reports whether every joined error is a grabber
// failure. Such sessions still produced a valid file.
func onlyCaptureFailures(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !onlyCaptureFailures(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, pipeline.ErrCaptureFailed)
}
