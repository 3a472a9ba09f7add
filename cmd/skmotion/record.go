package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"skmotion/internal/config"
	"skmotion/internal/control"
	"skmotion/internal/destination"
	"skmotion/internal/logging"
	"skmotion/internal/media/ffmpeg"
	"skmotion/internal/recorder"
)

type recordFlags struct {
	display     int
	extent      int
	sensitivity float64
	resilience  int
	fps         int
	bitrate     int
	output      string
	codec       string
	overwrite   string
	timestamps  string
	queue       string
	list        bool
}

func (f *recordFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&f.display, "display", "s", -1, "Index of the display to record (asks when several exist)")
	fs.IntVarP(&f.extent, "extent", "e", 0, "Stop after this many seconds (0 records until stopped)")
	fs.Float64VarP(&f.sensitivity, "sensitivity", "n", 0, "Fraction (0.0-1.0) of frame bytes that may differ before a frame counts as changed")
	fs.IntVarP(&f.resilience, "resilience", "r", 0, "Similar frames still kept after a change")
	fs.IntVarP(&f.fps, "fps", "f", 0, "Capture rate in frames per second")
	fs.IntVarP(&f.bitrate, "bitrate", "b", 0, "Target bitrate in kbit/s")
	fs.StringVarP(&f.output, "output", "o", "", "Destination file (.webm, .mkv or .mp4)")
	fs.StringVar(&f.codec, "codec", "", "Video codec: vp8, vp9 or h264")
	fs.StringVar(&f.overwrite, "overwrite", "", "Existing destination policy: prompt, fail or always")
	fs.StringVar(&f.timestamps, "timestamps", "", "Frame timestamps: synthetic or wallclock")
	fs.StringVar(&f.queue, "queue", "", "Stage queue discipline: fifo or lifo")
	fs.BoolVarP(&f.list, "displays", "d", false, "List connected displays and exit")
}

// apply copies every flag the operator set onto a copy of cfg.
func (f *recordFlags) apply(cmd *cobra.Command, args []string, base *config.Config) (*config.Config, error) {
	cfg := *base
	changed := cmd.Flags().Changed
	r := &cfg.Recording
	if changed("display") {
		r.Display = f.display
	}
	if changed("extent") {
		r.ExtentSeconds = f.extent
	}
	if changed("sensitivity") {
		r.Sensitivity = f.sensitivity
	}
	if changed("resilience") {
		r.Resilience = f.resilience
	}
	if changed("fps") {
		r.FPS = f.fps
	}
	if changed("bitrate") {
		r.Bitrate = f.bitrate
	}
	if changed("codec") {
		r.Codec = strings.ToLower(strings.TrimSpace(f.codec))
	}
	if changed("overwrite") {
		r.Overwrite = strings.ToLower(strings.TrimSpace(f.overwrite))
	}
	if changed("timestamps") {
		r.Timestamps = strings.ToLower(strings.TrimSpace(f.timestamps))
	}
	if changed("queue") {
		r.QueueDiscipline = strings.ToLower(strings.TrimSpace(f.queue))
	}

	output := f.output
	if len(args) > 0 {
		if changed("output") {
			return nil, errors.New("pass the destination either as an argument or with --output, not both")
		}
		output = args[0]
	}
	if output = strings.TrimSpace(output); output != "" {
		expanded, err := config.ExpandPath(output)
		if err != nil {
			return nil, fmt.Errorf("resolve output path: %w", err)
		}
		r.Output = expanded
	}
	return &cfg, nil
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	flags := &recordFlags{}
	cmd := &cobra.Command{
		Use:   "record [OUTPUT]",
		Short: "Record a display, keeping only frames with motion",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, args, ctx, flags)
		},
	}
	flags.bind(cmd)
	return cmd
}

func runRecord(cmd *cobra.Command, args []string, ctx *commandContext, flags *recordFlags) error {
	if flags.list {
		return listDisplays(cmd, ctx)
	}
	base, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := flags.apply(cmd, args, base)
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ffmpeg.RouteLogs(logger)

	// The prompts and the control surface share one buffer so input typed
	// ahead of a prompt reaches the surface.
	stdin := bufio.NewReader(cmd.InOrStdin())
	opts := recorder.Options{
		Config:    cfg,
		Logger:    logger,
		Source:    ctx.deps.Source,
		Media:     ctx.deps.Media,
		Preflight: ctx.deps.Preflight,
		Probe:     recorder.ProbeWithFFprobe,
		In:        stdin,
		Out:       cmd.OutOrStdout(),
	}
	if destination.IsTerminal(os.Stdin) {
		opts.Prompter = destination.NewLinePrompter(stdin, cmd.OutOrStdout())
		opts.Chooser = recorder.NewLineChooser(stdin, cmd.OutOrStdout())
	}
	if usage, err := control.NewProcessUsage(); err == nil {
		opts.Usage = usage
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()
	summary, err := recorder.Run(signalCtx, opts)
	switch {
	case errors.Is(err, recorder.ErrNoDisplays):
		fmt.Fprintln(out, "No displays found.")
		return nil
	case errors.Is(err, destination.ErrDeclined):
		fmt.Fprintln(out, "Recording cancelled; the existing file was kept.")
		return nil
	}
	if summary != nil {
		printSummary(out, summary)
	}
	return err
}

func printSummary(out io.Writer, s *recorder.Summary) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Session: %s (%s)\n", s.SessionID, s.Status)
	fmt.Fprintf(out, "Saved frames: %d\n", s.Counters.Saved)
	fmt.Fprintf(out, "Skipped frames: %d\n", s.Counters.Skipped)
	if s.Counters.Dropped > 0 {
		fmt.Fprintf(out, "Dropped frames: %d\n", s.Counters.Dropped)
	}
	fmt.Fprintf(out, "Elapsed: %s\n", s.Elapsed.Round(100 * time.Millisecond))
	fmt.Fprintf(out, "File: %s (%s)\n", s.Destination, humanize.IBytes(uint64(s.FileSize)))
	if p := s.Probe; p != nil {
		fmt.Fprintf(out, "Video: %s %dx%d, %s playback\n", p.Codec, p.Width, p.Height, p.Duration.Round(100 * time.Millisecond))
	}
	if s.Warning != nil {
		fmt.Fprintf(out, "Warning: %v\n", s.Warning)
	}
}
