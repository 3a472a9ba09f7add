package control

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"skmotion/internal/logging"
	"skmotion/internal/pipeline"
)

// Target is the session the dispatcher drives.
type Target interface {
	Pause()
	Resume()
	RequestStop(reason string)
	Status() pipeline.Status
	Settings() pipeline.Settings
}

// Reply is the outcome of one command.
type Reply struct {
	Command string
	Text    string
	// Stop is set when the command asked the session to finish.
	Stop bool
}

// Commands lists the accepted command names in help order.
var Commands = []struct {
	Name    string
	Summary string
}{
	{"pause", "suspend capturing, filtering and encoding"},
	{"continue", "resume after pause (alias: resume)"},
	{"stop", "finish the recording and finalize the file"},
	{"saved", "print the number of frames written"},
	{"skipped", "print the number of frames discarded"},
	{"similarity", "print the last similarity score"},
	{"config", "print the session settings"},
	{"status", "print phase, counters, queues and resource usage"},
	{"help", "print this list"},
}

// Dispatcher applies operator commands to a Target. It is safe for concurrent
// use.
type Dispatcher struct {
	target  Target
	usage   UsageSampler
	printer *message.Printer
	logger  *slog.Logger
}

// NewDispatcher constructs a dispatcher. A nil usage sampler omits resource
// usage from status output.
func NewDispatcher(target Target, usage UsageSampler, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		target:  target,
		usage:   usage,
		printer: message.NewPrinter(language.English),
		logger:  logging.NewComponentLogger(logger, "control"),
	}
}

// Execute runs one command line. Blank lines produce an empty reply.
func (d *Dispatcher) Execute(line string) Reply {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Reply{}
	}
	cmd := fields[0]
	reply := Reply{Command: cmd}

	switch cmd {
	case "pause":
		d.target.Pause()
		reply.Text = "Recording paused. Type \"continue\" to resume."
	case "continue", "resume":
		reply.Command = "continue"
		d.target.Resume()
		reply.Text = "Recording resumed."
	case "stop":
		d.target.RequestStop(pipeline.StopOperator)
		reply.Stop = true
		reply.Text = "Stopping; queued frames are still being encoded."
	case "saved":
		reply.Text = d.printer.Sprintf("Saved frames: %d", d.target.Status().Counters.Saved)
	case "skipped":
		reply.Text = d.printer.Sprintf("Skipped frames: %d", d.target.Status().Counters.Skipped)
	case "similarity":
		reply.Text = fmt.Sprintf("Similarity: %.4f%%", d.target.Status().Similarity*100)
	case "config":
		reply.Text = d.describeSettings(d.target.Settings())
	case "status":
		reply.Text = d.describeStatus(d.target.Status())
	case "help":
		reply.Text = Help()
	default:
		reply.Command = ""
		reply.Text = fmt.Sprintf("Unknown command %q. Type \"help\" for the list of commands.", cmd)
	}

	if reply.Command != "" {
		d.logger.Debug("control command", logging.String("command", reply.Command))
	}
	return reply
}

// Help renders the command list.
func Help() string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range Commands {
		fmt.Fprintf(&b, "\n  %-11s %s", c.Name, c.Summary)
	}
	return b.String()
}

func (d *Dispatcher) describeSettings(s pipeline.Settings) string {
	extent := "until stopped"
	if s.Extent > 0 {
		extent = s.Extent.String()
	}
	lines := []string{
		fmt.Sprintf("Display:      %d", s.Display),
		fmt.Sprintf("Destination:  %s", s.Destination),
		fmt.Sprintf("Codec:        %s", s.Codec),
		d.printer.Sprintf("FPS:          %d", s.FPS),
		d.printer.Sprintf("Bitrate:      %d kbit/s", s.Bitrate),
		fmt.Sprintf("Sensitivity:  %g", s.Sensitivity),
		fmt.Sprintf("Resilience:   %d", s.Resilience),
		fmt.Sprintf("Extent:       %s", extent),
		fmt.Sprintf("Timestamps:   %s", s.Timestamps),
		fmt.Sprintf("Queue:        %s", s.Discipline),
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) describeStatus(st pipeline.Status) string {
	state := st.Phase.String()
	if st.Paused && st.Phase == pipeline.PhaseRunning {
		state += " (paused)"
	}
	lines := []string{
		fmt.Sprintf("Session:      %s", st.SessionID),
		fmt.Sprintf("State:        %s", state),
		fmt.Sprintf("Elapsed:      %s", st.Elapsed.Truncate(time.Second)),
		d.printer.Sprintf("Captured:     %d", st.Counters.Captured),
		d.printer.Sprintf("Saved:        %d", st.Counters.Saved),
		d.printer.Sprintf("Skipped:      %d", st.Counters.Skipped),
	}
	if st.Counters.Dropped > 0 {
		lines = append(lines, d.printer.Sprintf("Dropped:      %d", st.Counters.Dropped))
	}
	lines = append(lines,
		fmt.Sprintf("Similarity:   %.4f%%", st.Similarity*100),
		fmt.Sprintf("Queues:       capture %d, encode %d", st.CaptureQueue, st.EncodeQueue),
	)
	if d.usage != nil {
		if usage, err := d.usage.Sample(); err == nil {
			lines = append(lines,
				fmt.Sprintf("CPU:          %.1f%%", usage.CPUPercent),
				fmt.Sprintf("Memory:       %s", humanize.IBytes(usage.RSS)),
			)
		} else {
			d.logger.Debug("usage sample failed", logging.Error(err))
		}
	}
	return strings.Join(lines, "\n")
}
