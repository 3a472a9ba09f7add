package control_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"skmotion/internal/control"
	"skmotion/internal/media"
	"skmotion/internal/pipeline"
)

type fakeTarget struct {
	mu         sync.Mutex
	paused     bool
	stopReason string
	status     pipeline.Status
}

func (f *fakeTarget) Pause()  { f.mu.Lock(); f.paused = true; f.mu.Unlock() }
func (f *fakeTarget) Resume() { f.mu.Lock(); f.paused = false; f.mu.Unlock() }
func (f *fakeTarget) RequestStop(reason string) {
	f.mu.Lock()
	f.stopReason = reason
	f.mu.Unlock()
}
func (f *fakeTarget) Status() pipeline.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.status
	st.Paused = f.paused
	return st
}
func (f *fakeTarget) Settings() pipeline.Settings {
	return pipeline.Settings{Display: 1, FPS: 30, Bitrate: 5000, Codec: media.CodecVP9, Sensitivity: 0.001, Resilience: 5, Destination: "/tmp/out.webm", Timestamps: pipeline.TimestampsSynthetic}
}

func (f *fakeTarget) isPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeTarget) reason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopReason
}

type fakeUsage struct{ err error }

func (f fakeUsage) Sample() (control.Usage, error) {
	return control.Usage{CPUPercent: 12.5, RSS: 3 << 20}, f.err
}

func newTarget() *fakeTarget {
	return &fakeTarget{status: pipeline.Status{
		SessionID:  "abc",
		Phase:      pipeline.PhaseRunning,
		Counters:   pipeline.Counters{Captured: 2000, Saved: 1234, Skipped: 766},
		Similarity: 0.99875,
		Elapsed:    90 * time.Second,
	}}
}

func TestDispatcherCommands(t *testing.T) {
	target := newTarget()
	d := control.NewDispatcher(target, fakeUsage{}, nil)

	tests := []struct {
		line    string
		command string
		want    string
	}{
		{"saved", "saved", "Saved frames: 1,234"},
		{"  SKIPPED ", "skipped", "Skipped frames: 766"},
		{"similarity", "similarity", "Similarity: 99.8750%"},
		{"config", "config", "Bitrate:      5,000 kbit/s"},
		{"status", "status", "Captured:     2,000"},
		{"status", "status", "Memory:       3.0 MiB"},
		{"help", "help", "similarity"},
		{"bogus", "", `Unknown command "bogus"`},
	}
	for _, tc := range tests {
		reply := d.Execute(tc.line)
		if reply.Command != tc.command {
			t.Fatalf("%q: command = %q, want %q", tc.line, reply.Command, tc.command)
		}
		if !strings.Contains(reply.Text, tc.want) {
			t.Fatalf("%q: reply %q does not contain %q", tc.line, reply.Text, tc.want)
		}
	}
}

func TestDispatcherPauseResumeStop(t *testing.T) {
	target := newTarget()
	d := control.NewDispatcher(target, nil, nil)

	d.Execute("pause")
	if !target.isPaused() {
		t.Fatal("expected paused")
	}
	if reply := d.Execute("status"); !strings.Contains(reply.Text, "running (paused)") {
		t.Fatalf("status should show paused: %q", reply.Text)
	}
	if reply := d.Execute("resume"); reply.Command != "continue" || target.isPaused() {
		t.Fatalf("resume alias failed: %+v", reply)
	}
	reply := d.Execute("stop")
	if !reply.Stop || target.reason() != pipeline.StopOperator {
		t.Fatalf("stop not requested: %+v reason=%q", reply, target.reason())
	}
}

func TestDispatcherBlankLine(t *testing.T) {
	d := control.NewDispatcher(newTarget(), nil, nil)
	if reply := d.Execute("   "); reply.Text != "" || reply.Command != "" {
		t.Fatalf("expected empty reply, got %+v", reply)
	}
}

func TestStatusOmitsUsageOnError(t *testing.T) {
	d := control.NewDispatcher(newTarget(), fakeUsage{err: errors.New("no proc")}, nil)
	if reply := d.Execute("status"); strings.Contains(reply.Text, "CPU") {
		t.Fatalf("usage should be omitted: %q", reply.Text)
	}
}

func TestSurfaceRunsUntilStop(t *testing.T) {
	target := newTarget()
	var out bytes.Buffer
	surface := control.NewSurface(strings.NewReader("saved\npause\nstop\nsaved\n"), &out, control.NewDispatcher(target, nil, nil), nil)

	if err := surface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Saved frames: 1,234") || !strings.Contains(text, "Stopping") {
		t.Fatalf("unexpected output %q", text)
	}
	if strings.Count(text, "Saved frames") != 1 {
		t.Fatalf("commands after stop must not run: %q", text)
	}
	if !target.isPaused() || target.reason() == "" {
		t.Fatal("pause and stop should have been applied")
	}
}

func TestSurfaceReturnsOnEOF(t *testing.T) {
	var out bytes.Buffer
	surface := control.NewSurface(strings.NewReader("help\n"), &out, control.NewDispatcher(newTarget(), nil, nil), nil)
	if err := surface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Commands:") {
		t.Fatalf("help not printed: %q", out.String())
	}
}

func TestSurfaceReturnsOnCancel(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	var out bytes.Buffer
	surface := control.NewSurface(reader, &out, control.NewDispatcher(newTarget(), nil, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- surface.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
