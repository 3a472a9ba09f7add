package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"skmotion/internal/control"
	"skmotion/internal/ipc"
	"skmotion/internal/logging"
	"skmotion/internal/media"
	"skmotion/internal/pipeline"
)

type ctlTarget struct {
	mu     sync.Mutex
	paused bool
	reason string
}

func (c *ctlTarget) Pause()  { c.mu.Lock(); c.paused = true; c.mu.Unlock() }
func (c *ctlTarget) Resume() { c.mu.Lock(); c.paused = false; c.mu.Unlock() }
func (c *ctlTarget) RequestStop(reason string) {
	c.mu.Lock()
	c.reason = reason
	c.mu.Unlock()
}
func (c *ctlTarget) Status() pipeline.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pipeline.Status{
		SessionID:  "abc",
		Phase:      pipeline.PhaseRunning,
		Paused:     c.paused,
		Counters:   pipeline.Counters{Captured: 12, Saved: 7, Skipped: 5},
		Similarity: 0.5,
	}
}
func (c *ctlTarget) Settings() pipeline.Settings {
	return pipeline.Settings{FPS: 30, Codec: media.CodecVP9, Destination: "/tmp/out.webm"}
}

func startCtlServer(t *testing.T) (string, *ctlTarget) {
	t.Helper()
	dir, err := os.MkdirTemp("", "skm")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "ctl.sock")

	target := &ctlTarget{}
	dispatcher := control.NewDispatcher(target, nil, logging.NewNop())
	srv, err := ipc.NewServer(context.Background(), socket, dispatcher, target, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return socket, target
}

func TestCtlSendsCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	socket, target := startCtlServer(t)

	out, _, err := runCLI(t, env, "--socket", socket, "ctl", "saved")
	if err != nil {
		t.Fatalf("ctl saved: %v", err)
	}
	requireContains(t, out, "Saved frames: 7")

	if _, _, err := runCLI(t, env, "--socket", socket, "ctl", "pause"); err != nil {
		t.Fatalf("ctl pause: %v", err)
	}
	target.mu.Lock()
	paused := target.paused
	target.mu.Unlock()
	if !paused {
		t.Fatal("expected target paused")
	}

	if _, _, err := runCLI(t, env, "--socket", socket, "ctl", "stop"); err != nil {
		t.Fatalf("ctl stop: %v", err)
	}
	target.mu.Lock()
	reason := target.reason
	target.mu.Unlock()
	if reason != pipeline.StopOperator {
		t.Fatalf("stop reason = %q", reason)
	}
}

func TestCtlStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	socket, _ := startCtlServer(t)

	out, _, err := runCLI(t, env, "--socket", socket, "ctl", "--json", "status")
	if err != nil {
		t.Fatalf("ctl status: %v", err)
	}
	var status ipc.StatusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if status.SessionID != "abc" || status.Saved != 7 || status.Phase != "running" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestCtlWithoutRecording(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "none.sock")
	_, _, err := runCLI(t, env, "--socket", missing, "ctl", "status")
	if err == nil {
		t.Fatal("expected dial error")
	}
	requireContains(t, err.Error(), "is a recording running?")
}
