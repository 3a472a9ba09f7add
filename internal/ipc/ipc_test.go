package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"skmotion/internal/control"
	"skmotion/internal/ipc"
	"skmotion/internal/logging"
	"skmotion/internal/pipeline"
)

type fakeSession struct {
	mu      sync.Mutex
	paused  bool
	stopped bool
}

func (f *fakeSession) Pause()             { f.mu.Lock(); f.paused = true; f.mu.Unlock() }
func (f *fakeSession) Resume()            { f.mu.Lock(); f.paused = false; f.mu.Unlock() }
func (f *fakeSession) RequestStop(string) { f.mu.Lock(); f.stopped = true; f.mu.Unlock() }
func (f *fakeSession) Settings() pipeline.Settings {
	return pipeline.Settings{Destination: "/videos/desk.webm", FPS: 30}
}
func (f *fakeSession) Status() pipeline.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pipeline.Status{
		SessionID: "s-1",
		Phase:     pipeline.PhaseRunning,
		Paused:    f.paused,
		Counters:  pipeline.Counters{Captured: 10, Saved: 4, Skipped: 6},
	}
}

func socketPath(t *testing.T) string {
	t.Helper()
	// Unix socket paths are length limited; t.TempDir can exceed it.
	dir, err := os.MkdirTemp("", "skm")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "skmotion.sock")
}

func TestIPCServerClient(t *testing.T) {
	session := &fakeSession{}
	dispatcher := control.NewDispatcher(session, nil, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := socketPath(t)
	srv, err := ipc.NewServer(ctx, socket, dispatcher, session, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	resp, err := client.Command("pause")
	if err != nil {
		t.Fatalf("Command RPC failed: %v", err)
	}
	if resp.Command != "pause" {
		t.Fatalf("unexpected response %+v", resp)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Paused || status.Phase != "running" || status.Saved != 4 || status.Destination != "/videos/desk.webm" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d", status.PID)
	}

	resp, err = client.Command("stop")
	if err != nil {
		t.Fatalf("stop RPC failed: %v", err)
	}
	if !resp.Stop {
		t.Fatalf("expected stop reply, got %+v", resp)
	}

	if _, err := client.Command("   "); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestServerCloseRemovesSocket(t *testing.T) {
	session := &fakeSession{}
	socket := socketPath(t)
	if err := os.WriteFile(socket, []byte("stale"), 0o600); err != nil {
		t.Fatalf("write stale socket: %v", err)
	}
	srv, err := ipc.NewServer(context.Background(), socket, control.NewDispatcher(session, nil, nil), session, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	srv.Close()
	srv.Close()
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("socket should be removed, stat err=%v", err)
	}
}
