package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skmotion/internal/config"
	"skmotion/internal/media"
	"skmotion/internal/preflight"
	"skmotion/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	source     *testsupport.FakeSource
	grabber    *testsupport.FakeGrabber
	encoder    *testsupport.FakeEncoder
	muxer      *testsupport.FakeMuxer
	preflight  []preflight.Result
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithRecording(func(r *config.Recording) {
		r.FPS = 200
		r.Resilience = 0
	}))
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("SKMOTION_OUTPUT", "")
	if err := os.MkdirAll(filepath.Dir(cfg.Recording.Output), 0o755); err != nil {
		t.Fatalf("mkdir output dir: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "skmotion", "config.toml")
	writeTestConfig(t, configPath, cfg)

	grabber := &testsupport.FakeGrabber{
		W: 8,
		H: 4,
		Frames: []media.RawFrame{
			testsupport.SolidFrame(8, 4, 10, 10, 10),
			testsupport.SolidFrame(8, 4, 200, 200, 200),
		},
		FailAfter: 5,
		Err:       fmt.Errorf("fake display closed"),
	}
	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		source:     &testsupport.FakeSource{List: []media.DisplayInfo{{Index: 0, Width: 8, Height: 4}}, Grabber: grabber},
		grabber:    grabber,
		encoder:    &testsupport.FakeEncoder{},
		muxer:      &testsupport.FakeMuxer{},
	}
}

func (e *cliTestEnv) deps() commandDeps {
	return commandDeps{
		Source: e.source,
		Media: func(media.EncoderConfig, string) (media.Encoder, media.Muxer, error) {
			return e.encoder, e.muxer, nil
		},
		Preflight: func(context.Context, *config.Config) []preflight.Result { return e.preflight },
		Encoders:  func(c media.Codec) bool { return c != media.CodecH264 },
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRoot(env.deps())
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[recording]
display = %d
fps = %d
resilience = %d
output = %q
overwrite = %q

[paths]
state_dir = %q
log_dir = %q

[workflow]
idle_backoff_ms = %d
paused_backoff_ms = %d

[control]
stdin = false
socket = %q

[monitor]
hotplug = false

[logging]
level = "error"

[preflight]
min_free_mib = 0
`,
		cfg.Recording.Display,
		cfg.Recording.FPS,
		cfg.Recording.Resilience,
		cfg.Recording.Output,
		cfg.Recording.Overwrite,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Workflow.IdleBackoffMS,
		cfg.Workflow.PausedBackoffMS,
		cfg.Control.Socket,
	)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
