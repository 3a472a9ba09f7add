package testsupport

import (
	"path/filepath"
	"testing"

	"skmotion/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Output lands in the temp dir, overwrite is always allowed, and the stdin
// control surface and hotplug monitor are disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Recording.Output = filepath.Join(base, "out", "capture.webm")
	cfgVal.Recording.Overwrite = config.OverwriteAlways
	cfgVal.Recording.Display = 0
	cfgVal.Control.Stdin = false
	cfgVal.Control.Socket = filepath.Join(base, "state", "skmotion.sock")
	cfgVal.Monitor.Hotplug = false
	cfgVal.Preflight.MinFreeMiB = 0
	cfgVal.Workflow.IdleBackoffMS = 2
	cfgVal.Workflow.PausedBackoffMS = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOutput overrides the destination path relative to the temp dir.
func WithOutput(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Recording.Output = filepath.Join(b.baseDir, "out", name)
	}
}

// WithRecording applies arbitrary recording overrides.
func WithRecording(fn func(*config.Recording)) ConfigOption {
	return func(b *configBuilder) {
		fn(&b.cfg.Recording)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
