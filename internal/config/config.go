package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Overwrite policies for an existing destination file.
const (
	OverwritePrompt = "prompt"
	OverwriteFail   = "fail"
	OverwriteAlways = "always"
)

// Timestamp modes for encoded frames.
const (
	TimestampsSynthetic = "synthetic"
	TimestampsWallclock = "wallclock"
)

// Queue disciplines for the stage hand-off queues.
const (
	QueueFIFO = "fifo"
	QueueLIFO = "lifo"
)

// Recording contains the per-session capture and encoding settings.
type Recording struct {
	// Display is the display index to record; negative means ask (or use the
	// only display).
	Display int `toml:"display"`
	// ExtentSeconds caps the session length; zero records until stopped.
	ExtentSeconds int     `toml:"extent_seconds"`
	Sensitivity   float64 `toml:"sensitivity"`
	Resilience    int     `toml:"resilience"`
	FPS           int     `toml:"fps"`
	// Bitrate is the target encoder bitrate in kbit/s.
	Bitrate             int    `toml:"bitrate"`
	Codec               string `toml:"codec"`
	Output              string `toml:"output"`
	Overwrite           string `toml:"overwrite"`
	Timestamps          string `toml:"timestamps"`
	TimestampMultiplier int    `toml:"timestamp_multiplier"`
	QueueDiscipline     string `toml:"queue_discipline"`
}

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Workflow contains pipeline timing knobs.
type Workflow struct {
	IdleBackoffMS   int `toml:"idle_backoff_ms"`
	PausedBackoffMS int `toml:"paused_backoff_ms"`
}

// Control configures the operator command channels.
type Control struct {
	Stdin  bool   `toml:"stdin"`
	Socket string `toml:"socket"`
}

// Monitor configures display hotplug monitoring.
type Monitor struct {
	Hotplug       bool `toml:"hotplug"`
	StopOnHotplug bool `toml:"stop_on_hotplug"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Preflight contains thresholds checked before a session starts.
type Preflight struct {
	MinFreeMiB int `toml:"min_free_mib"`
}

// Config encapsulates all configuration values for skmotion.
type Config struct {
	Recording Recording `toml:"recording"`
	Paths     Paths     `toml:"paths"`
	Workflow  Workflow  `toml:"workflow"`
	Control   Control   `toml:"control"`
	Monitor   Monitor   `toml:"monitor"`
	Logging   Logging   `toml:"logging"`
	Preflight Preflight `toml:"preflight"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/skmotion/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("skmotion.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the session history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// SocketPath returns the control socket location.
func (c *Config) SocketPath() string {
	if c.Control.Socket != "" {
		return c.Control.Socket
	}
	return filepath.Join(c.Paths.StateDir, socketFileName)
}

// FrameInterval returns the capture cadence derived from the configured fps.
func (c *Config) FrameInterval() time.Duration {
	if c.Recording.FPS <= 0 {
		return 0
	}
	return time.Duration(int64(time.Second) / int64(c.Recording.FPS))
}

// Extent returns the configured duration cap, or zero when unbounded.
func (c *Config) Extent() time.Duration {
	return time.Duration(c.Recording.ExtentSeconds) * time.Second
}

// IdleBackoff returns how long an idle stage waits before polling again.
func (c *Config) IdleBackoff() time.Duration {
	return time.Duration(c.Workflow.IdleBackoffMS) * time.Millisecond
}

// PausedBackoff returns how long a paused stage sleeps before re-checking.
func (c *Config) PausedBackoff() time.Duration {
	return time.Duration(c.Workflow.PausedBackoffMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
