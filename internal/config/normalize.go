package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRecording(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Control.Socket = strings.TrimSpace(c.Control.Socket)
	if c.Control.Socket != "" {
		if c.Control.Socket, err = expandPath(c.Control.Socket); err != nil {
			return fmt.Errorf("control.socket: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeRecording() error {
	r := &c.Recording
	r.Output = strings.TrimSpace(r.Output)
	if r.Output == "" {
		if value, ok := os.LookupEnv("SKMOTION_OUTPUT"); ok {
			r.Output = strings.TrimSpace(value)
		}
	}
	if r.Output != "" {
		var err error
		if r.Output, err = expandPath(r.Output); err != nil {
			return fmt.Errorf("recording.output: %w", err)
		}
	}
	r.Codec = strings.ToLower(strings.TrimSpace(r.Codec))
	if r.Codec == "" {
		r.Codec = defaultCodec
	}
	r.Overwrite = strings.ToLower(strings.TrimSpace(r.Overwrite))
	if r.Overwrite == "" {
		r.Overwrite = defaultOverwrite
	}
	r.Timestamps = strings.ToLower(strings.TrimSpace(r.Timestamps))
	if r.Timestamps == "" {
		r.Timestamps = defaultTimestamps
	}
	if r.TimestampMultiplier == 0 {
		r.TimestampMultiplier = defaultTimestampMultiplier
	}
	r.QueueDiscipline = strings.ToLower(strings.TrimSpace(r.QueueDiscipline))
	if r.QueueDiscipline == "" {
		r.QueueDiscipline = defaultQueueDiscipline
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.IdleBackoffMS <= 0 {
		c.Workflow.IdleBackoffMS = defaultIdleBackoffMS
	}
	if c.Workflow.PausedBackoffMS <= 0 {
		c.Workflow.PausedBackoffMS = defaultPausedBackoffMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
