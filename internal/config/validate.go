package config

import (
	"errors"
	"fmt"
	"math"

	"skmotion/internal/media"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validatePreflight(); err != nil {
		return err
	}
	return nil
}

// ValidateForRecording runs Validate and additionally requires the settings
// only a recording session needs, such as the destination path.
func (c *Config) ValidateForRecording() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Recording.Output == "" {
		return errors.New("recording.output is required (pass --output or set SKMOTION_OUTPUT)")
	}
	codec, err := media.ParseCodec(c.Recording.Codec)
	if err != nil {
		return fmt.Errorf("recording.codec: %w", err)
	}
	if _, err := media.ContainerFor(c.Recording.Output, codec); err != nil {
		return fmt.Errorf("recording.output: %w", err)
	}
	return nil
}

func (c *Config) validateRecording() error {
	r := c.Recording
	if math.IsNaN(r.Sensitivity) || r.Sensitivity < 0 || r.Sensitivity > 1 {
		return errors.New("recording.sensitivity must be between 0 and 1")
	}
	if r.Resilience < 0 {
		return errors.New("recording.resilience must be >= 0")
	}
	if r.ExtentSeconds < 0 {
		return errors.New("recording.extent_seconds must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"recording.fps":                  r.FPS,
		"recording.bitrate":              r.Bitrate,
		"recording.timestamp_multiplier": r.TimestampMultiplier,
	}); err != nil {
		return err
	}
	if r.FPS > 1000 {
		return errors.New("recording.fps must be <= 1000")
	}
	if _, err := media.ParseCodec(r.Codec); err != nil {
		return fmt.Errorf("recording.codec: %w", err)
	}
	switch r.Overwrite {
	case OverwritePrompt, OverwriteFail, OverwriteAlways:
	default:
		return fmt.Errorf("recording.overwrite must be one of prompt, fail, always (got %q)", r.Overwrite)
	}
	switch r.Timestamps {
	case TimestampsSynthetic, TimestampsWallclock:
	default:
		return fmt.Errorf("recording.timestamps must be synthetic or wallclock (got %q)", r.Timestamps)
	}
	switch r.QueueDiscipline {
	case QueueFIFO, QueueLIFO:
	default:
		return fmt.Errorf("recording.queue_discipline must be fifo or lifo (got %q)", r.QueueDiscipline)
	}
	return nil
}

func (c *Config) validatePreflight() error {
	if c.Preflight.MinFreeMiB < 0 {
		return errors.New("preflight.min_free_mib must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
