package config

const (
	defaultStateDir            = "~/.local/share/skmotion"
	defaultLogDir              = "~/.local/share/skmotion/logs"
	defaultDisplay             = -1
	defaultSensitivity         = 0.001
	defaultResilience          = 5
	defaultFPS                 = 30
	defaultBitrate             = 5000
	defaultCodec               = "vp9"
	defaultOverwrite           = OverwritePrompt
	defaultTimestamps          = TimestampsSynthetic
	defaultTimestampMultiplier = 1
	defaultQueueDiscipline     = QueueFIFO
	defaultIdleBackoffMS       = 20
	defaultPausedBackoffMS     = 50
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultMinFreeMiB          = 256
	socketFileName             = "skmotion.sock"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Recording: Recording{
			Display:             defaultDisplay,
			Sensitivity:         defaultSensitivity,
			Resilience:          defaultResilience,
			FPS:                 defaultFPS,
			Bitrate:             defaultBitrate,
			Codec:               defaultCodec,
			Overwrite:           defaultOverwrite,
			Timestamps:          defaultTimestamps,
			TimestampMultiplier: defaultTimestampMultiplier,
			QueueDiscipline:     defaultQueueDiscipline,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Workflow: Workflow{
			IdleBackoffMS:   defaultIdleBackoffMS,
			PausedBackoffMS: defaultPausedBackoffMS,
		},
		Control: Control{
			Stdin: true,
		},
		Monitor: Monitor{
			Hotplug: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Preflight: Preflight{
			MinFreeMiB: defaultMinFreeMiB,
		},
	}
}
