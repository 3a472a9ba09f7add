package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"skmotion/internal/capture"
	"skmotion/internal/config"
	"skmotion/internal/ipc"
	"skmotion/internal/media"
	"skmotion/internal/media/ffmpeg"
	"skmotion/internal/preflight"
	"skmotion/internal/recorder"
)

// commandDeps replaces the desktop-facing collaborators under test. Zero
// values select the real implementations.
type commandDeps struct {
	Source    media.Source
	Media     recorder.MediaFactory
	Preflight func(ctx context.Context, cfg *config.Config) []preflight.Result
	Encoders  func(media.Codec) bool
}

type commandContext struct {
	socketFlag *string
	configFlag *string
	deps       commandDeps

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string, deps commandDeps) *commandContext {
	if deps.Source == nil {
		deps.Source = capture.NewScreenSource()
	}
	if deps.Preflight == nil {
		deps.Preflight = preflight.RunAll
	}
	if deps.Encoders == nil {
		deps.Encoders = ffmpeg.EncoderAvailable
	}
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
		deps:       deps,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
			socket, err := config.ExpandPath(strings.TrimSpace(*c.socketFlag))
			if err != nil {
				c.configErr = fmt.Errorf("resolve socket path: %w", err)
				return
			}
			cfg.Control.Socket = socket
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) socketPath() (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.SocketPath(), nil
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	socket, err := c.socketPath()
	if err != nil {
		return err
	}
	client, err := ipc.Dial(socket)
	if err != nil {
		return wrapDialError(err, socket)
	}
	defer client.Close()
	return fn(client)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to recorder: socket %s not found; is a recording running?", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to recorder: socket %s refused the connection; the recording may have ended", socket)
	default:
		return fmt.Errorf("connect to recorder: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
