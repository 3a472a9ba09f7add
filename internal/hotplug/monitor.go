package hotplug

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pilebones/go-udev/netlink"

	"skmotion/internal/config"
	"skmotion/internal/logging"
)

// Event is a display change reported by the kernel.
type Event struct {
	Action string
	Device string
	// Connector is set when the kernel names the affected connector.
	Connector string
}

// Handler receives matched display events.
type Handler func(Event)

// Monitor listens for DRM uevents. It runs as a pipeline companion and returns
// when its context is cancelled.
type Monitor struct {
	logger  *slog.Logger
	handler Handler
	connect func() (eventSource, error)
}

type eventSource interface {
	Monitor(queue chan netlink.UEvent, errs chan error, matcher netlink.Matcher) chan struct{}
	Close() error
}

// NewMonitor returns nil when hotplug watching is disabled in cfg.
func NewMonitor(cfg *config.Config, logger *slog.Logger, handler Handler) *Monitor {
	if cfg == nil || !cfg.Monitor.Hotplug {
		return nil
	}
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "hotplug"),
		handler: handler,
		connect: connectUdev,
	}
}

func connectUdev() (eventSource, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}
	return conn, nil
}

// Run blocks until ctx is done. A netlink connect failure is logged and
// treated as non-fatal.
func (m *Monitor) Run(ctx context.Context) error {
	if m == nil {
		return nil
	}
	conn, err := m.connect()
	if err != nil {
		logging.WarnWithContext(m.logger, "display hotplug monitor unavailable", "hotplug_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check access to the kernel netlink socket"),
			logging.String(logging.FieldImpact, "display changes will not be detected"),
		)
		return nil
	}
	defer conn.Close()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, buildMatcher())
	defer close(quit)

	m.logger.Debug("display hotplug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "display hotplug monitor error", "hotplug_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
			)
		}
	}
}

// buildMatcher matches DRM device events: SUBSYSTEM=drm, ACTION=add|change|remove.
func buildMatcher() netlink.Matcher {
	action := "add|change|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "drm",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	event := Event{
		Action:    string(uevent.Action),
		Device:    deviceName(uevent),
		Connector: uevent.Env["CONNECTOR"],
	}
	// Plain card "change" events without HOTPLUG=1 are mode sets, not plugs.
	if uevent.Action == netlink.CHANGE && uevent.Env["HOTPLUG"] != "1" {
		m.logger.Debug("ignoring drm change without hotplug flag",
			logging.String("device", event.Device),
		)
		return
	}
	m.logger.Info("display configuration changed",
		logging.String(logging.FieldEventType, "display_hotplug"),
		logging.String("action", event.Action),
		logging.String("device", event.Device),
	)
	if m.handler != nil {
		m.handler(event)
	}
}

func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/") {
			return devname
		}
		return "/dev/" + devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return uevent.KObj
	}
	parts := strings.Split(devpath, "/")
	return parts[len(parts)-1]
}
