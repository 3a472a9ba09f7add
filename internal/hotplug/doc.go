// Package hotplug watches udev netlink events for display (DRM) changes while
// a recording runs. A connector plug or unplug changes the geometry the
// grabber was opened with, so callers may choose to stop the session and
// finalize the file.
package hotplug
