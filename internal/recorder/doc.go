// Package recorder runs one motion recording session end to end.
//
// Run validates the configuration, runs preflight checks, picks the display,
// locks the destination, records the session in history, wires the capture,
// filter and encode pipeline together with its companions (stdin control
// surface, control socket, display hotplug monitor) and reports a Summary
// once the container is finalized.
//
// Every collaborator that touches the desktop, the encoder or the terminal is
// injectable through Options so the whole flow runs under test with fakes.
package recorder
