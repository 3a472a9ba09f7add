// Package capture adapts github.com/kbinani/screenshot to the media.Source
// interface. Frames are delivered as packed BGRA rows; the grabber reuses one
// buffer between grabs, so callers copy what they keep.
package capture
