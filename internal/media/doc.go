// Package media defines the frame, packet, and collaborator contracts shared by
// the capture, conversion, and encoding layers.
//
// RawFrame and PlanarFrame are plain value types so the pipeline can hand them
// between stages without aliasing. Source, Grabber, Encoder, and Muxer are the
// narrow seams behind which the OS screen grabber and the codec/container
// bindings live; the pipeline only ever talks to these interfaces, which keeps
// the core testable with in-memory fakes.
package media
