// Package pipeline runs a recording session: a capture stage that grabs frames
// at the configured cadence, a filter stage that keeps only frames showing
// significant change (plus a short hold-over after each change), and an encode
// stage that converts accepted frames to I420 and hands them to the encoder and
// muxer.
//
// Stages communicate through Queue values and share one *Session carrying the
// pause/stop flags and counters. Pipeline supervises every goroutine, including
// optional companions such as the operator control surface, and joins them all
// before reporting the session closed.
package pipeline
