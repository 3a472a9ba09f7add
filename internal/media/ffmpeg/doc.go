// Package ffmpeg implements media.Encoder and media.Muxer on top of
// github.com/asticode/go-astiav (libavcodec/libavformat bindings).
//
// The muxer is created first so the encoder knows whether the container wants
// global headers; the encoder is then attached to the muxer, which copies its
// codec parameters into the video stream when the track is added.
package ffmpeg
