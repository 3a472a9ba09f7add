// Package ffprobe inspects finished recordings with the ffprobe binary.
//
// Inspect runs ffprobe and decodes its JSON output; Result.Video and
// Result.Check turn that into the facts the recorder reports once a file is
// finalized (duration, frame count, codec and geometry).
package ffprobe
