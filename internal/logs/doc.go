// Package logs reads the recorder log file for `skmotion logs`: the last N
// lines, and new lines as they are appended.
package logs
