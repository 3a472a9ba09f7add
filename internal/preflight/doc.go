// Package preflight provides readiness checks run before a recording starts.
//
// The recorder calls RunAll and refuses to open the destination when any check
// fails, so a doomed session never leaves a half-written file behind. Each
// check reports a Result the CLI can also render on its own.
package preflight
