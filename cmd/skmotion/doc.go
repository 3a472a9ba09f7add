// Command skmotion records a display only while something on it moves.
//
// The root command records (same flags as `skmotion record`). Other
// subcommands list displays, show session history, control a running
// recording over its socket, and manage the configuration file.
package main
