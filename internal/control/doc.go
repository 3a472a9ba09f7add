// Package control implements the operator command surface of a recording
// session.
//
// Dispatcher parses one command line and applies it to the running pipeline;
// Surface feeds it lines read from the terminal. The IPC server reuses the same
// Dispatcher so remote and local commands behave identically.
package control
