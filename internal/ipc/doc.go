// Package ipc exposes a running recording session over JSON-RPC on a Unix
// socket and ships the matching client used by `skmotion ctl`.
//
// It owns socket lifecycle management and the request/response DTOs. Commands
// go through the same control.Dispatcher as the terminal surface so remote and
// local operators see identical behaviour.
package ipc
