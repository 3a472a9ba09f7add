// Package history persists one row per recording session in SQLite so
// operators can review past runs with `skmotion history`.
//
// The store opens `state_dir/history.db` in WAL mode, creates its schema on
// first use, and retries briefly when another skmotion process holds the write
// lock. Rows left in the running state by a process that no longer exists are
// marked interrupted the next time a session begins.
package history
