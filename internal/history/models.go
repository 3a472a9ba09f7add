package history

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a session id has no row.
var ErrNotFound = errors.New("session not found")

// Status is the lifecycle state of a recorded session.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusFailed      Status = "failed"
)

// ParseStatus normalizes a status name.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusRunning:
		return StatusRunning, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusInterrupted:
		return StatusInterrupted, true
	case StatusFailed:
		return StatusFailed, true
	default:
		return "", false
	}
}

// Session is one row of the history table.
type Session struct {
	ID          string
	Display     int
	Destination string
	Codec       string
	FPS         int
	Sensitivity float64
	Resilience  int
	PID         int
	Status      Status
	StopReason  string
	Captured    uint64
	Saved       uint64
	Skipped     uint64
	Dropped     uint64
	FileSize    int64
	Error       string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Duration is the wall time of a finished session, or zero while running.
func (s Session) Duration() time.Duration {
	if s.EndedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Outcome carries the values written when a session ends.
type Outcome struct {
	Status     Status
	StopReason string
	Captured   uint64
	Saved      uint64
	Skipped    uint64
	Dropped    uint64
	FileSize   int64
	Err        error
}
