package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

const sessionColumns = "id, display, destination, codec, fps, sensitivity, resilience, pid, status, stop_reason, captured, saved, skipped, dropped, file_size, error_message, started_at, ended_at"

// Begin records a new running session. PID and StartedAt default to the
// current process and time.
func (s *Store) Begin(ctx context.Context, session Session) (*Session, error) {
	if session.ID == "" {
		return nil, errors.New("session id is required")
	}
	if session.PID == 0 {
		session.PID = os.Getpid()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = s.now()
	}
	session.Status = StatusRunning

	_, err := s.exec(ctx, `INSERT INTO sessions (
            id, display, destination, codec, fps, sensitivity, resilience, pid, status, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Display, session.Destination, session.Codec, session.FPS,
		session.Sensitivity, session.Resilience, session.PID, string(session.Status), formatTime(session.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &session, nil
}

// Finish stores the final counters and status of a session.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome) error {
	status := outcome.Status
	if status == "" {
		status = StatusCompleted
	}
	message := ""
	if outcome.Err != nil {
		message = outcome.Err.Error()
	}
	res, err := s.exec(ctx, `UPDATE sessions SET
            status = ?, stop_reason = ?, captured = ?, saved = ?, skipped = ?, dropped = ?,
            file_size = ?, error_message = ?, ended_at = ?
        WHERE id = ?`,
		string(status), outcome.StopReason, int64(outcome.Captured), int64(outcome.Saved),
		int64(outcome.Skipped), int64(outcome.Dropped), outcome.FileSize, message, formatTime(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns one session.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// List returns the most recent sessions, newest first, optionally filtered by
// status. A non-positive limit returns every row.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (?` + strings.Repeat(",?", len(statuses)-1) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Clear removes every finished session and reports how many rows went away.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM sessions WHERE status != ?`, string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("clear sessions: %w", err)
	}
	return res.RowsAffected()
}

// ReconcileStale marks running sessions whose process is gone as interrupted.
func (s *Store) ReconcileStale(ctx context.Context) (int64, error) {
	running, err := s.List(ctx, 0, StatusRunning)
	if err != nil {
		return 0, err
	}
	var updated int64
	for _, session := range running {
		if session.PID == os.Getpid() {
			continue
		}
		if alive, err := process.PidExists(int32(session.PID)); err == nil && alive {
			continue
		}
		if _, err := s.exec(ctx, `UPDATE sessions SET status = ?, error_message = ?, ended_at = ? WHERE id = ? AND status = ?`,
			string(StatusInterrupted), "recorder exited without finishing the session", formatTime(s.now()),
			session.ID, string(StatusRunning),
		); err != nil {
			return updated, fmt.Errorf("mark session %s interrupted: %w", session.ID, err)
		}
		updated++
	}
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session                           Session
		status                            string
		captured, saved, skipped, dropped int64
		started, ended                    sql.NullString
	)
	if err := row.Scan(
		&session.ID, &session.Display, &session.Destination, &session.Codec, &session.FPS,
		&session.Sensitivity, &session.Resilience, &session.PID, &status, &session.StopReason,
		&captured, &saved, &skipped, &dropped, &session.FileSize, &session.Error, &started, &ended,
	); err != nil {
		return nil, err
	}
	session.Status = Status(status)
	session.Captured = uint64(captured)
	session.Saved = uint64(saved)
	session.Skipped = uint64(skipped)
	session.Dropped = uint64(dropped)
	session.StartedAt = parseTime(started)
	session.EndedAt = parseTime(ended)
	return &session, nil
}
