// Package history is the optional embedded job-history log SPEC_FULL.md's
// domain stack calls for: every terminal status transition a queue observes
// is appended as a row to a local sqlite file (--job-history <path>), purely
// as a debugging/audit aid layered on top of internal/queue. The KV store
// remains the single source of truth for job state; nothing here is ever
// read back by the queue itself. Grounded on modernc.org/sqlite's own
// database/sql driver usage (sql.Open("sqlite", path)) since no example repo
// in the retrieval pack imports the driver directly — the teacher's go.mod
// lists it but no teacher file uses it, so the table schema and access
// pattern below follow database/sql idiom rather than any one pack file.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Log appends terminal job status transitions to a local sqlite file.
type Log struct {
	db  *sql.DB
	log *slog.Logger
}

// Open creates (or reuses) the sqlite file at path and ensures its schema
// exists. The caller is responsible for calling Close on shutdown.
func Open(path string, log *slog.Logger) (*Log, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS job_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	status TEXT NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	recorded_at_unix_nanos INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS job_history_job_id ON job_history (job_id);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	return &Log{db: db, log: log}, nil
}

// Record appends one terminal status transition. It never returns an error
// that should block a job's own completion — a write failure here is logged
// and swallowed, since this log is a side channel, not the job's authoritative
// record (the KV store already holds that).
func (l *Log) Record(ctx context.Context, jobID, status, failureReason string, recordedAtUnixNanos int64) {
	if l == nil {
		return
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO job_history (job_id, status, failure_reason, recorded_at_unix_nanos) VALUES (?, ?, ?, ?)`,
		jobID, status, failureReason, recordedAtUnixNanos,
	)
	if err != nil {
		l.log.Warn("history: failed to record job transition", "job_id", jobID, "status", status, "error", err)
	}
}

// Transition is one recorded status change of a job.
type Transition struct {
	Status              string
	FailureReason       string
	RecordedAtUnixNanos int64
}

// Transitions returns every recorded status transition for jobID in the
// order they were recorded.
func (l *Log) Transitions(ctx context.Context, jobID string) ([]Transition, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT status, failure_reason, recorded_at_unix_nanos FROM job_history WHERE job_id = ? ORDER BY id ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.Status, &t.FailureReason, &t.RecordedAtUnixNanos); err != nil {
			return nil, fmt.Errorf("history: scan %s: %w", jobID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close releases the underlying sqlite file handle.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}
