package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Session is one launch of the backend as persisted for later inspection.
// Outcome is one of "attached" (already-running short-circuit), "running"
// (spawned, supervision in progress), "failed" (spawn error, premature
// exit or readiness timeout), "stopped" (orderly shutdown).
type Session struct {
	Name      string
	PID       int
	StartedAt time.Time
	StoppedAt sql.NullTime
	Outcome   string
	ExitErr   sql.NullString
	UpdatedAt time.Time
}

// Key returns the unique identity of a session row.
func (s Session) Key() string { return UniqueKey(s.PID, s.StartedAt) }

// UniqueKey derives a stable identity from PID and start time; PIDs alone
// are recycled by the OS.
func UniqueKey(pid int, startedAt time.Time) string {
	return fmt.Sprintf("%d-%d", pid, startedAt.UTC().UnixNano())
}

// Store persists launch sessions. All writes are best-effort from the
// orchestrator's point of view: errors are logged, never fatal.
type Store interface {
	EnsureSchema(ctx context.Context) error
	RecordStart(ctx context.Context, s Session) error
	RecordStop(ctx context.Context, uniq string, stoppedAt time.Time, outcome string, exitErr error) error
	Recent(ctx context.Context, limit int) ([]Session, error)
	Close() error
}
