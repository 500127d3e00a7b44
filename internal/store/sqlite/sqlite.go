package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/soliveri/stagehand/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver, CGO-free).
// Path is a filesystem path to the database file; use ":memory:" for tests.
type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS launch_session(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			pid INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			stopped_at TIMESTAMP NULL,
			outcome TEXT NOT NULL,
			exit_err TEXT NULL,
			uniq TEXT NOT NULL UNIQUE,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_launch_session_name ON launch_session(name);`,
		`CREATE INDEX IF NOT EXISTS idx_launch_session_started ON launch_session(started_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) RecordStart(ctx context.Context, rec store.Session) error {
	rec.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO launch_session(name, pid, started_at, stopped_at, outcome, exit_err, uniq, updated_at)
		VALUES(?, ?, ?, NULL, ?, NULL, ?, ?)
		ON CONFLICT(uniq) DO UPDATE SET
			name=excluded.name,
			pid=excluded.pid,
			started_at=excluded.started_at,
			outcome=excluded.outcome,
			updated_at=excluded.updated_at;`,
		rec.Name, rec.PID, rec.StartedAt.UTC(), rec.Outcome, rec.Key(), rec.UpdatedAt)
	return err
}

func (s *DB) RecordStop(ctx context.Context, uniq string, stoppedAt time.Time, outcome string, exitErr error) error {
	var ee sql.NullString
	if exitErr != nil {
		ee = sql.NullString{String: exitErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE launch_session
		SET stopped_at=?, outcome=?, exit_err=?, updated_at=?
		WHERE uniq=?;`,
		stoppedAt.UTC(), outcome, ee, time.Now().UTC(), uniq)
	return err
}

func (s *DB) Recent(ctx context.Context, limit int) ([]store.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, pid, started_at, stopped_at, outcome, exit_err, updated_at
		FROM launch_session
		ORDER BY started_at DESC
		LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []store.Session
	for rows.Next() {
		var rec store.Session
		if err := rows.Scan(&rec.Name, &rec.PID, &rec.StartedAt, &rec.StoppedAt, &rec.Outcome, &rec.ExitErr, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
