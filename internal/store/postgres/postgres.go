package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/soliveri/stagehand/internal/store"
)

// DB implements store.Store for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

// New opens a PostgreSQL connection for the given DSN.
func New(dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("empty postgres dsn")
	}
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS launch_session(
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			pid INTEGER NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			stopped_at TIMESTAMPTZ NULL,
			outcome TEXT NOT NULL,
			exit_err TEXT NULL,
			uniq TEXT NOT NULL UNIQUE,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_launch_session_name ON launch_session(name);`,
		`CREATE INDEX IF NOT EXISTS idx_launch_session_started ON launch_session(started_at);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) RecordStart(ctx context.Context, rec store.Session) error {
	rec.UpdatedAt = time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO launch_session(name, pid, started_at, stopped_at, outcome, exit_err, uniq, updated_at)
		VALUES($1, $2, $3, NULL, $4, NULL, $5, $6)
		ON CONFLICT(uniq) DO UPDATE SET
			name=excluded.name,
			pid=excluded.pid,
			started_at=excluded.started_at,
			outcome=excluded.outcome,
			updated_at=excluded.updated_at;`,
		rec.Name, rec.PID, rec.StartedAt.UTC(), rec.Outcome, rec.Key(), rec.UpdatedAt)
	return err
}

func (p *DB) RecordStop(ctx context.Context, uniq string, stoppedAt time.Time, outcome string, exitErr error) error {
	var ee sql.NullString
	if exitErr != nil {
		ee = sql.NullString{String: exitErr.Error(), Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
		UPDATE launch_session
		SET stopped_at=$1, outcome=$2, exit_err=$3, updated_at=$4
		WHERE uniq=$5;`,
		stoppedAt.UTC(), outcome, ee, time.Now().UTC(), uniq)
	return err
}

func (p *DB) Recent(ctx context.Context, limit int) ([]store.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT name, pid, started_at, stopped_at, outcome, exit_err, updated_at
		FROM launch_session
		ORDER BY started_at DESC
		LIMIT $1;`, limit)
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
