package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/soliveri/stagehand/internal/store"
)

// startPostgresContainer starts a PostgreSQL container for tests and
// returns a DSN suitable for pgx stdlib. Skips when Docker is unavailable.
func startPostgresContainer(t *testing.T) (dsn string, terminate func()) {
	t.Helper()

	// testcontainers panics (rather than returning an error) when no
	// Docker host can be found; convert that into the documented skip.
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("Failed to start PostgreSQL container: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
	if err != nil {
		cancel()
		t.Skipf("Failed to start PostgreSQL container: %v", err)
		return "", nil
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get host info: %v", err)
		return "", nil
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get mapped port: %v", err)
		return "", nil
	}

	dsn = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	terminate = func() {
		_ = container.Terminate(ctx)
		cancel()
	}
	return dsn, terminate
}

func waitForPostgres(t *testing.T, dsn string) {
	t.Helper()
	deadline := time.Now().Add(45 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := sql.Open("pgx", dsn)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				_ = db.Close()
				cancel()
				return
			}
			_ = db.Close()
		}
		cancel()
		if time.Now().After(deadline) {
			t.Skipf("PostgreSQL did not become ready: %v", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func TestNewEmptyDSN(t *testing.T) {
	if _, err := New(" "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestPostgresSessionRoundtrip(t *testing.T) {
	dsn, terminate := startPostgresContainer(t)
	defer terminate()
	waitForPostgres(t, dsn)

	db, err := New(dsn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	rec := store.Session{Name: "api", PID: 31337, StartedAt: time.Now().Add(-time.Minute), Outcome: "running"}
	if err := db.RecordStart(ctx, rec); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	if err := db.RecordStop(ctx, rec.Key(), time.Now(), "stopped", nil); err != nil {
		t.Fatalf("RecordStop: %v", err)
	}
	if err := db.RecordStop(ctx, rec.Key(), time.Now(), "failed", errors.New("boom")); err != nil {
		t.Fatalf("RecordStop update: %v", err)
	}

	got, err := db.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Outcome != "failed" || !got[0].ExitErr.Valid {
		t.Fatalf("unexpected sessions: %+v", got)
	}
}
