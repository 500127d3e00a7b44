package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soliveri/stagehand/internal/store"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return db
}

func TestNewEmptyPath(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestRecordStartStopRoundtrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	rec := store.Session{Name: "api", PID: 4242, StartedAt: started, Outcome: "running"}
	if err := db.RecordStart(ctx, rec); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}

	if err := db.RecordStop(ctx, rec.Key(), time.Now(), "failed", errors.New("exit status 3")); err != nil {
		t.Fatalf("RecordStop: %v", err)
	}

	got, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one session, got %d", len(got))
	}
	s := got[0]
	if s.Name != "api" || s.PID != 4242 || s.Outcome != "failed" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if !s.StoppedAt.Valid || !s.ExitErr.Valid || s.ExitErr.String != "exit status 3" {
		t.Fatalf("stop fields not recorded: %+v", s)
	}
}

func TestRecordStartUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := store.Session{Name: "api", PID: 1, StartedAt: time.Now(), Outcome: "running"}
	if err := db.RecordStart(ctx, rec); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	rec.Outcome = "attached"
	if err := db.RecordStart(ctx, rec); err != nil {
		t.Fatalf("RecordStart upsert: %v", err)
	}
	got, err := db.Recent(ctx, 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("upsert should keep one row: %v %d", err, len(got))
	}
	if got[0].Outcome != "attached" {
		t.Fatalf("upsert did not update outcome: %+v", got[0])
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		rec := store.Session{Name: "api", PID: 100 + i, StartedAt: base.Add(time.Duration(i) * time.Minute), Outcome: "running"}
		if err := db.RecordStart(ctx, rec); err != nil {
			t.Fatalf("RecordStart %d: %v", i, err)
		}
	}
	got, err := db.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("limit not applied: %d", len(got))
	}
	if got[0].PID != 104 {
		t.Fatalf("not ordered by started_at desc: %+v", got[0])
	}
}
