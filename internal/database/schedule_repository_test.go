package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/kioku/pkg/models"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertPreservesCallerTimestamps(t *testing.T) {
	repo := NewScheduleRepository(testDB(t))
	ctx := context.Background()

	updatedAt := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	state := models.NewScheduleState(1, 42, updatedAt.AddDate(0, 0, -3))
	state.Repetitions = 2
	state.Version = 2
	state.UpdatedAt = updatedAt

	if err := repo.UpsertScheduleState(ctx, &state); err != nil {
		t.Fatalf("UpsertScheduleState: %v", err)
	}
	if !state.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("caller's UpdatedAt mutated to %v", state.UpdatedAt)
	}

	got, err := repo.GetScheduleState(ctx, 1, 42)
	if err != nil {
		t.Fatalf("GetScheduleState: %v", err)
	}
	if got == nil {
		t.Fatal("state not persisted")
	}
	if !got.UpdatedAt.Equal(updatedAt) {
		t.Errorf("stored UpdatedAt = %v, want caller's %v", got.UpdatedAt, updatedAt)
	}
	if got.Repetitions != 2 || got.Version != 2 {
		t.Errorf("stored state = reps %d version %d, want 2/2", got.Repetitions, got.Version)
	}
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	repo := NewScheduleRepository(testDB(t))
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	state := models.NewScheduleState(1, 42, now)
	if err := repo.UpsertScheduleState(ctx, &state); err != nil {
		t.Fatalf("insert: %v", err)
	}

	state.Repetitions = 1
	state.Version = 1
	reviewed := now.Add(time.Minute)
	state.LastReviewAt = &reviewed
	state.UpdatedAt = reviewed
	if err := repo.UpsertScheduleState(ctx, &state); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetScheduleState(ctx, 1, 42)
	if err != nil {
		t.Fatalf("GetScheduleState: %v", err)
	}
	if got.Version != 1 || got.LastReviewAt == nil {
		t.Errorf("upsert did not replace row: version %d, lastReviewAt %v", got.Version, got.LastReviewAt)
	}
}

func TestGetScheduleStateMissingIsNil(t *testing.T) {
	repo := NewScheduleRepository(testDB(t))
	got, err := repo.GetScheduleState(context.Background(), 1, 999)
	if err != nil {
		t.Fatalf("GetScheduleState: %v", err)
	}
	if got != nil {
		t.Errorf("missing row = %+v, want nil", got)
	}
}

func TestCountDueSkipsNewItems(t *testing.T) {
	repo := NewScheduleRepository(testDB(t))
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	// Never reviewed: due in the past but not counted.
	fresh := models.NewScheduleState(1, 1, now.AddDate(0, 0, -5))
	if err := repo.UpsertScheduleState(ctx, &fresh); err != nil {
		t.Fatal(err)
	}

	overdue := models.NewScheduleState(1, 2, now.AddDate(0, 0, -5))
	reviewed := now.AddDate(0, 0, -2)
	overdue.LastReviewAt = &reviewed
	overdue.DueAt = now.Add(-time.Hour)
	if err := repo.UpsertScheduleState(ctx, &overdue); err != nil {
		t.Fatal(err)
	}

	future := models.NewScheduleState(1, 3, now.AddDate(0, 0, -5))
	future.LastReviewAt = &reviewed
	future.DueAt = now.AddDate(0, 0, 3)
	if err := repo.UpsertScheduleState(ctx, &future); err != nil {
		t.Fatal(err)
	}

	count, err := repo.CountDue(ctx, 1, now)
	if err != nil {
		t.Fatalf("CountDue: %v", err)
	}
	if count != 1 {
		t.Errorf("due count = %d, want 1", count)
	}
}
