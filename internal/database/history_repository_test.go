package database

import (
	"context"
	"testing"
	"time"

	"github.com/example/kioku/internal/srs"
	"github.com/example/kioku/pkg/models"
)

func appendReview(t *testing.T, repo *HistoryRepository, userID, itemID int64, correct bool, at time.Time) {
	t.Helper()
	err := repo.Append(context.Background(), models.ReviewEvent{
		UserID:     userID,
		ItemID:     itemID,
		Correct:    correct,
		ReviewedAt: at,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestAppendKeysDayByTimestampLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	repo := NewHistoryRepository(testDB(t))

	// Two reviews on consecutive Tokyo mornings; the first is still the
	// previous day in UTC. The day counters must land on the local days,
	// otherwise the streak between them shows a phantom gap.
	appendReview(t, repo, 1, 42, true, time.Date(2025, 6, 9, 8, 0, 0, 0, tokyo))
	appendReview(t, repo, 1, 42, true, time.Date(2025, 6, 10, 10, 0, 0, 0, tokyo))

	days, err := repo.AllDays(context.Background(), 1)
	if err != nil {
		t.Fatalf("AllDays: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("day rows = %d, want 2: %+v", len(days), days)
	}
	if days[0].Day != "2025-06-09" || days[1].Day != "2025-06-10" {
		t.Errorf("day keys = %s, %s, want 2025-06-09, 2025-06-10 (user-local)", days[0].Day, days[1].Day)
	}
}

func TestAppendBumpsDayCounters(t *testing.T) {
	repo := NewHistoryRepository(testDB(t))
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	appendReview(t, repo, 1, 42, true, at)
	appendReview(t, repo, 1, 43, false, at.Add(time.Minute))
	appendReview(t, repo, 1, 44, true, at.Add(2*time.Minute))

	days, err := repo.AllDays(context.Background(), 1)
	if err != nil {
		t.Fatalf("AllDays: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("day rows = %d, want 1", len(days))
	}
	if days[0].Reviewed != 3 || days[0].Correct != 2 {
		t.Errorf("counters = %d reviewed / %d correct, want 3/2", days[0].Reviewed, days[0].Correct)
	}
}

func TestAppendPrunesLogToWindow(t *testing.T) {
	repo := NewHistoryRepository(testDB(t))
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	total := srs.LeechWindow + 3
	for i := 0; i < total; i++ {
		appendReview(t, repo, 1, 42, i >= 3, at.AddDate(0, 0, i))
	}

	events, err := repo.Recent(context.Background(), 1, 42, total)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != srs.LeechWindow {
		t.Fatalf("log length = %d, want pruned to %d", len(events), srs.LeechWindow)
	}
	// The three oldest (incorrect) rows fell out; what remains is oldest
	// to newest and all correct.
	for i, ev := range events {
		if !ev.Correct {
			t.Errorf("event %d incorrect; pruning kept an old row", i)
		}
		if i > 0 && ev.ReviewedAt.Before(events[i-1].ReviewedAt) {
			t.Errorf("events not in oldest-to-newest order at %d", i)
		}
	}
}

func TestDrawLedgerAccounting(t *testing.T) {
	repo := NewHistoryRepository(testDB(t))
	ctx := context.Background()

	if err := repo.AddDraws(ctx, 1, "2025-06-10", 5); err != nil {
		t.Fatalf("AddDraws: %v", err)
	}
	if err := repo.AddDraws(ctx, 1, "2025-06-10", 3); err != nil {
		t.Fatalf("AddDraws: %v", err)
	}
	if err := repo.AddDraws(ctx, 1, "2025-06-11", 2); err != nil {
		t.Fatalf("AddDraws: %v", err)
	}

	draws, err := repo.DrawsOn(ctx, 1, "2025-06-10")
	if err != nil {
		t.Fatalf("DrawsOn: %v", err)
	}
	if draws != 8 {
		t.Errorf("draws on 2025-06-10 = %d, want 8", draws)
	}

	if err := repo.PruneDraws(ctx, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("PruneDraws: %v", err)
	}
	if draws, _ = repo.DrawsOn(ctx, 1, "2025-06-10"); draws != 0 {
		t.Errorf("pruned day draws = %d, want 0", draws)
	}
	if draws, _ = repo.DrawsOn(ctx, 1, "2025-06-11"); draws != 2 {
		t.Errorf("kept day draws = %d, want 2", draws)
	}
}
