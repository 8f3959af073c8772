package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/kioku/internal/srs"
	"github.com/example/kioku/pkg/models"
)

// HistoryRepository handles the per-item lapse log, the per-day review
// counters, and daily queue draw accounting.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new repository instance.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append records one committed review in the lapse log and bumps the day
// counter in a single transaction. The log is pruned so each item keeps at
// most the leech window's worth of rows.
func (r *HistoryRepository) Append(ctx context.Context, ev models.ReviewEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin review event append: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO review_events (user_id, item_id, correct, reviewed_at) VALUES ($1, $2, $3, $4)",
		ev.UserID, ev.ItemID, ev.Correct, ev.ReviewedAt,
	); err != nil {
		return fmt.Errorf("failed to append review event: %w", err)
	}

	// Keep the log bounded to the rolling window.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM review_events
		WHERE user_id = $1 AND item_id = $2 AND id NOT IN (
			SELECT id FROM review_events
			WHERE user_id = $1 AND item_id = $2
			ORDER BY id DESC LIMIT $3
		)`,
		ev.UserID, ev.ItemID, srs.LeechWindow,
	); err != nil {
		return fmt.Errorf("failed to prune review events: %w", err)
	}

	correct := 0
	if ev.Correct {
		correct = 1
	}
	day := ev.ReviewedAt.Format("2006-01-02")
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO review_days (user_id, day, reviewed, correct)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, day) DO UPDATE SET
			reviewed = review_days.reviewed + 1,
			correct = review_days.correct + EXCLUDED.correct`,
		ev.UserID, day, correct,
	); err != nil {
		return fmt.Errorf("failed to bump review day: %w", err)
	}

	return tx.Commit()
}

// Recent returns up to limit of the newest events for an item, ordered
// oldest to newest as the leech detector expects.
func (r *HistoryRepository) Recent(ctx context.Context, userID, itemID int64, limit int) ([]models.ReviewEvent, error) {
	var events []models.ReviewEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM review_events
		WHERE user_id = $1 AND item_id = $2
		ORDER BY id DESC LIMIT $3`,
		userID, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent review events: %w", err)
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// AllDays returns every day counter for a user, ordered by day. Streak
// computation needs the full history.
func (r *HistoryRepository) AllDays(ctx context.Context, userID int64) ([]models.ReviewDay, error) {
	var days []models.ReviewDay
	err := r.db.SelectContext(ctx, &days,
		"SELECT * FROM review_days WHERE user_id = $1 ORDER BY day", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review days: %w", err)
	}
	return days, nil
}

// DrawsOn returns how many queue draws the user has made on the given local
// calendar day.
func (r *HistoryRepository) DrawsOn(ctx context.Context, userID int64, day string) (int, error) {
	var draws int
	err := r.db.GetContext(ctx, &draws,
		"SELECT COALESCE(SUM(draws), 0) FROM daily_draws WHERE user_id = $1 AND day = $2", userID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to get daily draws: %w", err)
	}
	return draws, nil
}

// AddDraws charges n draws against the given day.
func (r *HistoryRepository) AddDraws(ctx context.Context, userID int64, day string, n int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_draws (user_id, day, draws)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, day) DO UPDATE SET
			draws = daily_draws.draws + EXCLUDED.draws`,
		userID, day, n)
	if err != nil {
		return fmt.Errorf("failed to add daily draws: %w", err)
	}
	return nil
}

// PruneDraws removes draw rows older than the given day key. Old rows are
// dead weight once the budget day has rolled over.
func (r *HistoryRepository) PruneDraws(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM daily_draws WHERE day < $1", before.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("failed to prune daily draws: %w", err)
	}
	return nil
}
