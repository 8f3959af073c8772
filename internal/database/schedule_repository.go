package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/kioku/pkg/models"
)

// ScheduleRepository handles database operations for schedule states. It
// satisfies the sync coordinator's Store interface for both the local SQLite
// store and the remote Postgres store.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new repository instance.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// GetScheduleState returns one (user, item) state, or nil when none exists.
func (r *ScheduleRepository) GetScheduleState(ctx context.Context, userID, itemID int64) (*models.ScheduleState, error) {
	var state models.ScheduleState
	err := r.db.GetContext(ctx, &state,
		"SELECT * FROM schedule_states WHERE user_id = $1 AND item_id = $2", userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule state: %w", err)
	}
	return &state, nil
}

// ListScheduleStates returns every state for a user.
func (r *ScheduleRepository) ListScheduleStates(ctx context.Context, userID int64) ([]models.ScheduleState, error) {
	var states []models.ScheduleState
	err := r.db.SelectContext(ctx, &states,
		"SELECT * FROM schedule_states WHERE user_id = $1 ORDER BY item_id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule states: %w", err)
	}
	return states, nil
}

// UpsertScheduleState writes a state row, replacing any existing one. The
// UpdatedAt stamp comes from the caller, where the injected clock lives; the
// repository never touches the struct.
func (r *ScheduleRepository) UpsertScheduleState(ctx context.Context, state *models.ScheduleState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_states (
			user_id, item_id, repetitions, lapses, interval_days, ease_factor,
			due_at, last_review_at, last_confidence, is_leech, version,
			synced_version, mastered_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			repetitions = EXCLUDED.repetitions,
			lapses = EXCLUDED.lapses,
			interval_days = EXCLUDED.interval_days,
			ease_factor = EXCLUDED.ease_factor,
			due_at = EXCLUDED.due_at,
			last_review_at = EXCLUDED.last_review_at,
			last_confidence = EXCLUDED.last_confidence,
			is_leech = EXCLUDED.is_leech,
			version = EXCLUDED.version,
			synced_version = EXCLUDED.synced_version,
			mastered_at = EXCLUDED.mastered_at,
			updated_at = EXCLUDED.updated_at`,
		state.UserID, state.ItemID, state.Repetitions, state.Lapses,
		state.IntervalDays, state.EaseFactor, state.DueAt, state.LastReviewAt,
		state.LastConfidence, state.IsLeech, state.Version, state.SyncedVersion,
		state.MasteredAt, state.CreatedAt, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule state: %w", err)
	}
	return nil
}

// CountDue returns how many of a user's items are due at the given time.
// Used by the reminder scheduler.
func (r *ScheduleRepository) CountDue(ctx context.Context, userID int64, now time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM schedule_states WHERE user_id = $1 AND due_at <= $2 AND last_review_at IS NOT NULL",
		userID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to count due items: %w", err)
	}
	return count, nil
}
