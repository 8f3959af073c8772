package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/kioku/pkg/models"
)

// ItemRepository handles database operations for review items.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new repository instance.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// itemRow mirrors the review_items table; list membership is stored as a
// comma-separated id list.
type itemRow struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	ContentType string    `db:"content_type"`
	Front       string    `db:"front"`
	Back        string    `db:"back"`
	Reading     string    `db:"reading"`
	ListIDs     string    `db:"list_ids"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r itemRow) toModel() models.ReviewItem {
	return models.ReviewItem{
		ID:          r.ID,
		UserID:      r.UserID,
		ContentType: models.ContentType(r.ContentType),
		Front:       r.Front,
		Back:        r.Back,
		Reading:     r.Reading,
		ListIDs:     parseListIDs(r.ListIDs),
		CreatedAt:   r.CreatedAt,
	}
}

// Create inserts a new review item and sets its generated id.
func (r *ItemRepository) Create(ctx context.Context, item *models.ReviewItem) error {
	if !models.ValidContentType(item.ContentType) {
		return fmt.Errorf("%w: invalid content type %q", ErrValidation, item.ContentType)
	}
	if strings.TrimSpace(item.Front) == "" {
		return fmt.Errorf("%w: review item needs a front side", ErrValidation)
	}

	if r.db.DriverName() == "postgres" {
		query := `
			INSERT INTO review_items (user_id, content_type, front, back, reading, list_ids, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		return r.db.QueryRowContext(ctx, query,
			item.UserID, string(item.ContentType), item.Front, item.Back,
			item.Reading, joinListIDs(item.ListIDs), item.CreatedAt,
		).Scan(&item.ID)
	}

	// SQLite path: no RETURNING on this driver version.
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO review_items (user_id, content_type, front, back, reading, list_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.UserID, string(item.ContentType), item.Front, item.Back,
		item.Reading, joinListIDs(item.ListIDs), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create review item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	item.ID = id
	return nil
}

// GetByID returns a single review item.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.ReviewItem, error) {
	var row itemRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM review_items WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review item: %w", err)
	}
	item := row.toModel()
	return &item, nil
}

// GetByUser returns all of a user's review items.
func (r *ItemRepository) GetByUser(ctx context.Context, userID int64) ([]models.ReviewItem, error) {
	var rows []itemRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM review_items WHERE user_id = $1 ORDER BY created_at, id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review items: %w", err)
	}
	items := make([]models.ReviewItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

// Delete removes an item and cascades its schedule state and lapse log.
// Only explicit user removal reaches this path.
func (r *ItemRepository) Delete(ctx context.Context, userID, itemID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM review_events WHERE user_id = $1 AND item_id = $2",
		"DELETE FROM schedule_states WHERE user_id = $1 AND item_id = $2",
		"DELETE FROM review_items WHERE user_id = $1 AND id = $2",
	} {
		if _, err := tx.ExecContext(ctx, stmt, userID, itemID); err != nil {
			return fmt.Errorf("failed to delete review item: %w", err)
		}
	}
	return tx.Commit()
}

func joinListIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func parseListIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
