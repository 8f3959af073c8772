package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Sentinel errors for the storage layer. Check with errors.Is.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("database: not found")
	// ErrValidation is returned for structurally invalid writes, before
	// anything is mutated.
	ErrValidation = errors.New("database: validation failed")
)

// Open connects to the local SQLite store, creating the file and schema on
// first use. This store is authoritative while offline.
func Open(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite doesn't support multiple writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initializeSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenRemote connects to the remote Postgres store used for cross-device
// sync. The schema is created if missing.
func OpenRemote(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to remote database: %w", err)
	}
	if err := initializeSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// initializeSchema creates the tables if they don't exist. Statements stick
// to the subset both SQLite and Postgres accept; the id and timestamp column
// types differ per driver.
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	timestamp := "TIMESTAMP"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
		timestamp = "TIMESTAMPTZ"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			tier TEXT NOT NULL DEFAULT 'free',
			timezone TEXT NOT NULL DEFAULT '',
			notification_enabled BOOLEAN NOT NULL DEFAULT true,
			notification_hour INTEGER NOT NULL DEFAULT 9,
			created_at ` + timestamp + ` NOT NULL,
			updated_at ` + timestamp + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS review_items (
			id ` + serial + `,
			user_id BIGINT NOT NULL,
			content_type TEXT NOT NULL,
			front TEXT NOT NULL,
			back TEXT NOT NULL DEFAULT '',
			reading TEXT NOT NULL DEFAULT '',
			list_ids TEXT NOT NULL DEFAULT '',
			created_at ` + timestamp + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_states (
			user_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			repetitions INTEGER NOT NULL DEFAULT 0,
			lapses INTEGER NOT NULL DEFAULT 0,
			interval_days REAL NOT NULL DEFAULT 1,
			ease_factor REAL NOT NULL DEFAULT 2.5,
			due_at ` + timestamp + ` NOT NULL,
			last_review_at ` + timestamp + `,
			last_confidence REAL NOT NULL DEFAULT 0,
			is_leech BOOLEAN NOT NULL DEFAULT false,
			version BIGINT NOT NULL DEFAULT 0,
			synced_version BIGINT NOT NULL DEFAULT 0,
			mastered_at ` + timestamp + `,
			created_at ` + timestamp + ` NOT NULL,
			updated_at ` + timestamp + ` NOT NULL,
			PRIMARY KEY (user_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS review_events (
			id ` + serial + `,
			user_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			correct BOOLEAN NOT NULL,
			reviewed_at ` + timestamp + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_review_events_item ON review_events(user_id, item_id, id)`,
		`CREATE TABLE IF NOT EXISTS review_days (
			user_id BIGINT NOT NULL,
			day TEXT NOT NULL,
			reviewed INTEGER NOT NULL DEFAULT 0,
			correct INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_draws (
			user_id BIGINT NOT NULL,
			day TEXT NOT NULL,
			draws INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, day)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
