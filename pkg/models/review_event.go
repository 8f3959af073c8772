package models

import "time"

// ReviewEvent is one row of the per-item lapse log: a committed review and
// whether it was correct. The log is append-only and bounded to the leech
// detector's rolling window per item.
type ReviewEvent struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	ItemID     int64     `json:"item_id" db:"item_id"`
	Correct    bool      `json:"correct" db:"correct"`
	ReviewedAt time.Time `json:"reviewed_at" db:"reviewed_at"`
}

// ReviewDay is a per-user daily summary counter, the only persisted trace of
// session history. Streaks and trailing accuracy derive from these rows.
type ReviewDay struct {
	UserID   int64  `json:"user_id" db:"user_id"`
	Day      string `json:"day" db:"day"` // local calendar day, formatted 2006-01-02
	Reviewed int    `json:"reviewed" db:"reviewed"`
	Correct  int    `json:"correct" db:"correct"`
}
