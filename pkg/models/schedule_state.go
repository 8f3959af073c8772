package models

import "time"

// DefaultEaseFactor is the starting difficulty multiplier for new items.
const DefaultEaseFactor = 2.5

// ScheduleState is the per-(user, item) scheduling record. It is the only
// mutable state the engine owns. All writes go through the sync coordinator;
// a session holds a short-lived working copy while one item is in flight.
type ScheduleState struct {
	UserID         int64      `json:"user_id" db:"user_id"`
	ItemID         int64      `json:"item_id" db:"item_id"`
	Repetitions    int        `json:"repetitions" db:"repetitions"`         // consecutive correct since last lapse
	Lapses         int        `json:"lapses" db:"lapses"`                   // lifetime incorrect count, never decreases
	IntervalDays   float64    `json:"interval_days" db:"interval_days"`     // current spacing, always > 0
	EaseFactor     float64    `json:"ease_factor" db:"ease_factor"`         // bounded to [1.3, 2.5]
	DueAt          time.Time  `json:"due_at" db:"due_at"`                   // derived from IntervalDays, never set directly
	LastReviewAt   *time.Time `json:"last_review_at" db:"last_review_at"`   // nil until first review
	LastConfidence float64    `json:"last_confidence" db:"last_confidence"` // last self-reported value in [0,1]
	IsLeech        bool       `json:"is_leech" db:"is_leech"`               // derived from recent lapse history
	Version        int64      `json:"version" db:"version"`                 // bumped on every local mutation
	SyncedVersion  int64      `json:"-" db:"synced_version"`                // device-local: last version acked by the remote
	MasteredAt     *time.Time `json:"mastered_at" db:"mastered_at"`         // set once, cleared only by explicit reset
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// NewScheduleState returns the initial state for an item saved at the given
// time. The item is immediately reviewable.
func NewScheduleState(userID, itemID int64, now time.Time) ScheduleState {
	return ScheduleState{
		UserID:       userID,
		ItemID:       itemID,
		IntervalDays: 1,
		EaseFactor:   DefaultEaseFactor,
		DueAt:        now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsNew reports whether the item has never been reviewed.
func (s ScheduleState) IsNew() bool {
	return s.LastReviewAt == nil
}

// Clone returns a deep copy. Pointer fields are copied by value.
func (s ScheduleState) Clone() ScheduleState {
	out := s
	if s.LastReviewAt != nil {
		v := *s.LastReviewAt
		out.LastReviewAt = &v
	}
	if s.MasteredAt != nil {
		v := *s.MasteredAt
		out.MasteredAt = &v
	}
	return out
}
