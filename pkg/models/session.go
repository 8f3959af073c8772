package models

import "time"

// Answer is one recorded outcome within a session. A skipped item has
// Skipped set and mutates no schedule state.
type Answer struct {
	ItemID     int64     `json:"item_id"`
	Correct    bool      `json:"correct"`
	Skipped    bool      `json:"skipped"`
	Confidence float64   `json:"confidence"`
	AnsweredAt time.Time `json:"answered_at"`
}

// SessionRecord is the ephemeral log of one review session. It exists to
// produce session aggregates and is not persisted beyond summary counters.
type SessionRecord struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	Answers   []Answer  `json:"answers"`
}

// CorrectCount returns the number of answers marked correct.
func (r SessionRecord) CorrectCount() int {
	n := 0
	for _, a := range r.Answers {
		if !a.Skipped && a.Correct {
			n++
		}
	}
	return n
}

// IncorrectCount returns the number of answers marked incorrect.
func (r SessionRecord) IncorrectCount() int {
	n := 0
	for _, a := range r.Answers {
		if !a.Skipped && !a.Correct {
			n++
		}
	}
	return n
}

// SkippedCount returns the number of skipped items.
func (r SessionRecord) SkippedCount() int {
	n := 0
	for _, a := range r.Answers {
		if a.Skipped {
			n++
		}
	}
	return n
}

// Accuracy returns the fraction of answered (non-skipped) items that were
// correct, or 0 if nothing was answered.
func (r SessionRecord) Accuracy() float64 {
	answered := r.CorrectCount() + r.IncorrectCount()
	if answered == 0 {
		return 0
	}
	return float64(r.CorrectCount()) / float64(answered)
}
