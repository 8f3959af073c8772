package models

import "time"

// QueueReason tags why an item was placed in a review queue.
type QueueReason string

const (
	ReasonLeechBoost QueueReason = "leechBoost"
	ReasonOverdue    QueueReason = "overdue"
	ReasonDueToday   QueueReason = "dueToday"
	ReasonNew        QueueReason = "new"
)

// QueueEntry is one slot in a queue snapshot.
type QueueEntry struct {
	ItemID int64       `json:"item_id"`
	Reason QueueReason `json:"reason"`
}

// QueueSnapshot is the ordered, budget-capped set of items for one review
// session. It is derived at build time and never persisted.
type QueueSnapshot struct {
	BuiltAt time.Time    `json:"built_at"`
	Entries []QueueEntry `json:"entries"`
}

// Len returns the number of queued entries.
func (q QueueSnapshot) Len() int {
	return len(q.Entries)
}
