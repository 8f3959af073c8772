package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/kioku/internal/srs"
	"github.com/example/kioku/pkg/models"
)

// ErrSessionDone is returned when answering a finished or aborted session.
var ErrSessionDone = errors.New("session: no item awaiting an answer")

// Committer is the single write path for schedule state. In production this
// is the sync coordinator.
type Committer interface {
	Commit(ctx context.Context, state models.ScheduleState) error
}

// EventLog records committed reviews for leech evaluation. Recent returns up
// to limit events ordered oldest to newest.
type EventLog interface {
	Append(ctx context.Context, ev models.ReviewEvent) error
	Recent(ctx context.Context, userID, itemID int64, limit int) ([]models.ReviewEvent, error)
}

// Runner starts review sessions. It is a pure sequencer: it never shows
// items or runs timers, it just accepts one outcome per queued item, applies
// the schedule calculator and commits the result before advancing.
type Runner struct {
	committer Committer
	events    EventLog
	now       func() time.Time
}

// NewRunner creates a runner. The clock is injectable for deterministic
// tests; pass time.Now in production.
func NewRunner(committer Committer, events EventLog, now func() time.Time) *Runner {
	return &Runner{committer: committer, events: events, now: now}
}

// Session is one in-flight review session. It holds an exclusive working
// copy of each queued item's schedule state; nothing touches the store
// except through the committer, one commit per answer.
type Session struct {
	runner *Runner
	userID int64
	loc    *time.Location
	queue  models.QueueSnapshot
	states map[int64]models.ScheduleState
	record models.SessionRecord
	pos    int
}

// Start opens a session over a queue snapshot. The states map supplies the
// working copies; queued items missing from it are skipped over when reached.
// Review timestamps are taken in loc, the user's timezone, so day-keyed
// counters (streaks, trailing accuracy) roll over at the user's local
// midnight rather than the server's.
func (r *Runner) Start(userID int64, loc *time.Location, queue models.QueueSnapshot, states map[int64]models.ScheduleState) *Session {
	if loc == nil {
		loc = time.UTC
	}
	copies := make(map[int64]models.ScheduleState, len(states))
	for id, s := range states {
		copies[id] = s.Clone()
	}
	return &Session{
		runner: r,
		userID: userID,
		loc:    loc,
		queue:  queue,
		states: copies,
		record: models.SessionRecord{
			SessionID: uuid.New().String(),
			UserID:    userID,
			StartedAt: r.now().In(loc),
		},
	}
}

// Current returns the item awaiting an answer, or ok=false when the queue is
// exhausted.
func (s *Session) Current() (itemID int64, ok bool) {
	if s.pos >= len(s.queue.Entries) {
		return 0, false
	}
	return s.queue.Entries[s.pos].ItemID, true
}

// Answer applies one outcome to the current item: the calculator produces
// the next state, the leech flag is re-derived from recent history, and the
// result is committed immediately. The session only advances on a successful
// commit, so an aborted session never loses an answered review and a failed
// commit can simply be retried.
func (s *Session) Answer(ctx context.Context, correct bool, confidence float64) error {
	itemID, ok := s.Current()
	if !ok {
		return ErrSessionDone
	}
	state, ok := s.states[itemID]
	if !ok {
		// No working copy for this entry; treat as a skip.
		s.Skip()
		return nil
	}

	now := s.runner.now().In(s.loc)
	next := srs.ComputeNext(state, srs.Outcome{Correct: correct, Confidence: confidence, Now: now})

	event := models.ReviewEvent{
		UserID:     s.userID,
		ItemID:     itemID,
		Correct:    correct,
		ReviewedAt: now,
	}
	history, err := s.runner.events.Recent(ctx, s.userID, itemID, srs.LeechWindow)
	if err != nil {
		// Leech status is a derived hint; an unreadable log must not block
		// the review itself.
		history = nil
	}
	next.IsLeech = srs.EvaluateLeech(next, append(history, event))

	if err := s.runner.committer.Commit(ctx, next); err != nil {
		return fmt.Errorf("committing review for item %d: %w", itemID, err)
	}
	if err := s.runner.events.Append(ctx, event); err != nil {
		// The review is committed; a lost log row only delays leech
		// detection by one review.
		log.Printf("failed to append review event for item %d: %v", itemID, err)
	}

	s.states[itemID] = next
	s.record.Answers = append(s.record.Answers, models.Answer{
		ItemID:     itemID,
		Correct:    correct,
		Confidence: confidence,
		AnsweredAt: now,
	})
	s.pos++
	return nil
}

// Skip records an explicit skip: neither correct nor incorrect, and no
// schedule state mutation.
func (s *Session) Skip() {
	itemID, ok := s.Current()
	if !ok {
		return
	}
	s.record.Answers = append(s.record.Answers, models.Answer{
		ItemID:     itemID,
		Skipped:    true,
		AnsweredAt: s.runner.now().In(s.loc),
	})
	s.pos++
}

// Abort ends the session early. Every already-answered item was committed at
// answer time, so nothing is rolled back or lost.
func (s *Session) Abort() models.SessionRecord {
	s.pos = len(s.queue.Entries)
	return s.record
}

// Record returns the session log so far.
func (s *Session) Record() models.SessionRecord {
	return s.record
}

// Remaining returns how many queued items have not been answered or skipped.
func (s *Session) Remaining() int {
	return len(s.queue.Entries) - s.pos
}

// State returns the session's current working copy for an item.
func (s *Session) State(itemID int64) (models.ScheduleState, bool) {
	st, ok := s.states[itemID]
	return st, ok
}
