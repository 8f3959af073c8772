package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/kioku/internal/database"
	"github.com/example/kioku/internal/entitlement"
	"github.com/example/kioku/internal/importer"
	"github.com/example/kioku/internal/progress"
	"github.com/example/kioku/internal/queue"
	"github.com/example/kioku/internal/session"
	"github.com/example/kioku/internal/syncer"
	"github.com/example/kioku/pkg/models"
)

// Engine is the scheduling core's public surface: queue building under the
// daily budget, session running, progress projections, sync and reset. All
// state writes funnel through the sync coordinator.
type Engine struct {
	items       *database.ItemRepository
	schedules   *database.ScheduleRepository
	history     *database.HistoryRepository
	users       *database.UserRepository
	coordinator *syncer.Coordinator
	ledger      *entitlement.Ledger
	runner      *session.Runner
	importer    *importer.Importer
	now         func() time.Time

	mu         sync.Mutex
	lastQueues map[int64]models.QueueSnapshot // last built snapshot per user
}

// New wires the engine over the local store and coordinator. The clock is
// injectable for deterministic tests.
func New(local *database.Repos, coordinator *syncer.Coordinator, now func() time.Time) *Engine {
	return &Engine{
		items:       local.Items,
		schedules:   local.Schedules,
		history:     local.History,
		users:       local.Users,
		coordinator: coordinator,
		ledger:      entitlement.NewLedger(local.History, now),
		runner:      session.NewRunner(coordinator, local.History, now),
		importer:    importer.New(local.Items, local.Schedules, now),
		now:         now,
		lastQueues:  make(map[int64]models.QueueSnapshot),
	}
}

// BuildQueue assembles the user's review queue, capped by what is left of
// today's draw budget in the user's timezone. The drawn entries are charged
// against the budget. An exhausted budget yields an empty snapshot, not an
// error.
func (e *Engine) BuildQueue(ctx context.Context, userID int64, filters queue.Filters) (models.QueueSnapshot, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return models.QueueSnapshot{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	budget, err := e.ledger.Remaining(ctx, *user)
	if err != nil {
		return models.QueueSnapshot{}, err
	}

	states, err := e.schedules.ListScheduleStates(ctx, userID)
	if err != nil {
		return e.lastQueue(userID, err)
	}
	items, err := e.itemsByID(ctx, userID)
	if err != nil {
		return e.lastQueue(userID, err)
	}

	now := e.now().In(user.Location())
	snap := queue.Build(states, items, now, filters, budget)

	if err := e.ledger.Record(ctx, *user, snap.Len()); err != nil {
		return models.QueueSnapshot{}, err
	}
	e.mu.Lock()
	e.lastQueues[userID] = snap
	e.mu.Unlock()
	return snap, nil
}

// lastQueue degrades a failed queue build to the last-known-good snapshot so
// a transient storage hiccup does not blank the user's session. With no prior
// snapshot the error stands.
func (e *Engine) lastQueue(userID int64, err error) (models.QueueSnapshot, error) {
	e.mu.Lock()
	snap, ok := e.lastQueues[userID]
	e.mu.Unlock()
	if !ok {
		return models.QueueSnapshot{}, err
	}
	return snap, nil
}

// StartSession opens a review session over a queue snapshot, loading a
// working copy of each queued item's state. The session runs on the user's
// clock so committed reviews land on the user's calendar day.
func (e *Engine) StartSession(ctx context.Context, userID int64, snap models.QueueSnapshot) (*session.Session, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	states := make(map[int64]models.ScheduleState, snap.Len())
	for _, entry := range snap.Entries {
		state, err := e.schedules.GetScheduleState(ctx, userID, entry.ItemID)
		if err != nil {
			return nil, err
		}
		if state != nil {
			states[entry.ItemID] = *state
		}
	}
	return e.runner.Start(userID, user.Location(), snap, states), nil
}

// Summary computes the dashboard projection for a user on demand.
func (e *Engine) Summary(ctx context.Context, userID int64) (progress.Summary, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return progress.Summary{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	states, err := e.schedules.ListScheduleStates(ctx, userID)
	if err != nil {
		return progress.Summary{}, err
	}
	items, err := e.itemsByID(ctx, userID)
	if err != nil {
		return progress.Summary{}, err
	}
	days, err := e.history.AllDays(ctx, userID)
	if err != nil {
		return progress.Summary{}, err
	}
	return progress.Summarize(states, items, days, e.now().In(user.Location())), nil
}

// Reconcile merges offline progress with the remote store.
func (e *Engine) Reconcile(ctx context.Context, userID int64) error {
	return e.coordinator.Reconcile(ctx, userID)
}

// ResetProgress wipes one item's schedule back to its initial state.
func (e *Engine) ResetProgress(ctx context.Context, userID, itemID int64) error {
	return e.coordinator.Reset(ctx, userID, itemID, e.now())
}

// ImportDeck loads flashcards from an Excel or CSV deck file, creating each
// card with a fresh schedule state.
func (e *Engine) ImportDeck(ctx context.Context, userID int64, config importer.ImportConfig) (*importer.ImportResult, error) {
	return e.importer.ImportDeck(ctx, userID, config)
}

// Unsaved reports whether committed progress is still waiting to reach the
// remote store.
func (e *Engine) Unsaved() bool {
	return e.coordinator.Unsaved()
}

func (e *Engine) itemsByID(ctx context.Context, userID int64) (map[int64]models.ReviewItem, error) {
	list, err := e.items.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.ReviewItem, len(list))
	for _, item := range list {
		byID[item.ID] = item
	}
	return byID, nil
}
