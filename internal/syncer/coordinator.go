package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/kioku/pkg/models"
)

// Sentinel errors for the syncer package. Check with errors.Is.
var (
	// ErrConflict marks a version divergence between two copies of one
	// state. It is resolved internally by Merge and never returned from
	// Commit.
	ErrConflict = errors.New("syncer: schedule state version conflict")
	// ErrStorage marks a persistence failure that survived all retries.
	ErrStorage = errors.New("syncer: storage unavailable")
)

// Store is the persistence surface the coordinator writes through. The local
// store is authoritative until a remote push is acknowledged.
type Store interface {
	GetScheduleState(ctx context.Context, userID, itemID int64) (*models.ScheduleState, error)
	ListScheduleStates(ctx context.Context, userID int64) ([]models.ScheduleState, error)
	UpsertScheduleState(ctx context.Context, state *models.ScheduleState) error
}

// Coordinator owns every ScheduleState write. Sessions commit through it one
// answer at a time; it reconciles offline mutations against the remote copy
// without ever regressing a user's progress.
type Coordinator struct {
	local   Store
	remote  Store // nil means offline-only
	retries int
	backoff time.Duration
	sleep   func(time.Duration) // injectable for tests

	mu      sync.Mutex
	unsaved bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRetries sets how many attempts each storage operation gets.
func WithRetries(n int) Option {
	return func(c *Coordinator) { c.retries = n }
}

// WithBackoff sets the initial retry delay; it doubles per attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *Coordinator) { c.backoff = d }
}

func withSleep(fn func(time.Duration)) Option {
	return func(c *Coordinator) { c.sleep = fn }
}

// New creates a coordinator over a local store and an optional remote store.
func New(local Store, remote Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:   local,
		remote:  remote,
		retries: 3,
		backoff: 200 * time.Millisecond,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Merge resolves two copies of the same schedule state. Equal versions mean
// no conflict and the local copy wins. Divergent versions resolve to the
// copy with more repetitions; on a tie, the later due date. A copy with
// strictly fewer repetitions never wins, whatever its version says, so
// progress is monotonic from the user's point of view. Lifetime lapse count
// and the mastery timestamp survive the merge from either side.
func Merge(local, remote models.ScheduleState) models.ScheduleState {
	if local.Version == remote.Version {
		return local.Clone()
	}
	return resolve(local, remote)
}

// resolve applies the progress comparison without Merge's equal-version
// short-circuit. Commit uses it directly when two sessions on one device
// raced to the same version from the same base.
func resolve(local, remote models.ScheduleState) models.ScheduleState {
	var winner models.ScheduleState
	switch {
	case local.Repetitions != remote.Repetitions:
		if local.Repetitions > remote.Repetitions {
			winner = local.Clone()
		} else {
			winner = remote.Clone()
		}
	case !local.DueAt.Equal(remote.DueAt):
		if local.DueAt.After(remote.DueAt) {
			winner = local.Clone()
		} else {
			winner = remote.Clone()
		}
	default:
		if local.Version > remote.Version {
			winner = local.Clone()
		} else {
			winner = remote.Clone()
		}
	}

	// Versions converge upward so a re-merge of the same pair is stable.
	if remote.Version > winner.Version {
		winner.Version = remote.Version
	}
	if local.Version > winner.Version {
		winner.Version = local.Version
	}
	// Lapses are lifetime-monotonic regardless of which copy won.
	if remote.Lapses > winner.Lapses {
		winner.Lapses = remote.Lapses
	}
	if local.Lapses > winner.Lapses {
		winner.Lapses = local.Lapses
	}
	// Mastery, once reached anywhere, is never lost to a merge.
	if winner.MasteredAt == nil {
		if local.MasteredAt != nil {
			v := *local.MasteredAt
			winner.MasteredAt = &v
		} else if remote.MasteredAt != nil {
			v := *remote.MasteredAt
			winner.MasteredAt = &v
		}
	}
	return winner
}

// Commit persists a mutated schedule state. The local write must succeed
// (after retries) or the review is not considered committed and an error
// wrapping ErrStorage is returned. The remote push is best-effort: a
// persistent remote failure only flips the Unsaved flag, to be retried by a
// later commit or Reconcile.
func (c *Coordinator) Commit(ctx context.Context, state models.ScheduleState) error {
	merged := state
	current, err := c.local.GetScheduleState(ctx, state.UserID, state.ItemID)
	if err == nil && current != nil && current.Version >= state.Version {
		// Another session got here first: the stored row is as new or
		// newer than the base this mutation was computed from. A plain
		// sequential commit arrives with Version == current.Version+1 and
		// is written as-is, lapses included. Equal versions mean two
		// sessions raced from the same base, so the progress rule decides
		// instead of the later writer silently winning.
		merged = resolve(state, *current)
	}

	err = c.withRetry(ctx, func() error {
		m := merged
		return c.local.UpsertScheduleState(ctx, &m)
	})
	if err != nil {
		return fmt.Errorf("%w: local commit for item %d: %v", ErrStorage, state.ItemID, err)
	}

	if c.remote == nil {
		return nil
	}
	if err := c.push(ctx, merged); err != nil {
		log.Printf("remote push failed for item %d, keeping local state authoritative: %v", merged.ItemID, err)
		c.setUnsaved(true)
		return nil
	}
	c.setUnsaved(false)
	return nil
}

// push merges against the remote copy and writes the result back to both
// sides so they converge. Divergence is detected against SyncedVersion, the
// base this device last agreed on with the remote: a remote copy still at
// that base has seen no foreign mutation, so local history (including
// lapses, which legitimately lower repetitions) overwrites it outright. Any
// other remote version means another device pushed in between, and the
// progress-monotonic Merge decides.
func (c *Coordinator) push(ctx context.Context, state models.ScheduleState) error {
	var remoteCopy *models.ScheduleState
	err := c.withRetry(ctx, func() error {
		var getErr error
		remoteCopy, getErr = c.remote.GetScheduleState(ctx, state.UserID, state.ItemID)
		return getErr
	})
	if err != nil {
		return err
	}

	merged := state
	if remoteCopy != nil && remoteCopy.Version != state.SyncedVersion {
		merged = Merge(state, *remoteCopy)
	}

	if err := c.withRetry(ctx, func() error {
		m := merged
		return c.remote.UpsertScheduleState(ctx, &m)
	}); err != nil {
		return err
	}

	// Record the acked base and reflect any progress the merge pulled in.
	merged.SyncedVersion = merged.Version
	return c.withRetry(ctx, func() error {
		m := merged
		return c.local.UpsertScheduleState(ctx, &m)
	})
}

// Reconcile merges every remote state for the user into the local store and
// pushes local-only progress back up. Used after reconnecting.
func (c *Coordinator) Reconcile(ctx context.Context, userID int64) error {
	if c.remote == nil {
		return nil
	}

	var remoteStates []models.ScheduleState
	err := c.withRetry(ctx, func() error {
		var listErr error
		remoteStates, listErr = c.remote.ListScheduleStates(ctx, userID)
		return listErr
	})
	if err != nil {
		return fmt.Errorf("%w: listing remote states: %v", ErrStorage, err)
	}

	remoteByItem := make(map[int64]models.ScheduleState, len(remoteStates))
	for _, rs := range remoteStates {
		remoteByItem[rs.ItemID] = rs
	}

	localStates, err := c.local.ListScheduleStates(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: listing local states: %v", ErrStorage, err)
	}

	for _, ls := range localStates {
		rs, ok := remoteByItem[ls.ItemID]
		if !ok {
			// Local-only progress: push up.
			if err := c.push(ctx, ls); err != nil {
				c.setUnsaved(true)
				return fmt.Errorf("%w: pushing item %d: %v", ErrStorage, ls.ItemID, err)
			}
			continue
		}
		delete(remoteByItem, ls.ItemID)

		merged := ls
		if rs.Version != ls.SyncedVersion {
			merged = Merge(ls, rs)
		}
		merged.SyncedVersion = merged.Version
		if err := c.withRetry(ctx, func() error {
			m := merged
			return c.remote.UpsertScheduleState(ctx, &m)
		}); err != nil {
			c.setUnsaved(true)
			return fmt.Errorf("%w: pushing merged item %d: %v", ErrStorage, ls.ItemID, err)
		}
		if err := c.withRetry(ctx, func() error {
			m := merged
			return c.local.UpsertScheduleState(ctx, &m)
		}); err != nil {
			return fmt.Errorf("%w: merging item %d locally: %v", ErrStorage, ls.ItemID, err)
		}
	}

	// Remote-only states: pull down.
	for _, rs := range remoteByItem {
		rs.SyncedVersion = rs.Version
		if err := c.withRetry(ctx, func() error {
			m := rs
			return c.local.UpsertScheduleState(ctx, &m)
		}); err != nil {
			return fmt.Errorf("%w: pulling item %d: %v", ErrStorage, rs.ItemID, err)
		}
	}

	c.setUnsaved(false)
	return nil
}

// Reset wipes an item's progress back to the initial state. This is the only
// path that clears MasteredAt; normal review flow never does.
func (c *Coordinator) Reset(ctx context.Context, userID, itemID int64, now time.Time) error {
	fresh := models.NewScheduleState(userID, itemID, now)
	current, err := c.local.GetScheduleState(ctx, userID, itemID)
	if err == nil && current != nil {
		// Keep the version moving forward so the reset wins the next
		// version comparison on other devices.
		fresh.Version = current.Version + 1
		fresh.CreatedAt = current.CreatedAt
	}

	if err := c.withRetry(ctx, func() error {
		f := fresh
		return c.local.UpsertScheduleState(ctx, &f)
	}); err != nil {
		return fmt.Errorf("%w: resetting item %d: %v", ErrStorage, itemID, err)
	}
	if c.remote != nil {
		if err := c.withRetry(ctx, func() error {
			f := fresh
			return c.remote.UpsertScheduleState(ctx, &f)
		}); err != nil {
			log.Printf("remote reset push failed for item %d: %v", itemID, err)
			c.setUnsaved(true)
		}
	}
	return nil
}

// Unsaved reports whether some committed progress has not reached the remote
// store yet. This is the "changes not saved" indicator; the local copy is
// still authoritative and nothing has been lost.
func (c *Coordinator) Unsaved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsaved
}

func (c *Coordinator) setUnsaved(v bool) {
	c.mu.Lock()
	c.unsaved = v
	c.mu.Unlock()
}

// withRetry runs fn up to c.retries times with exponential backoff.
func (c *Coordinator) withRetry(ctx context.Context, fn func() error) error {
	delay := c.backoff
	var err error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			c.sleep(delay)
			delay *= 2
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
