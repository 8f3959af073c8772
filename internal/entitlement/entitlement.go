package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/example/kioku/pkg/models"
)

// Daily queue draw budgets per subscription tier.
const (
	FreeDailyBudget    = 20
	PremiumDailyBudget = 200
)

// DailyBudget returns the queue draw allowance for a tier. Unknown tiers get
// the free allowance.
func DailyBudget(tier models.SubscriptionTier) int {
	if tier == models.TierPremium {
		return PremiumDailyBudget
	}
	return FreeDailyBudget
}

// DrawStore persists per-user draw counts keyed by local calendar day. The
// day key rolls over at the user's local midnight, which is the whole budget
// reset mechanism: a new day key starts at zero.
type DrawStore interface {
	DrawsOn(ctx context.Context, userID int64, day string) (int, error)
	AddDraws(ctx context.Context, userID int64, day string, n int) error
}

// Ledger tracks queue draws against the daily budget.
type Ledger struct {
	store DrawStore
	now   func() time.Time
}

// NewLedger creates a draw ledger. The clock is injectable for tests.
func NewLedger(store DrawStore, now func() time.Time) *Ledger {
	return &Ledger{store: store, now: now}
}

// Remaining returns how much of the user's daily budget is left today, in
// the user's timezone. Never negative.
func (l *Ledger) Remaining(ctx context.Context, user models.User) (int, error) {
	day := l.localDay(user)
	used, err := l.store.DrawsOn(ctx, user.ID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to read draws for user %d: %w", user.ID, err)
	}
	left := DailyBudget(user.Tier) - used
	if left < 0 {
		left = 0
	}
	return left, nil
}

// Record charges n draws against today's budget.
func (l *Ledger) Record(ctx context.Context, user models.User, n int) error {
	if n <= 0 {
		return nil
	}
	day := l.localDay(user)
	if err := l.store.AddDraws(ctx, user.ID, day, n); err != nil {
		return fmt.Errorf("failed to record draws for user %d: %w", user.ID, err)
	}
	return nil
}

func (l *Ledger) localDay(user models.User) string {
	return l.now().In(user.Location()).Format("2006-01-02")
}
