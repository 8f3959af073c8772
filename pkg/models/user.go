package models

import "time"

// SubscriptionTier gates how many queue draws a user gets per day.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
)

// User represents a learner. ID doubles as the Telegram chat id for
// reminder notifications.
type User struct {
	ID                  int64            `json:"id" db:"id"`
	Username            string           `json:"username" db:"username"`
	Tier                SubscriptionTier `json:"tier" db:"tier"`
	Timezone            string           `json:"timezone" db:"timezone"` // IANA name; daily budgets reset at local midnight
	NotificationEnabled bool             `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int              `json:"notification_hour" db:"notification_hour"` // hour of day (0-23)
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
}

// Location resolves the user's timezone, falling back to UTC when the name
// is empty or unknown.
func (u User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
