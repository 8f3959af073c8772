package progress

import (
	"sort"
	"time"

	"github.com/example/kioku/pkg/models"
)

// DefaultAccuracyWindowDays is the trailing window for the accuracy figure.
const DefaultAccuracyWindowDays = 30

// Summary is the dashboard projection over a user's schedule states and
// daily review counters. It is recomputed on demand and never persisted, so
// it cannot drift from the underlying state.
type Summary struct {
	DueNow        int                            `json:"due_now"`
	DueToday      int                            `json:"due_today"` // includes due-now
	DueThisWeek   int                            `json:"due_this_week"`
	Later         int                            `json:"later"`
	NewItems      int                            `json:"new_items"`
	Leeches       int                            `json:"leeches"`
	Mastered      int                            `json:"mastered"`
	TotalItems    int                            `json:"total_items"`
	ByContentType map[models.ContentType]int     `json:"by_content_type"`
	CurrentStreak int                            `json:"current_streak"`
	BestStreak    int                            `json:"best_streak"`
	Accuracy      float64                        `json:"accuracy"` // trailing window, 0 when no reviews
}

// Summarize rolls per-item schedule state and per-day review counters into
// dashboard statistics. Day buckets and streaks use the location of now, the
// user's effective timezone.
func Summarize(states []models.ScheduleState, items map[int64]models.ReviewItem, days []models.ReviewDay, now time.Time) Summary {
	sum := Summary{ByContentType: make(map[models.ContentType]int)}

	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	endOfWeek := endOfDay.AddDate(0, 0, 6)

	for _, s := range states {
		sum.TotalItems++
		if item, ok := items[s.ItemID]; ok {
			sum.ByContentType[item.ContentType]++
		}
		if s.MasteredAt != nil {
			sum.Mastered++
		}
		if s.IsLeech {
			sum.Leeches++
		}
		if s.IsNew() {
			sum.NewItems++
			continue
		}
		switch {
		case s.DueAt.Before(now):
			sum.DueNow++
			sum.DueToday++
			sum.DueThisWeek++
		case s.DueAt.Before(endOfDay):
			sum.DueToday++
			sum.DueThisWeek++
		case s.DueAt.Before(endOfWeek):
			sum.DueThisWeek++
		default:
			sum.Later++
		}
	}

	sum.CurrentStreak, sum.BestStreak = streaks(days, now)
	sum.Accuracy = trailingAccuracy(days, now, DefaultAccuracyWindowDays)
	return sum
}

// streaks computes the current and best runs of consecutive calendar days
// with at least one committed review. The current streak tolerates today
// having no reviews yet; a gap before yesterday breaks it.
func streaks(days []models.ReviewDay, now time.Time) (current, best int) {
	active := make(map[string]bool, len(days))
	var keys []string
	for _, d := range days {
		if d.Reviewed > 0 && !active[d.Day] {
			active[d.Day] = true
			keys = append(keys, d.Day)
		}
	}
	if len(keys) == 0 {
		return 0, 0
	}
	sort.Strings(keys)

	run := 0
	var prev time.Time
	for _, k := range keys {
		day, err := time.ParseInLocation("2006-01-02", k, now.Location())
		if err != nil {
			continue
		}
		if run > 0 && day.Sub(prev) <= 36*time.Hour && day.After(prev) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
		prev = day
	}

	// The run ending at the most recent active day counts as current only
	// if that day is today or yesterday.
	today := dayKey(now)
	yesterday := dayKey(now.AddDate(0, 0, -1))
	last := keys[len(keys)-1]
	if last == today || last == yesterday {
		current = run
	}
	return current, best
}

// trailingAccuracy returns the correct fraction over the last windowDays of
// counters.
func trailingAccuracy(days []models.ReviewDay, now time.Time, windowDays int) float64 {
	cutoff := dayKey(now.AddDate(0, 0, -windowDays))
	reviewed, correct := 0, 0
	for _, d := range days {
		if d.Day >= cutoff {
			reviewed += d.Reviewed
			correct += d.Correct
		}
	}
	if reviewed == 0 {
		return 0
	}
	return float64(correct) / float64(reviewed)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
