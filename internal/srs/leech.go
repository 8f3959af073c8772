package srs

import "github.com/example/kioku/pkg/models"

// Leech detection over the rolling lapse log.
const (
	// LeechWindow is how many recent reviews are considered.
	LeechWindow = 10
	// LeechLapseThreshold is the failure count within the window that
	// flags an item.
	LeechLapseThreshold = 4
	// LeechRepetitionCeiling: only items still young in the schedule can
	// become leeches.
	LeechRepetitionCeiling = 3
	// LeechClearStreak is the number of consecutive correct reviews that
	// clears the flag.
	LeechClearStreak = 3
)

// EvaluateLeech derives leech status from the item's recent review history.
// Events must be ordered oldest to newest; only the last LeechWindow entries
// count. The result is a pure derivation, recomputed on every review and
// never hand-toggled.
func EvaluateLeech(state models.ScheduleState, events []models.ReviewEvent) bool {
	if len(events) > LeechWindow {
		events = events[len(events)-LeechWindow:]
	}

	// A run of consecutive correct answers at the tail clears the flag
	// regardless of how bad the earlier window looks.
	streak := 0
	for i := len(events) - 1; i >= 0 && events[i].Correct; i-- {
		streak++
	}
	if streak >= LeechClearStreak {
		return false
	}

	lapses := 0
	for _, e := range events {
		if !e.Correct {
			lapses++
		}
	}
	return lapses >= LeechLapseThreshold && state.Repetitions < LeechRepetitionCeiling
}
