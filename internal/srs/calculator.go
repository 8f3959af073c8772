package srs

import (
	"math"
	"time"

	"github.com/example/kioku/pkg/models"
)

// Tuning constants for the confidence-weighted two-factor update.
const (
	// MinEase is the floor for the ease factor; below this every item
	// degenerates into daily review.
	MinEase = 1.3
	// MaxEase caps how easy an item can get.
	MaxEase = 2.5
	// EasePenalty is subtracted from the ease factor on a lapse.
	EasePenalty = 0.2
	// ConfidenceWeight scales how far self-reported confidence moves the
	// ease factor on a correct answer.
	ConfidenceWeight = 0.3
	// FirstIntervalDays is the spacing after the first correct review.
	FirstIntervalDays = 1.0
	// MinIntervalDays is one hour, supporting same-day re-reviews.
	MinIntervalDays = 1.0 / 24.0
	// MaxIntervalDays caps spacing at one year.
	MaxIntervalDays = 365.0
	// MasteryRepetitions and MasteryIntervalDays together define the
	// mastery milestone.
	MasteryRepetitions  = 8
	MasteryIntervalDays = 21.0
)

// Outcome is one answered review: binary correctness plus the learner's
// self-reported confidence in [0,1].
type Outcome struct {
	Correct    bool
	Confidence float64
	Now        time.Time
}

// ComputeNext applies a review outcome to a schedule state and returns the
// next state. It is pure and total: the input is never mutated, out-of-range
// confidence is clamped rather than rejected, and no input produces an error.
func ComputeNext(state models.ScheduleState, out Outcome) models.ScheduleState {
	next := state.Clone()
	conf := clamp(out.Confidence, 0, 1)

	if out.Correct {
		next.Repetitions++
		// High confidence nudges ease up; a low-confidence correct answer
		// (lucky guess) nudges it down or leaves it flat.
		delta := (conf - 0.5) * ConfidenceWeight
		next.EaseFactor = clamp(next.EaseFactor+delta, MinEase, MaxEase)
		if next.Repetitions == 1 {
			next.IntervalDays = FirstIntervalDays
		} else {
			next.IntervalDays = next.IntervalDays * next.EaseFactor
		}
		if next.IntervalDays > MaxIntervalDays {
			next.IntervalDays = MaxIntervalDays
		}
	} else {
		next.Repetitions = 0
		next.Lapses++
		next.EaseFactor = math.Max(MinEase, next.EaseFactor-EasePenalty)
		next.IntervalDays = next.IntervalDays * 0.5
	}
	if next.IntervalDays < MinIntervalDays {
		next.IntervalDays = MinIntervalDays
	}

	// DueAt is always derived from the interval and the triggering review.
	next.DueAt = AddInterval(out.Now, next.IntervalDays)
	reviewedAt := out.Now
	next.LastReviewAt = &reviewedAt
	next.LastConfidence = conf
	next.Version++
	next.UpdatedAt = out.Now

	// Mastery is a milestone, not a terminal state: already-mastered items
	// keep updating interval and due date.
	if next.MasteredAt == nil &&
		next.Repetitions >= MasteryRepetitions &&
		next.IntervalDays >= MasteryIntervalDays {
		masteredAt := out.Now
		next.MasteredAt = &masteredAt
	}

	return next
}

// AddInterval advances a timestamp by a fractional day count. Whole days
// advance by calendar date so the wall-clock hour survives DST transitions;
// only the fractional remainder is added as absolute duration.
func AddInterval(t time.Time, days float64) time.Time {
	whole := int(days)
	frac := days - float64(whole)
	return t.AddDate(0, 0, whole).Add(time.Duration(frac * 24 * float64(time.Hour)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
