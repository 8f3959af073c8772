package progress

import (
	"testing"
	"time"

	"github.com/example/kioku/pkg/models"
)

var testNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func stateDueIn(itemID int64, d time.Duration) models.ScheduleState {
	reviewed := testNow.Add(-24 * time.Hour)
	return models.ScheduleState{
		UserID:       1,
		ItemID:       itemID,
		Repetitions:  2,
		IntervalDays: 3,
		EaseFactor:   2.5,
		DueAt:        testNow.Add(d),
		LastReviewAt: &reviewed,
	}
}

func TestSummarizeDueBuckets(t *testing.T) {
	states := []models.ScheduleState{
		stateDueIn(1, -48*time.Hour),                 // overdue
		stateDueIn(2, -time.Minute),                  // just due
		stateDueIn(3, 2*time.Hour),                   // later today (17:00)
		stateDueIn(4, 3*24*time.Hour),                // this week
		stateDueIn(5, 30*24*time.Hour),               // later
		models.NewScheduleState(1, 6, testNow),       // new, never reviewed
	}

	sum := Summarize(states, nil, nil, testNow)

	if sum.DueNow != 2 {
		t.Errorf("DueNow = %d, want 2", sum.DueNow)
	}
	// DueToday is cumulative: everything due before midnight.
	if sum.DueToday != 3 {
		t.Errorf("DueToday = %d, want 3", sum.DueToday)
	}
	if sum.DueThisWeek != 4 {
		t.Errorf("DueThisWeek = %d, want 4", sum.DueThisWeek)
	}
	if sum.Later != 1 {
		t.Errorf("Later = %d, want 1", sum.Later)
	}
	if sum.NewItems != 1 {
		t.Errorf("NewItems = %d, want 1", sum.NewItems)
	}
	if sum.TotalItems != 6 {
		t.Errorf("TotalItems = %d, want 6", sum.TotalItems)
	}
}

func TestSummarizeNewItemsStayOutOfDueBuckets(t *testing.T) {
	// A new item carries DueAt == creation time, which is in the past by
	// review time. It must count as new, not as due.
	states := []models.ScheduleState{
		models.NewScheduleState(1, 1, testNow.AddDate(0, 0, -5)),
	}
	sum := Summarize(states, nil, nil, testNow)
	if sum.NewItems != 1 || sum.DueNow != 0 {
		t.Errorf("NewItems = %d, DueNow = %d, want 1, 0", sum.NewItems, sum.DueNow)
	}
}

func TestSummarizeFlags(t *testing.T) {
	mastered := testNow.AddDate(0, 0, -2)
	leech := stateDueIn(1, -time.Hour)
	leech.IsLeech = true
	done := stateDueIn(2, 40*24*time.Hour)
	done.MasteredAt = &mastered

	sum := Summarize([]models.ScheduleState{leech, done}, nil, nil, testNow)
	if sum.Leeches != 1 {
		t.Errorf("Leeches = %d, want 1", sum.Leeches)
	}
	if sum.Mastered != 1 {
		t.Errorf("Mastered = %d, want 1", sum.Mastered)
	}
}

func TestSummarizeByContentType(t *testing.T) {
	items := map[int64]models.ReviewItem{
		1: {ID: 1, ContentType: models.ContentKanji},
		2: {ID: 2, ContentType: models.ContentKanji},
		3: {ID: 3, ContentType: models.ContentVocabulary},
	}
	states := []models.ScheduleState{
		stateDueIn(1, time.Hour),
		stateDueIn(2, time.Hour),
		stateDueIn(3, time.Hour),
	}
	sum := Summarize(states, items, nil, testNow)
	if sum.ByContentType[models.ContentKanji] != 2 {
		t.Errorf("kanji = %d, want 2", sum.ByContentType[models.ContentKanji])
	}
	if sum.ByContentType[models.ContentVocabulary] != 1 {
		t.Errorf("vocabulary = %d, want 1", sum.ByContentType[models.ContentVocabulary])
	}
}

func day(offset, reviewed, correct int) models.ReviewDay {
	return models.ReviewDay{
		UserID:   1,
		Day:      testNow.AddDate(0, 0, offset).Format("2006-01-02"),
		Reviewed: reviewed,
		Correct:  correct,
	}
}

func TestStreaks(t *testing.T) {
	tests := []struct {
		name            string
		days            []models.ReviewDay
		current, best   int
	}{
		{"no history", nil, 0, 0},
		{"reviewed today only", []models.ReviewDay{day(0, 5, 4)}, 1, 1},
		{
			"three days ending today",
			[]models.ReviewDay{day(-2, 3, 3), day(-1, 3, 2), day(0, 3, 3)},
			3, 3,
		},
		{
			// No reviews yet today: the streak survives until tomorrow.
			"ending yesterday",
			[]models.ReviewDay{day(-3, 1, 1), day(-2, 1, 1), day(-1, 1, 0)},
			3, 3,
		},
		{
			"broken two days ago",
			[]models.ReviewDay{day(-5, 1, 1), day(-4, 1, 1), day(-2, 1, 1)},
			0, 2,
		},
		{
			"gap splits best from current",
			[]models.ReviewDay{
				day(-9, 1, 1), day(-8, 1, 1), day(-7, 1, 1), day(-6, 1, 1),
				day(-1, 1, 1), day(0, 1, 1),
			},
			2, 4,
		},
		{
			// A counter row with zero reviews is not an active day.
			"zero-count day breaks the run",
			[]models.ReviewDay{day(-2, 1, 1), day(-1, 0, 0), day(0, 1, 1)},
			1, 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, best := streaks(tt.days, testNow)
			if current != tt.current || best != tt.best {
				t.Errorf("streaks = (%d, %d), want (%d, %d)", current, best, tt.current, tt.best)
			}
		})
	}
}

func TestTrailingAccuracy(t *testing.T) {
	days := []models.ReviewDay{
		day(-40, 10, 0),  // outside the 30-day window, ignored
		day(-10, 10, 8),
		day(-1, 10, 6),
	}
	sum := Summarize(nil, nil, days, testNow)
	want := 14.0 / 20.0
	if diff := sum.Accuracy - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Accuracy = %v, want %v", sum.Accuracy, want)
	}
}

func TestTrailingAccuracyNoReviews(t *testing.T) {
	sum := Summarize(nil, nil, nil, testNow)
	if sum.Accuracy != 0 {
		t.Errorf("Accuracy with no history = %v, want 0", sum.Accuracy)
	}
}
