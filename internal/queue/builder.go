package queue

import (
	"sort"
	"time"

	"github.com/example/kioku/pkg/models"
)

// Filters restricts which items are eligible before ordering. Filters are
// applied before the budget so a filtered-out item never consumes a slot.
type Filters struct {
	ContentTypes []models.ContentType
	ListIDs      []int64
	// NewItemsFirst promotes never-reviewed items ahead of the due tiers.
	// Leech-boosted items still come first.
	NewItemsFirst bool
}

func (f Filters) matches(item models.ReviewItem) bool {
	if len(f.ContentTypes) > 0 {
		found := false
		for _, t := range f.ContentTypes {
			if item.ContentType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.ListIDs) > 0 {
		found := false
		for _, id := range f.ListIDs {
			if item.InList(id) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Build assembles the review queue for one session. Ordering is strict:
// leech-flagged items (most lapses first), then overdue items (most
// neglected first), then items due later today (earliest first), then new
// items in creation order. The budget cap is applied after ordering; a
// budget of zero or less yields an empty snapshot, which is not an error.
func Build(states []models.ScheduleState, items map[int64]models.ReviewItem, now time.Time, filters Filters, budget int) models.QueueSnapshot {
	snap := models.QueueSnapshot{BuiltAt: now}
	if budget <= 0 {
		return snap
	}

	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())

	var leeches, overdue, dueToday, fresh []models.ScheduleState
	for _, s := range states {
		item, ok := items[s.ItemID]
		if !ok || !filters.matches(item) {
			continue
		}
		switch {
		case s.IsLeech:
			// Boosted independent of due date so the item resurfaces
			// sooner than its interval alone would dictate.
			leeches = append(leeches, s)
		case s.IsNew():
			fresh = append(fresh, s)
		case s.DueAt.Before(now):
			overdue = append(overdue, s)
		case s.DueAt.Before(endOfDay):
			dueToday = append(dueToday, s)
		}
	}

	sort.SliceStable(leeches, func(i, j int) bool {
		if leeches[i].Lapses != leeches[j].Lapses {
			return leeches[i].Lapses > leeches[j].Lapses
		}
		return leeches[i].ItemID < leeches[j].ItemID
	})
	sort.SliceStable(overdue, func(i, j int) bool {
		if !overdue[i].DueAt.Equal(overdue[j].DueAt) {
			return overdue[i].DueAt.Before(overdue[j].DueAt) // most overdue first
		}
		return overdue[i].ItemID < overdue[j].ItemID
	})
	sort.SliceStable(dueToday, func(i, j int) bool {
		if !dueToday[i].DueAt.Equal(dueToday[j].DueAt) {
			return dueToday[i].DueAt.Before(dueToday[j].DueAt)
		}
		return dueToday[i].ItemID < dueToday[j].ItemID
	})
	// Creation order, stable and deterministic, never random.
	sort.SliceStable(fresh, func(i, j int) bool {
		ci, cj := items[fresh[i].ItemID].CreatedAt, items[fresh[j].ItemID].CreatedAt
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return fresh[i].ItemID < fresh[j].ItemID
	})

	appendTier := func(tier []models.ScheduleState, reason models.QueueReason) {
		for _, s := range tier {
			if len(snap.Entries) >= budget {
				return
			}
			snap.Entries = append(snap.Entries, models.QueueEntry{ItemID: s.ItemID, Reason: reason})
		}
	}

	appendTier(leeches, models.ReasonLeechBoost)
	if filters.NewItemsFirst {
		appendTier(fresh, models.ReasonNew)
	}
	appendTier(overdue, models.ReasonOverdue)
	appendTier(dueToday, models.ReasonDueToday)
	if !filters.NewItemsFirst {
		appendTier(fresh, models.ReasonNew)
	}

	return snap
}
