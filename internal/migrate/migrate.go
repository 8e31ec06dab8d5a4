// Package migrate adjusts recorded deck progress when a set's learning
// schedule is edited, so existing logs stay consistent with the new milestone
// layout. Running it twice with the same schedule is a no-op the second time.
package migrate

import (
	"github.com/conorfennell/ingrain/internal/domain"
	"github.com/conorfennell/ingrain/internal/schedule"
)

// Decks rewrites the last log entry of every deck in the set at setPath to
// fit newSchedule, mutating the data in place. It reports whether anything
// changed so the caller can decide whether to persist.
func Decks(all map[string]domain.SetData, setPath string, newSchedule schedule.Schedule) bool {
	setData, ok := all[setPath]
	if !ok || len(setData.Decks) == 0 {
		return false
	}

	changed := false
	for _, deck := range setData.Decks {
		if len(deck.LearningLog) == 0 {
			continue
		}
		if migrateEntry(&deck.LearningLog[len(deck.LearningLog)-1], newSchedule) {
			changed = true
		}
	}
	return changed
}

func migrateEntry(entry *domain.LogEntry, sched schedule.Schedule) bool {
	milestoneIndex := entry.MilestoneIndex
	sessionIndex := entry.SessionIndex
	entryChanged := false

	// A rewritten repeat or demote entry carries the not-started milestone
	// index with the repeat session sentinel. Its target is the first
	// milestone, so recompute the review from that milestone's opening wait
	// and keep the sentinel indices untouched.
	if milestoneIndex < 0 {
		next := *reviewAt(entry.EndTime, sched[0].MinTimeSinceLastMilestone)
		if entry.NextReview == nil {
			entry.NextReview = &next
			return true
		}
		if diff := next - *entry.NextReview; diff > 1000 || diff < -1000 {
			entry.NextReview = &next
			return true
		}
		return false
	}

	// Clamp to len(sched), not len(sched)-1: a deck past a shortened
	// schedule becomes ingrained rather than being forced to repeat the new
	// final milestone.
	if milestoneIndex > len(sched) {
		milestoneIndex = len(sched)
		entryChanged = true
	}

	if milestoneIndex >= len(sched) {
		// Ingrained under the new schedule: no review pending.
		if entry.NextReview != nil {
			entry.NextReview = nil
			entryChanged = true
		}
		if entryChanged {
			entry.MilestoneIndex = milestoneIndex
			entry.SessionIndex = sessionIndex
		}
		return entryChanged
	}

	m := sched[milestoneIndex]

	if entry.NextReview == nil {
		// Previously ingrained, revived by appended milestones: schedule the
		// new milestone's wait and restart its session count.
		entry.NextReview = reviewAt(entry.EndTime, m.MinTimeSinceLastMilestone)
		sessionIndex = 0
		entryChanged = true
	} else {
		if sessionIndex >= m.NumberOfSessions {
			sessionIndex = m.NumberOfSessions - 1
			entryChanged = true
		}

		wait := m.MinTimeBetweenSessions
		if sessionIndex == 0 {
			wait = m.MinTimeSinceLastMilestone
		}
		next := *reviewAt(entry.EndTime, wait)

		// Only rewrite on a significant difference, so repeated migrations
		// with the same schedule report no change.
		if diff := next - *entry.NextReview; diff > 1000 || diff < -1000 {
			entry.NextReview = &next
			entryChanged = true
		}
	}

	if entryChanged {
		entry.MilestoneIndex = milestoneIndex
		entry.SessionIndex = sessionIndex
	}
	return entryChanged
}

func reviewAt(endTime int64, waitSeconds *int64) *int64 {
	t := endTime
	if waitSeconds != nil {
		t += *waitSeconds * 1000
	}
	return &t
}
