package learning

import (
	"github.com/conorfennell/ingrain/internal/domain"
	"github.com/conorfennell/ingrain/internal/schedule"
)

// PositionKind discriminates the schedule position derived from the last log
// entry. It replaces raw sentinel arithmetic on the persisted indices
// (sessionIndex 999, milestoneIndex -1) with an explicit variant.
type PositionKind int

const (
	// AtStart means the deck is at (0, 0): either never started or reset.
	AtStart PositionKind = iota
	// InMilestone means the deck's next session is (Milestone, Session).
	InMilestone
	// RepeatingMilestone means the previous attempt at Milestone failed and
	// the milestone restarts from session 0.
	RepeatingMilestone
	// PastEnd means the deck completed the final milestone.
	PastEnd
)

// Position is the next session a deck should perform, derived from its last
// log entry and the schedule.
type Position struct {
	Kind      PositionKind
	Milestone int
	Session   int
}

// positionAfter derives the target position from the last log entry.
//
// An extra (early) session never advances the pointer. A repeating entry
// (session sentinel) targets the milestone after the one it records, which is
// the milestone that was failed. Otherwise the pointer advances session by
// session, then milestone by milestone.
func positionAfter(e domain.LogEntry, sched schedule.Schedule) Position {
	if entryIngrained(e, sched) {
		return Position{Kind: PastEnd, Milestone: len(sched)}
	}

	if e.MilestoneIndex == domain.MilestoneNotStarted {
		return Position{Kind: AtStart}
	}

	mi := e.MilestoneIndex
	if mi > len(sched)-1 {
		mi = len(sched) - 1
	}
	m := sched[mi]

	switch {
	case e.IsExtra:
		si := e.SessionIndex
		if si > m.NumberOfSessions-1 {
			si = m.NumberOfSessions - 1
		}
		return Position{Kind: InMilestone, Milestone: mi, Session: si}
	case e.SessionIndex == domain.SessionRepeating:
		next := min(mi+1, len(sched)-1)
		return Position{Kind: RepeatingMilestone, Milestone: next}
	case e.SessionIndex < m.NumberOfSessions-1:
		return Position{Kind: InMilestone, Milestone: mi, Session: e.SessionIndex + 1}
	default:
		return Position{Kind: InMilestone, Milestone: min(mi+1, len(sched)-1)}
	}
}

// entryIngrained reports whether the last log entry leaves the deck past the
// end of the schedule. Three shapes qualify: an index already beyond the
// schedule, a non-extra completion of the final session of the final
// milestone, and an extra session recorded while already ingrained (which
// carries a nil next review).
func entryIngrained(e domain.LogEntry, sched schedule.Schedule) bool {
	if e.MilestoneIndex >= len(sched) {
		return true
	}
	last := len(sched) - 1
	if !e.IsExtra && e.NextReview == nil &&
		e.MilestoneIndex == last && e.SessionIndex >= sched[last].NumberOfSessions-1 {
		return true
	}
	if e.IsExtra && e.NextReview == nil && e.MilestoneIndex >= last &&
		e.SessionIndex >= sched[min(e.MilestoneIndex, last)].NumberOfSessions-1 {
		return true
	}
	return false
}
