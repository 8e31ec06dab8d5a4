package learning

import (
	"time"

	"github.com/conorfennell/ingrain/internal/domain"
	"github.com/conorfennell/ingrain/internal/schedule"
)

// DeckStatus describes where a deck currently sits in its schedule. The
// milestone and session indices point at the next session to perform (or at
// the final session when ingrained, for progress rendering).
type DeckStatus struct {
	State                State
	Label                string
	MilestoneIndex       int
	SessionIndex         int
	TotalSessions        int
	MilestoneDescription string
	NextReview           *int64 // epoch-ms, nil when none is scheduled
	IsIngrained          bool
}

// Status derives a deck's current status from its learning log. The clock is
// explicit so due/overdue transitions are deterministic under test.
func Status(log []domain.LogEntry, sched schedule.Schedule, now time.Time) DeckStatus {
	if len(log) == 0 {
		first := sched[0]
		return DeckStatus{
			State:                New,
			Label:                New.Label(),
			TotalSessions:        first.NumberOfSessions,
			MilestoneDescription: schedule.Describe(first),
		}
	}

	last := log[len(log)-1]
	pos := positionAfter(last, sched)

	if pos.Kind == PastEnd {
		final := sched[len(sched)-1]
		return DeckStatus{
			State:                Ingrained,
			Label:                Ingrained.Label(),
			MilestoneIndex:       len(sched),
			SessionIndex:         final.NumberOfSessions,
			TotalSessions:        final.NumberOfSessions,
			MilestoneDescription: "Fully ingrained into memory.",
			IsIngrained:          true,
		}
	}

	nowMS := now.UnixMilli()
	state := Scheduled
	if last.NextReview == nil || nowMS >= *last.NextReview {
		state = Due
	}

	// Overdue only applies mid-milestone: the wait before a milestone's final
	// session completes is enforced through nextReview, never through
	// maxTimeBetweenSessions.
	if !last.IsExtra && last.MilestoneIndex >= 0 && last.MilestoneIndex < len(sched) {
		logged := sched[last.MilestoneIndex]
		if last.SessionIndex < logged.NumberOfSessions-1 && logged.MaxTimeBetweenSessions != nil {
			if nowMS > last.EndTime+*logged.MaxTimeBetweenSessions*1000 {
				state = Overdue
			}
		}
	}

	target := sched[pos.Milestone]
	return DeckStatus{
		State:                state,
		Label:                state.Label(),
		MilestoneIndex:       pos.Milestone,
		SessionIndex:         pos.Session,
		TotalSessions:        target.NumberOfSessions,
		MilestoneDescription: schedule.Describe(target),
		NextReview:           last.NextReview,
	}
}
