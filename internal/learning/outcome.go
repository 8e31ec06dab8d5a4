package learning

import (
	"github.com/conorfennell/ingrain/internal/schedule"
)

// Score thresholds at the end of a milestone: at or above MasteredScore the
// deck advances, below DemotionScore the user is offered demotion, in between
// the milestone repeats.
const (
	MasteredScore = 0.9
	DemotionScore = 0.4
)

// Result is the computed outcome of a completed session.
type Result struct {
	NextMilestoneIndex   int
	NextSessionIndex     int
	NextReview           *int64 // epoch-ms, nil when ingrained
	IsIngrained          bool
	IsRepeatingMilestone bool
	ShowDemotionChoice   bool
	Score                float64
}

// Score computes the session score from the deck size and the number of
// distinct first-time misses. An empty deck scores perfect by convention.
func Score(totalCards, missedCount int) float64 {
	if totalCards <= 0 {
		return 1
	}
	return float64(totalCards-missedCount) / float64(totalCards)
}

// Outcome computes the schedule consequences of finishing the session at
// (milestoneIndex, sessionIndex) with the given score. endTime is epoch-ms.
//
// Mid-milestone sessions always advance to the next session. At the end of a
// milestone the score decides: mastered advances to the next milestone,
// a middling score repeats the milestone immediately, and a poor score
// additionally asks the user whether to demote.
func Outcome(milestoneIndex, sessionIndex int, score float64, sched schedule.Schedule, endTime int64) Result {
	cur := sched[min(milestoneIndex, len(sched)-1)]
	endOfMilestone := sessionIndex == cur.NumberOfSessions-1

	res := Result{
		NextMilestoneIndex: milestoneIndex,
		NextSessionIndex:   sessionIndex,
		Score:              score,
	}

	switch {
	case !endOfMilestone:
		res.NextSessionIndex = sessionIndex + 1
	case score >= MasteredScore:
		res.NextMilestoneIndex = milestoneIndex + 1
		res.NextSessionIndex = 0
	default:
		// Repeat the milestone from its first session. Below the lower
		// threshold the caller also surfaces the demotion choice.
		res.NextSessionIndex = 0
		res.IsRepeatingMilestone = true
		res.ShowDemotionChoice = score < DemotionScore
	}

	if res.NextMilestoneIndex >= len(sched) {
		res.IsIngrained = true
		res.NextReview = nil // unconditional: ingrained decks have no review
		return res
	}

	switch {
	case res.NextMilestoneIndex > milestoneIndex:
		next := sched[res.NextMilestoneIndex]
		res.NextReview = reviewAt(endTime, next.MinTimeSinceLastMilestone)
	case res.IsRepeatingMilestone:
		t := endTime
		res.NextReview = &t
	default:
		res.NextReview = reviewAt(endTime, cur.MinTimeBetweenSessions)
	}
	return res
}

// reviewAt returns endTime plus the wait in seconds, or endTime itself when
// no wait is configured.
func reviewAt(endTime int64, waitSeconds *int64) *int64 {
	t := endTime
	if waitSeconds != nil {
		t += *waitSeconds * 1000
	}
	return &t
}
