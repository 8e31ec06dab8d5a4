package learning

import (
	"testing"

	"github.com/conorfennell/ingrain/internal/schedule"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name   string
		total  int
		missed int
		want   float64
	}{
		{"perfect", 10, 0, 1},
		{"three misses of ten", 10, 3, 0.7},
		{"all missed", 4, 4, 0},
		{"empty deck scores perfect", 0, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.total, tc.missed); got != tc.want {
				t.Errorf("Score(%d, %d) = %v, want %v", tc.total, tc.missed, got, tc.want)
			}
		})
	}
}

func TestOutcomeWithinMilestone(t *testing.T) {
	sched := schedule.Schedule{
		{MinTimeSinceLastMilestone: schedule.Sec(0), NumberOfSessions: 3, MinTimeBetweenSessions: schedule.Sec(3600)},
	}
	end := int64(1_700_000_000_000)

	res := Outcome(0, 0, 1.0, sched, end)
	if res.NextMilestoneIndex != 0 || res.NextSessionIndex != 1 {
		t.Errorf("expected (0,1), got (%d,%d)", res.NextMilestoneIndex, res.NextSessionIndex)
	}
	if res.ShowDemotionChoice || res.IsRepeatingMilestone || res.IsIngrained {
		t.Errorf("unexpected flags in %+v", res)
	}
	// Exactly one hour in milliseconds.
	if res.NextReview == nil || *res.NextReview != end+3_600_000 {
		t.Errorf("expected next review at end+3600000, got %v", res.NextReview)
	}

	t.Run("a poor score mid-milestone still advances the session", func(t *testing.T) {
		res := Outcome(0, 0, 0.1, sched, end)
		if res.NextSessionIndex != 1 || res.ShowDemotionChoice {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("nil wait means available immediately", func(t *testing.T) {
		open := schedule.Schedule{{NumberOfSessions: 2}}
		res := Outcome(0, 0, 1.0, open, end)
		if res.NextReview == nil || *res.NextReview != end {
			t.Errorf("expected next review at end, got %v", res.NextReview)
		}
	})
}

func TestOutcomeEndOfMilestone(t *testing.T) {
	sched := schedule.Schedule{
		{MinTimeSinceLastMilestone: schedule.Sec(0), NumberOfSessions: 5},
		{MinTimeSinceLastMilestone: schedule.Sec(28800), NumberOfSessions: 3},
	}
	end := int64(1_700_000_000_000)

	t.Run("mastered advances to the next milestone", func(t *testing.T) {
		res := Outcome(0, 4, 1.0, sched, end)
		if res.NextMilestoneIndex != 1 || res.NextSessionIndex != 0 {
			t.Errorf("expected (1,0), got (%d,%d)", res.NextMilestoneIndex, res.NextSessionIndex)
		}
		if res.NextReview == nil || *res.NextReview != end+28_800_000 {
			t.Errorf("expected next review after the milestone wait, got %v", res.NextReview)
		}
	})

	t.Run("middling score repeats the milestone immediately", func(t *testing.T) {
		res := Outcome(0, 4, 0.5, sched, end)
		if res.NextMilestoneIndex != 0 || res.NextSessionIndex != 0 {
			t.Errorf("expected (0,0), got (%d,%d)", res.NextMilestoneIndex, res.NextSessionIndex)
		}
		if !res.IsRepeatingMilestone || res.ShowDemotionChoice {
			t.Errorf("unexpected flags in %+v", res)
		}
		if res.NextReview == nil || *res.NextReview != end {
			t.Errorf("repeating should be available immediately, got %v", res.NextReview)
		}
	})

	t.Run("poor score asks for the demotion choice", func(t *testing.T) {
		res := Outcome(0, 4, 0.2, sched, end)
		if !res.ShowDemotionChoice || !res.IsRepeatingMilestone {
			t.Errorf("unexpected flags in %+v", res)
		}
	})

	t.Run("thresholds are inclusive at 0.9 and 0.4", func(t *testing.T) {
		if res := Outcome(0, 4, 0.9, sched, end); res.NextMilestoneIndex != 1 {
			t.Errorf("0.9 should master, got %+v", res)
		}
		if res := Outcome(0, 4, 0.4, sched, end); res.ShowDemotionChoice {
			t.Errorf("0.4 should repeat without demotion, got %+v", res)
		}
	})
}

func TestOutcomeIngrained(t *testing.T) {
	sched := schedule.Schedule{
		{MinTimeSinceLastMilestone: schedule.Sec(0), NumberOfSessions: 1},
	}
	end := int64(1_700_000_000_000)

	res := Outcome(0, 0, 1.0, sched, end)
	if !res.IsIngrained {
		t.Fatal("expected ingrained after the final session of the final milestone")
	}
	if res.NextReview != nil {
		t.Errorf("ingrained must clear next review, got %v", *res.NextReview)
	}

	t.Run("already past the schedule stays ingrained", func(t *testing.T) {
		res := Outcome(1, 0, 1.0, sched, end)
		if !res.IsIngrained || res.NextReview != nil {
			t.Errorf("unexpected result %+v", res)
		}
	})
}
