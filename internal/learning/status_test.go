package learning

import (
	"testing"
	"time"

	"github.com/conorfennell/ingrain/internal/domain"
	"github.com/conorfennell/ingrain/internal/schedule"
)

func ms(t time.Time) int64 { return t.UnixMilli() }

func msPtr(t time.Time) *int64 {
	v := t.UnixMilli()
	return &v
}

func entry(milestone, session int, end time.Time, next *int64) domain.LogEntry {
	return domain.LogEntry{
		MilestoneIndex: milestone,
		SessionIndex:   session,
		StartTime:      ms(end.Add(-time.Minute)),
		EndTime:        ms(end),
		NextReview:     next,
	}
}

func TestStatusEmptyLog(t *testing.T) {
	st := Status(nil, schedule.Default(), time.Now())
	if st.State != New {
		t.Errorf("expected state new, got %s", st.State)
	}
	if st.MilestoneIndex != 0 || st.SessionIndex != 0 {
		t.Errorf("expected position (0,0), got (%d,%d)", st.MilestoneIndex, st.SessionIndex)
	}
	if st.TotalSessions != 5 {
		t.Errorf("expected 5 sessions in the first default milestone, got %d", st.TotalSessions)
	}
}

func TestStatusDueScheduledOverdue(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	sched := schedule.Default()

	t.Run("scheduled when next review is in the future", func(t *testing.T) {
		log := []domain.LogEntry{entry(0, 0, now.Add(-time.Minute), msPtr(now.Add(time.Hour)))}
		st := Status(log, sched, now)
		if st.State != Scheduled {
			t.Errorf("expected scheduled, got %s", st.State)
		}
		if st.NextReview == nil || *st.NextReview != ms(now.Add(time.Hour)) {
			t.Errorf("unexpected next review %v", st.NextReview)
		}
	})

	t.Run("due when past next review", func(t *testing.T) {
		log := []domain.LogEntry{entry(0, 0, now.Add(-2*time.Hour), msPtr(now.Add(-time.Hour)))}
		st := Status(log, sched, now)
		if st.State != Due {
			t.Errorf("expected due, got %s", st.State)
		}
	})

	t.Run("overdue past the mid-milestone maximum gap", func(t *testing.T) {
		// Default milestone 0 allows at most 3h between sessions.
		log := []domain.LogEntry{entry(0, 0, now.Add(-4*time.Hour), msPtr(now.Add(-3*time.Hour)))}
		st := Status(log, sched, now)
		if st.State != Overdue {
			t.Errorf("expected overdue, got %s", st.State)
		}
	})

	t.Run("final session of a milestone is never overdue", func(t *testing.T) {
		// Session 4 is the last of default milestone 0: the wait before
		// milestone 1 is enforced by nextReview, not maxTimeBetweenSessions.
		log := []domain.LogEntry{entry(0, 4, now.Add(-100*time.Hour), msPtr(now.Add(-90*time.Hour)))}
		st := Status(log, sched, now)
		if st.State != Due {
			t.Errorf("expected due, got %s", st.State)
		}
	})

	t.Run("extra sessions are never overdue", func(t *testing.T) {
		e := entry(0, 0, now.Add(-4*time.Hour), msPtr(now.Add(-3*time.Hour)))
		e.IsExtra = true
		st := Status([]domain.LogEntry{e}, sched, now)
		if st.State != Due {
			t.Errorf("expected due, got %s", st.State)
		}
	})
}

func TestStatusTargetPosition(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	sched := schedule.Default()

	t.Run("advances session within a milestone", func(t *testing.T) {
		log := []domain.LogEntry{entry(0, 1, now.Add(-time.Hour), msPtr(now))}
		st := Status(log, sched, now)
		if st.MilestoneIndex != 0 || st.SessionIndex != 2 {
			t.Errorf("expected (0,2), got (%d,%d)", st.MilestoneIndex, st.SessionIndex)
		}
	})

	t.Run("advances milestone after its final session", func(t *testing.T) {
		log := []domain.LogEntry{entry(0, 4, now.Add(-time.Hour), msPtr(now))}
		st := Status(log, sched, now)
		if st.MilestoneIndex != 1 || st.SessionIndex != 0 {
			t.Errorf("expected (1,0), got (%d,%d)", st.MilestoneIndex, st.SessionIndex)
		}
		if st.TotalSessions != sched[1].NumberOfSessions {
			t.Errorf("total sessions should describe the target milestone, got %d", st.TotalSessions)
		}
	})

	t.Run("extra session does not advance the pointer", func(t *testing.T) {
		e := entry(1, 1, now.Add(-time.Hour), msPtr(now))
		e.IsExtra = true
		st := Status([]domain.LogEntry{e}, sched, now)
		if st.MilestoneIndex != 1 || st.SessionIndex != 1 {
			t.Errorf("expected (1,1), got (%d,%d)", st.MilestoneIndex, st.SessionIndex)
		}
	})

	t.Run("repeat sentinel targets the failed milestone", func(t *testing.T) {
		e := entry(1, domain.SessionRepeating, now.Add(-time.Hour), msPtr(now))
		st := Status([]domain.LogEntry{e}, sched, now)
		if st.MilestoneIndex != 2 || st.SessionIndex != 0 {
			t.Errorf("expected (2,0), got (%d,%d)", st.MilestoneIndex, st.SessionIndex)
		}
	})

	t.Run("not-started sentinel targets the beginning", func(t *testing.T) {
		e := entry(domain.MilestoneNotStarted, domain.SessionRepeating, now.Add(-time.Hour), msPtr(now))
		st := Status([]domain.LogEntry{e}, sched, now)
		if st.MilestoneIndex != 0 || st.SessionIndex != 0 {
			t.Errorf("expected (0,0), got (%d,%d)", st.MilestoneIndex, st.SessionIndex)
		}
	})
}

func TestStatusIngrained(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	sched := schedule.Schedule{
		{MinTimeSinceLastMilestone: schedule.Sec(0), NumberOfSessions: 1},
	}

	t.Run("final session of the final milestone", func(t *testing.T) {
		log := []domain.LogEntry{entry(0, 0, now.Add(-time.Hour), nil)}
		st := Status(log, sched, now)
		if st.State != Ingrained || !st.IsIngrained {
			t.Fatalf("expected ingrained, got %s", st.State)
		}
		if st.NextReview != nil {
			t.Errorf("ingrained decks have no next review, got %v", *st.NextReview)
		}
		if st.MilestoneIndex != 1 || st.SessionIndex != 1 {
			t.Errorf("expected pinned position (1,1), got (%d,%d)", st.MilestoneIndex, st.SessionIndex)
		}
	})

	t.Run("index beyond the schedule", func(t *testing.T) {
		log := []domain.LogEntry{entry(5, 0, now.Add(-time.Hour), nil)}
		st := Status(log, sched, now)
		if st.State != Ingrained {
			t.Errorf("expected ingrained, got %s", st.State)
		}
	})

	t.Run("extra session on an ingrained deck stays ingrained", func(t *testing.T) {
		e := entry(1, 0, now.Add(-time.Hour), nil)
		e.IsExtra = true
		st := Status([]domain.LogEntry{e}, sched, now)
		if st.State != Ingrained {
			t.Errorf("expected ingrained, got %s", st.State)
		}
	})
}
