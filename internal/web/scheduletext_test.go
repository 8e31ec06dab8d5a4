package web

import (
	"strings"
	"testing"

	"github.com/conorfennell/ingrain/internal/schedule"
)

func TestParseScheduleText(t *testing.T) {
	text := `# wait sessions min-between max-between
0s 5 1h 3h
8h 3 1h 5h
2d 1 - -
`
	sched, err := parseScheduleText(text)
	if err != nil {
		t.Fatalf("parseScheduleText: %v", err)
	}
	if len(sched) != 3 {
		t.Fatalf("expected 3 milestones, got %d", len(sched))
	}

	m := sched[1]
	if m.MinTimeSinceLastMilestone == nil || *m.MinTimeSinceLastMilestone != 28800 {
		t.Errorf("unexpected wait %v", m.MinTimeSinceLastMilestone)
	}
	if m.NumberOfSessions != 3 {
		t.Errorf("expected 3 sessions, got %d", m.NumberOfSessions)
	}
	if m.MaxTimeBetweenSessions == nil || *m.MaxTimeBetweenSessions != 18000 {
		t.Errorf("unexpected max %v", m.MaxTimeBetweenSessions)
	}

	last := sched[2]
	if last.MinTimeBetweenSessions != nil || last.MaxTimeBetweenSessions != nil {
		t.Errorf("expected dash fields to stay nil, got %+v", last)
	}
}

func TestParseScheduleTextErrors(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"wrong field count", "0s 5 1h\n"},
		{"bad sessions", "0s x 1h 3h\n"},
		{"bad duration", "0s 5 soon 3h\n"},
		{"zero sessions", "0s 0 1h 3h\n"},
		{"only comments", "# nothing here\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseScheduleText(tc.text); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestScheduleTextRoundTrip(t *testing.T) {
	orig := schedule.Default()
	text := formatScheduleText(orig)
	parsed, err := parseScheduleText(text)
	if err != nil {
		t.Fatalf("parseScheduleText: %v", err)
	}
	if len(parsed) != len(orig) {
		t.Fatalf("expected %d milestones, got %d", len(orig), len(parsed))
	}
	for i := range orig {
		a, b := orig[i], parsed[i]
		if a.NumberOfSessions != b.NumberOfSessions {
			t.Errorf("milestone %d: sessions %d != %d", i, a.NumberOfSessions, b.NumberOfSessions)
		}
		if !waitEqual(a.MinTimeSinceLastMilestone, b.MinTimeSinceLastMilestone) ||
			!waitEqual(a.MinTimeBetweenSessions, b.MinTimeBetweenSessions) ||
			!waitEqual(a.MaxTimeBetweenSessions, b.MaxTimeBetweenSessions) {
			t.Errorf("milestone %d changed across the round trip: %+v != %+v", i, a, b)
		}
	}
	if !strings.HasPrefix(text, "#") {
		t.Error("expected the rendered text to lead with the header comment")
	}
}

func waitEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
