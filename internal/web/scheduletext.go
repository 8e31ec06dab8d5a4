package web

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conorfennell/ingrain/internal/schedule"
)

// parseScheduleText parses the schedule editor's textarea format: one
// milestone per line as four whitespace-separated fields,
//
//	<wait before milestone> <sessions> <min between> <max between>
//
// where waits use space-free duration syntax ("8h", "2d", "1h30m") and "-"
// means no constraint.
func parseScheduleText(text string) (schedule.Schedule, error) {
	var sched schedule.Schedule
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: expected 4 fields, got %d", i+1, len(fields))
		}

		var m schedule.Milestone
		var err error
		if m.MinTimeSinceLastMilestone, err = parseWait(fields[0]); err != nil {
			return nil, fmt.Errorf("line %d: wait: %w", i+1, err)
		}
		if m.NumberOfSessions, err = strconv.Atoi(fields[1]); err != nil {
			return nil, fmt.Errorf("line %d: sessions: %w", i+1, err)
		}
		if m.MinTimeBetweenSessions, err = parseWait(fields[2]); err != nil {
			return nil, fmt.Errorf("line %d: min between: %w", i+1, err)
		}
		if m.MaxTimeBetweenSessions, err = parseWait(fields[3]); err != nil {
			return nil, fmt.Errorf("line %d: max between: %w", i+1, err)
		}
		sched = append(sched, m)
	}
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	return sched, nil
}

func parseWait(field string) (*int64, error) {
	if field == "-" {
		return nil, nil
	}
	secs, err := schedule.ParseDuration(field)
	if err != nil {
		return nil, err
	}
	return &secs, nil
}

// formatScheduleText renders a schedule back into the editor format.
func formatScheduleText(sched schedule.Schedule) string {
	var b strings.Builder
	b.WriteString("# wait sessions min-between max-between\n")
	for _, m := range sched {
		fmt.Fprintf(&b, "%s %d %s %s\n",
			formatWait(m.MinTimeSinceLastMilestone),
			m.NumberOfSessions,
			formatWait(m.MinTimeBetweenSessions),
			formatWait(m.MaxTimeBetweenSessions),
		)
	}
	return b.String()
}

func formatWait(w *int64) string {
	if w == nil {
		return "-"
	}
	// Fields are space-separated, so the duration itself must not contain
	// spaces ("1h30m", not "1h 30m").
	return strings.ReplaceAll(schedule.FormatDuration(*w), " ", "")
}
