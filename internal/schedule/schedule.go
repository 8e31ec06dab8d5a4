package schedule

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Milestone is one stage of a learning schedule. Wait fields are in seconds;
// a nil wait means "no constraint" (available immediately, never overdue).
type Milestone struct {
	MinTimeSinceLastMilestone *int64 `json:"minTimeSinceLastMilestone" koanf:"min_time_since_last_milestone"`
	NumberOfSessions          int    `json:"numberOfSessions" koanf:"number_of_sessions" validate:"min=1"`
	MinTimeBetweenSessions    *int64 `json:"minTimeBetweenSessions" koanf:"min_time_between_sessions"`
	MaxTimeBetweenSessions    *int64 `json:"maxTimeBetweenSessions" koanf:"max_time_between_sessions"`
}

// Schedule is an ordered, non-empty sequence of milestones.
type Schedule []Milestone

var validate = validator.New()

// Validate checks the schedule shape: non-empty, every milestone requires at
// least one session, and waits are non-negative when set.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schedule: must contain at least one milestone")
	}
	for i, m := range s {
		if err := validate.Struct(m); err != nil {
			return fmt.Errorf("schedule: milestone %d: %w", i, err)
		}
		for name, w := range map[string]*int64{
			"minTimeSinceLastMilestone": m.MinTimeSinceLastMilestone,
			"minTimeBetweenSessions":    m.MinTimeBetweenSessions,
			"maxTimeBetweenSessions":    m.MaxTimeBetweenSessions,
		} {
			if w != nil && *w < 0 {
				return fmt.Errorf("schedule: milestone %d: %s must not be negative", i, name)
			}
		}
	}
	return nil
}

// Sec returns a pointer to n, for building milestone wait fields.
func Sec(n int64) *int64 {
	return &n
}

// Default returns the built-in learning schedule: five closely spaced
// sessions the first day, then single reviews at growing intervals out to
// thirty days.
func Default() Schedule {
	return Schedule{
		{MinTimeSinceLastMilestone: Sec(0), NumberOfSessions: 5, MinTimeBetweenSessions: Sec(3600), MaxTimeBetweenSessions: Sec(10800)},
		{MinTimeSinceLastMilestone: Sec(28800), NumberOfSessions: 3, MinTimeBetweenSessions: Sec(3600), MaxTimeBetweenSessions: Sec(18000)},
		{MinTimeSinceLastMilestone: Sec(115200), NumberOfSessions: 2, MinTimeBetweenSessions: Sec(3600), MaxTimeBetweenSessions: Sec(36000)},
		{MinTimeSinceLastMilestone: Sec(172800), NumberOfSessions: 1},
		{MinTimeSinceLastMilestone: Sec(259200), NumberOfSessions: 1},
		{MinTimeSinceLastMilestone: Sec(604800), NumberOfSessions: 1},
		{MinTimeSinceLastMilestone: Sec(1209600), NumberOfSessions: 1},
		{MinTimeSinceLastMilestone: Sec(2592000), NumberOfSessions: 1},
	}
}

// Describe renders a short human description of a milestone for the
// progress UI, e.g. "3 sessions with at least 1h between each (after 8h wait)".
func Describe(m Milestone) string {
	desc := fmt.Sprintf("%d session", m.NumberOfSessions)
	if m.NumberOfSessions != 1 {
		desc += "s"
	}
	if m.NumberOfSessions > 1 && m.MinTimeBetweenSessions != nil && *m.MinTimeBetweenSessions > 0 {
		desc += fmt.Sprintf(" with at least %s between each", FormatDuration(*m.MinTimeBetweenSessions))
	}
	if m.MinTimeSinceLastMilestone != nil && *m.MinTimeSinceLastMilestone > 0 {
		desc += fmt.Sprintf(" (after %s wait)", FormatDuration(*m.MinTimeSinceLastMilestone))
	}
	return desc
}
