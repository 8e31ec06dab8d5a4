package learning

import (
	"encoding"
	"fmt"
)

// State is the scheduling status of a deck.
type State int

const (
	New       State = iota + 1 // never studied
	Due                        // next session available now
	Overdue                    // past the milestone's maximum session gap
	Scheduled                  // waiting out a minimum gap
	Ingrained                  // finished the schedule, no further reviews
)

var stateNames = [...]string{
	New:       "new",
	Due:       "due",
	Overdue:   "overdue",
	Scheduled: "scheduled",
	Ingrained: "ingrained",
}

var stateLabels = [...]string{
	New:       "Ready",
	Due:       "Due",
	Overdue:   "Overdue",
	Scheduled: "Scheduled",
	Ingrained: "Ingrained",
}

var (
	_ fmt.Stringer           = State(0)
	_ encoding.TextMarshaler = State(0)
)

func (s State) isValid() bool {
	return s >= New && s <= Ingrained
}

// String returns the lowercase name of the state.
func (s State) String() string {
	if s.isValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Label returns the display label shown in deck lists.
func (s State) Label() string {
	if s.isValid() {
		return stateLabels[s]
	}
	return s.String()
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.isValid() {
		return nil, fmt.Errorf("learning: invalid state: %d", int(s))
	}
	return []byte(stateNames[s]), nil
}
