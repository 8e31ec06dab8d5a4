package domain

import "github.com/conorfennell/ingrain/internal/schedule"

// DefaultTotalRounds is the number of passes through a deck per session when
// the set does not configure its own.
const DefaultTotalRounds = 3

// DeckSession is the persisted per-(set, deck) progress document. It is
// created lazily on first session start, written after every card answer and
// at session completion, and destroyed only by an explicit reset.
type DeckSession struct {
	CurrentRound   int             `json:"currentRound"`
	WrongFirstTime []int           `json:"wrongFirstTime"`
	LearningLog    []LogEntry      `json:"learningLog"`
	CardFontSizes  map[int]float64 `json:"cardFontSizes,omitempty"`
}

// SetSettings are the per-set study preferences.
type SetSettings struct {
	ReverseDeck      bool              `json:"reverseDeck,omitempty"`
	ShuffleDeck      bool              `json:"shuffleDeck,omitempty"`
	TotalRounds      int               `json:"totalRounds,omitempty"`
	LearningSchedule schedule.Schedule `json:"learningSchedule,omitempty"`
}

// Rounds returns the configured rounds per session, defaulting when unset.
func (s SetSettings) Rounds() int {
	if s.TotalRounds < 1 {
		return DefaultTotalRounds
	}
	return s.TotalRounds
}

// Schedule returns the configured learning schedule, defaulting when unset.
func (s SetSettings) Schedule() schedule.Schedule {
	if len(s.LearningSchedule) == 0 {
		return schedule.Default()
	}
	return s.LearningSchedule
}

// SetData is everything persisted for one set: its settings and the session
// document of every deck that has been studied.
type SetData struct {
	Settings SetSettings         `json:"settings"`
	Decks    map[int]DeckSession `json:"decks"`
}
