package domain

// Card is one two-sided flashcard. Sides are markdown and opaque to the
// scheduling engine. IDs are stable within a deck and must never be reused
// for different content once progress has been recorded against them.
type Card struct {
	ID    int    `json:"id"`
	Side1 string `json:"side1"`
	Side2 string `json:"side2"`
}

// Deck is an ordered set of cards studied together.
type Deck struct {
	ID    int      `json:"id"`
	Title string   `json:"title"`
	Cards []Card   `json:"cards"`
	Tags  []string `json:"tags"`
}
