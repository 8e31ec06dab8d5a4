package session

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/conorfennell/ingrain/internal/domain"
	"github.com/conorfennell/ingrain/internal/learning"
	"github.com/conorfennell/ingrain/internal/schedule"
)

// Mode selects which cards a session starts with.
type Mode string

const (
	// ModeAll studies the whole deck.
	ModeAll Mode = "all"
	// ModeStruggling studies only the cards missed in the current cycle.
	ModeStruggling Mode = "struggling"
)

// Saver checkpoints the deck session document after every mutation.
type Saver interface {
	SaveDeck(setPath string, deckID int, data domain.DeckSession) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock overrides the runner's clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithRand overrides the shuffle source for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(r *Runner) { r.rng = rng }
}

// Runner manages the live card queue of one study session: the round-robin
// retry of missed cards, the wrong-first-time stumble set, and the log entry
// written on completion. It is in-memory only and checkpoints through the
// Saver on each mutation.
type Runner struct {
	deck     domain.Deck
	setPath  string
	settings domain.SetSettings
	sched    schedule.Schedule
	store    Saver
	now      func() time.Time
	rng      *rand.Rand

	Remaining      []domain.Card
	Done           []domain.Card
	WrongFirstTime []int
	CurrentRound   int
	Mode           Mode
	CardFontSizes  map[int]float64

	MilestoneIndex int
	SessionIndex   int
	IsExtra        bool
	IsIngrained    bool
	isDue          bool

	StartTime int64 // epoch-ms, zero until the session clock starts
	EndTime   int64
	Log       []domain.LogEntry

	Started            bool
	Completed          bool
	ShowDemotionChoice bool
	Score              float64
	MissedCount        int

	showingAnswer bool
}

// New builds a runner for one deck from its persisted session document. If
// the document records an in-progress session (a non-zero round), the session
// resumes immediately in all-cards mode.
func New(deck domain.Deck, setPath string, settings domain.SetSettings, saved domain.DeckSession, store Saver, opts ...Option) *Runner {
	r := &Runner{
		deck:           deck,
		setPath:        setPath,
		settings:       settings,
		sched:          settings.Schedule(),
		store:          store,
		now:            time.Now,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		Mode:           ModeAll,
		WrongFirstTime: append([]int(nil), saved.WrongFirstTime...),
		CurrentRound:   saved.CurrentRound,
		Log:            append([]domain.LogEntry(nil), saved.LearningLog...),
		CardFontSizes:  map[int]float64{},
	}
	for _, opt := range opts {
		opt(r)
	}
	for id, size := range saved.CardFontSizes {
		r.CardFontSizes[id] = size
	}

	r.resolvePosition()

	if r.CurrentRound > 0 {
		r.Start(ModeAll)
	}
	return r
}

// resolvePosition derives the schedule pointer from the learning log.
func (r *Runner) resolvePosition() {
	st := learning.Status(r.Log, r.sched, r.now())
	if st.IsIngrained {
		r.IsIngrained = true
		r.MilestoneIndex = len(r.sched)
		r.SessionIndex = 0
		r.isDue = false // ingrained decks are never due, only available
		return
	}
	r.IsIngrained = false
	r.MilestoneIndex = st.MilestoneIndex
	r.SessionIndex = st.SessionIndex
	r.isDue = st.State == learning.New || st.State == learning.Due || st.State == learning.Overdue
}

// Start begins a session in the given mode and builds the initial queue.
func (r *Runner) Start(mode Mode) {
	r.Mode = mode
	r.Started = true
	r.showingAnswer = false
	if r.StartTime == 0 {
		r.StartTime = r.now().UnixMilli()
	}

	// A session started before the deck is due is extra practice: it never
	// advances the schedule pointer and never erases known weak spots.
	r.IsExtra = !r.isDue

	if (!r.IsExtra || r.IsIngrained) && r.CurrentRound == 0 && mode == ModeAll {
		r.WrongFirstTime = nil
	}
	r.checkpoint()

	cards := append([]domain.Card(nil), r.deck.Cards...)
	if r.CurrentRound > 0 || mode == ModeStruggling {
		cards = r.filterWrong(cards)
		if len(cards) == 0 && mode == ModeStruggling {
			// Nothing recorded as struggling: fall back to the full deck.
			cards = append([]domain.Card(nil), r.deck.Cards...)
			r.Mode = ModeAll
		} else if len(cards) == 0 && r.CurrentRound > 0 {
			// Resume state no longer matches any card: finish rather than
			// presenting an empty queue.
			r.complete()
			return
		}
	}

	if r.settings.ShuffleDeck {
		r.shuffle(cards)
	}
	r.Remaining = cards
	r.Done = nil
}

// Current returns the card at the head of the queue.
func (r *Runner) Current() (domain.Card, bool) {
	if len(r.Remaining) == 0 {
		return domain.Card{}, false
	}
	return r.Remaining[0], true
}

// Flip toggles between the question and answer side of the current card,
// starting the session clock if it has not started yet.
func (r *Runner) Flip() {
	if r.StartTime == 0 {
		r.StartTime = r.now().UnixMilli()
	}
	r.showingAnswer = !r.showingAnswer
}

// ShowingAnswer reports whether the answer side is currently visible.
func (r *Runner) ShowingAnswer() bool {
	return r.showingAnswer
}

// VisibleText returns the markdown for the side currently shown. The
// question side is Side2 when the set reverses decks, Side1 otherwise.
func (r *Runner) VisibleText() string {
	card, ok := r.Current()
	if !ok {
		return ""
	}
	question, answer := card.Side1, card.Side2
	if r.settings.ReverseDeck {
		question, answer = answer, question
	}
	if r.showingAnswer {
		return answer
	}
	return question
}

// MarkCorrect records a correct answer for the current card and advances the
// queue, rolling over to the next round (or completing the session) when the
// queue empties.
func (r *Runner) MarkCorrect() {
	card, ok := r.Current()
	if !ok {
		return
	}
	r.Done = append(r.Done, card)
	r.Remaining = r.Remaining[1:]
	r.showingAnswer = false

	// Deliberate struggling-only review on a counted session: a correct
	// answer clears the recorded stumble.
	if (!r.IsExtra || r.IsIngrained) && r.CurrentRound == 0 && r.Mode == ModeStruggling {
		r.removeWrong(card.ID)
		r.checkpoint()
	}

	if len(r.Remaining) > 0 {
		return
	}

	r.CurrentRound++
	r.checkpoint()

	if r.CurrentRound >= r.settings.Rounds() {
		r.complete()
		return
	}

	next := r.filterWrong(r.Done)
	if len(next) == 0 {
		r.complete()
		return
	}
	if r.settings.ShuffleDeck {
		r.shuffle(next)
	}
	r.Remaining = next
	r.Done = nil
}

// MarkIncorrect records a miss: the card joins the stumble set if it is not
// already in it, and goes to the back of the queue so every other pending
// card is seen once before it comes around again.
func (r *Runner) MarkIncorrect() {
	card, ok := r.Current()
	if !ok {
		return
	}
	if !r.isWrong(card.ID) {
		r.WrongFirstTime = append(r.WrongFirstTime, card.ID)
		r.checkpoint()
	}
	r.Remaining = append(r.Remaining[1:], card)
	r.showingAnswer = false
}

// complete finalizes the session: computes the score and outcome, writes the
// log entry, and resets the round counter.
func (r *Runner) complete() {
	r.EndTime = r.now().UnixMilli()
	r.MissedCount = len(r.WrongFirstTime)
	r.Score = learning.Score(len(r.deck.Cards), r.MissedCount)

	out := learning.Outcome(r.MilestoneIndex, r.SessionIndex, r.Score, r.sched, r.EndTime)

	entry := domain.LogEntry{
		MilestoneIndex: r.MilestoneIndex,
		SessionIndex:   r.SessionIndex,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		NextReview:     out.NextReview,
		IsExtra:        r.IsExtra,
		MissedCount:    r.MissedCount,
	}

	// A failed end-of-milestone attempt is recorded as if the previous
	// milestone had just finished, so that retry and demotion both resolve
	// without special cases.
	cur := r.sched[min(r.MilestoneIndex, len(r.sched)-1)]
	if r.SessionIndex == cur.NumberOfSessions-1 && r.Score < learning.MasteredScore {
		entry.MilestoneIndex = r.MilestoneIndex - 1
		entry.SessionIndex = domain.SessionRepeating
	}

	if out.IsIngrained {
		r.IsIngrained = true
	}
	// An ingrained deck is never offered demotion: extra practice cannot
	// undo ingrained status.
	r.ShowDemotionChoice = out.ShowDemotionChoice && !r.IsIngrained

	r.Log = append(r.Log, entry)
	r.CurrentRound = 0
	r.checkpoint()
	r.Completed = true
}

// RetryMilestone clears the stumble set and rewinds the in-memory state so
// the same milestone shows as newly due.
func (r *Runner) RetryMilestone() {
	r.ShowDemotionChoice = false
	r.Completed = false
	r.Started = false
	r.StartTime = 0
	r.Remaining = nil
	r.Done = nil
	r.WrongFirstTime = nil
	r.checkpoint()
	r.resolvePosition()
	r.isDue = true
}

// DemoteToPrevious rolls the deck back one milestone after a poor score. It
// rewrites the last log entry with the repeat sentinel so the target
// milestone resolves as newly due. Demotion below the first milestone is not
// permitted.
func (r *Runner) DemoteToPrevious() {
	r.ShowDemotionChoice = false
	if len(r.Log) == 0 || r.IsIngrained {
		return
	}
	target := r.MilestoneIndex - 1
	if target < 0 {
		return
	}
	last := &r.Log[len(r.Log)-1]
	last.MilestoneIndex = target - 1
	last.SessionIndex = domain.SessionRepeating
	nr := r.now().UnixMilli()
	last.NextReview = &nr
	r.checkpoint()

	r.Completed = false
	r.Started = false
	r.StartTime = 0
	r.Remaining = nil
	r.Done = nil
	r.resolvePosition()
	r.isDue = true
}

// SetFontScale adjusts the stored font scale of the current card by delta,
// clamped to a readable minimum.
func (r *Runner) SetFontScale(delta float64) {
	card, ok := r.Current()
	if !ok {
		return
	}
	scale, found := r.CardFontSizes[card.ID]
	if !found {
		scale = 2.25
	}
	scale += delta
	if scale < 0.5 {
		scale = 0.5
	}
	r.CardFontSizes[card.ID] = scale
	r.checkpoint()
}

// FontScale returns the stored font scale for the current card.
func (r *Runner) FontScale() float64 {
	card, ok := r.Current()
	if !ok {
		return 2.25
	}
	if scale, found := r.CardFontSizes[card.ID]; found {
		return scale
	}
	return 2.25
}

// StrugglingCount is the number of cards currently recorded as stumbles.
func (r *Runner) StrugglingCount() int {
	return len(r.WrongFirstTime)
}

// IsNewMilestone reports whether the next session starts a milestone.
func (r *Runner) IsNewMilestone() bool {
	return r.SessionIndex == 0
}

// Deck returns the deck under study.
func (r *Runner) Deck() domain.Deck {
	return r.deck
}

// TotalRounds is the configured rounds per session.
func (r *Runner) TotalRounds() int {
	return r.settings.Rounds()
}

// Milestone returns the milestone the session counts toward.
func (r *Runner) Milestone() schedule.Milestone {
	return r.sched[min(r.MilestoneIndex, len(r.sched)-1)]
}

func (r *Runner) snapshot() domain.DeckSession {
	fonts := make(map[int]float64, len(r.CardFontSizes))
	for id, size := range r.CardFontSizes {
		fonts[id] = size
	}
	return domain.DeckSession{
		CurrentRound:   r.CurrentRound,
		WrongFirstTime: append([]int(nil), r.WrongFirstTime...),
		LearningLog:    append([]domain.LogEntry(nil), r.Log...),
		CardFontSizes:  fonts,
	}
}

func (r *Runner) checkpoint() {
	if r.store == nil {
		return
	}
	if err := r.store.SaveDeck(r.setPath, r.deck.ID, r.snapshot()); err != nil {
		slog.Warn("failed to checkpoint session", "set", r.setPath, "deck", r.deck.ID, "error", err)
	}
}

func (r *Runner) filterWrong(cards []domain.Card) []domain.Card {
	var out []domain.Card
	for _, c := range cards {
		if r.isWrong(c.ID) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Runner) isWrong(id int) bool {
	for _, w := range r.WrongFirstTime {
		if w == id {
			return true
		}
	}
	return false
}

func (r *Runner) removeWrong(id int) {
	out := r.WrongFirstTime[:0]
	for _, w := range r.WrongFirstTime {
		if w != id {
			out = append(out, w)
		}
	}
	r.WrongFirstTime = out
}

// shuffle is an in-place Fisher-Yates shuffle.
func (r *Runner) shuffle(cards []domain.Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := r.rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
