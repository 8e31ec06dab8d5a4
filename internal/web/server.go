package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yuin/goldmark"

	"github.com/conorfennell/ingrain/internal/deckset"
	"github.com/conorfennell/ingrain/internal/domain"
	"github.com/conorfennell/ingrain/internal/learning"
	"github.com/conorfennell/ingrain/internal/migrate"
	"github.com/conorfennell/ingrain/internal/schedule"
	"github.com/conorfennell/ingrain/internal/session"
	"github.com/conorfennell/ingrain/internal/storage"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        *storage.DB
	catalog   *deckset.Catalog
	sources   []deckset.Source
	reposDir  string
	router    *http.ServeMux
	templates *template.Template
	md        goldmark.Markdown

	// mu serializes handlers: runners are mutated in place and the catalog
	// is swapped on sync, while net/http runs each request on its own
	// goroutine. One live runner per (set, deck).
	mu      sync.Mutex
	runners map[string]*session.Runner
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, catalog *deckset.Catalog, sources []deckset.Source, reposDir string) (*Server, error) {
	funcs := template.FuncMap{
		"add1": func(n int) int { return n + 1 },
		"pct":  func(f float64) int { return int(f * 100) },
	}
	tpl, err := template.New("").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		db:        db,
		catalog:   catalog,
		sources:   sources,
		reposDir:  reposDir,
		router:    http.NewServeMux(),
		templates: tpl,
		md:        goldmark.New(),
		runners:   map[string]*session.Runner{},
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to create sub-filesystem for static assets: %v", err))
	}
	s.router.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.HandleFunc("/", s.handleIndex())
	s.router.HandleFunc("/study", s.handleStudy())
	s.router.HandleFunc("/study/start", s.studyAction(func(r *session.Runner, req *http.Request) {
		mode := session.ModeAll
		if req.PostFormValue("mode") == string(session.ModeStruggling) {
			mode = session.ModeStruggling
		}
		r.Start(mode)
	}))
	s.router.HandleFunc("/study/flip", s.studyAction(func(r *session.Runner, _ *http.Request) { r.Flip() }))
	s.router.HandleFunc("/study/correct", s.studyAction(func(r *session.Runner, _ *http.Request) { r.MarkCorrect() }))
	s.router.HandleFunc("/study/incorrect", s.studyAction(func(r *session.Runner, _ *http.Request) { r.MarkIncorrect() }))
	s.router.HandleFunc("/study/retry", s.studyAction(func(r *session.Runner, _ *http.Request) { r.RetryMilestone() }))
	s.router.HandleFunc("/study/demote", s.studyAction(func(r *session.Runner, _ *http.Request) { r.DemoteToPrevious() }))
	s.router.HandleFunc("/study/font", s.studyAction(func(r *session.Runner, req *http.Request) {
		if req.PostFormValue("dir") == "down" {
			r.SetFontScale(-0.1)
		} else {
			r.SetFontScale(0.1)
		}
	}))
	s.router.HandleFunc("/deck/reset", s.handleReset())
	s.router.HandleFunc("/settings", s.handleSettings())
	s.router.HandleFunc("/sync", s.handleSync())
}

func runnerKey(setPath string, deckID int) string {
	return fmt.Sprintf("%s#%d", setPath, deckID)
}

// deckParams extracts and resolves the set/deck query parameters.
func (s *Server) deckParams(r *http.Request) (string, domain.Deck, error) {
	setPath := r.FormValue("set")
	deckID, err := strconv.Atoi(r.FormValue("deck"))
	if err != nil {
		return "", domain.Deck{}, fmt.Errorf("invalid deck id: %w", err)
	}
	deck, ok := s.catalog.Deck(setPath, deckID)
	if !ok {
		return "", domain.Deck{}, fmt.Errorf("unknown deck %d in set %s", deckID, setPath)
	}
	return setPath, deck, nil
}

// runner returns the live session runner for a deck, building one from
// persisted state when none exists yet.
func (s *Server) runner(setPath string, deck domain.Deck) (*session.Runner, error) {
	key := runnerKey(setPath, deck.ID)
	if r, ok := s.runners[key]; ok {
		return r, nil
	}
	data, err := s.db.Load(setPath)
	if err != nil {
		return nil, err
	}
	r := session.New(deck, setPath, data.Settings, data.Decks[deck.ID], s.db)
	s.runners[key] = r
	return r, nil
}

// --- Deck list -----------------------------------------------------------

type deckRow struct {
	Deck       domain.Deck
	Status     learning.DeckStatus
	Milestones int
	NextIn     string
	Tags       []string
}

type setView struct {
	Path  string
	Title string
	Decks []deckRow
}

func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		now := time.Now()
		var sets []setView
		for _, set := range s.catalog.Sets {
			data, err := s.db.Load(set.Path)
			if err != nil {
				slog.Error("failed to load set data", "set", set.Path, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			sched := data.Settings.Schedule()
			sv := setView{Path: set.Path, Title: set.Title}
			for _, deck := range set.Decks {
				st := learning.Status(data.Decks[deck.ID].LearningLog, sched, now)
				row := deckRow{Deck: deck, Status: st, Milestones: len(sched), Tags: deck.Tags}
				if st.NextReview != nil && *st.NextReview > now.UnixMilli() {
					row.NextIn = schedule.FormatDuration((*st.NextReview - now.UnixMilli()) / 1000)
				}
				sv.Decks = append(sv.Decks, row)
			}
			sets = append(sets, sv)
		}
		s.render(w, "index", map[string]any{"Sets": sets})
	}
}

// --- Study flow ----------------------------------------------------------

type studyView struct {
	SetPath    string
	Deck       domain.Deck
	R          *session.Runner
	Status     learning.DeckStatus
	CardHTML   template.HTML
	FontScale  float64
	Milestones int
}

func (s *Server) studyFor(setPath string, deck domain.Deck) (studyView, error) {
	r, err := s.runner(setPath, deck)
	if err != nil {
		return studyView{}, err
	}
	data, err := s.db.Load(setPath)
	if err != nil {
		return studyView{}, err
	}
	sched := data.Settings.Schedule()
	view := studyView{
		SetPath:    setPath,
		Deck:       deck,
		R:          r,
		Status:     learning.Status(data.Decks[deck.ID].LearningLog, sched, time.Now()),
		FontScale:  r.FontScale(),
		Milestones: len(sched),
	}
	if text := r.VisibleText(); text != "" {
		view.CardHTML = s.renderMarkdown(text)
	}
	return view, nil
}

func (s *Server) handleStudy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		setPath, deck, err := s.deckParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		view, err := s.studyFor(setPath, deck)
		if err != nil {
			slog.Error("failed to build study view", "set", setPath, "deck", deck.ID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.render(w, "study", view)
	}
}

// studyAction wraps a runner mutation: it resolves the deck, applies the
// mutation, and re-renders the study area for HTMX to swap in.
func (s *Server) studyAction(apply func(*session.Runner, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		setPath, deck, err := s.deckParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		runner, err := s.runner(setPath, deck)
		if err != nil {
			slog.Error("failed to load session", "set", setPath, "deck", deck.ID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		apply(runner, r)

		view, err := s.studyFor(setPath, deck)
		if err != nil {
			slog.Error("failed to build study view", "set", setPath, "deck", deck.ID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.render(w, "study_body", view)
	}
}

func (s *Server) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		setPath, deck, err := s.deckParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.db.ResetDeck(setPath, deck.ID); err != nil {
			slog.Error("failed to reset deck", "set", setPath, "deck", deck.ID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		delete(s.runners, runnerKey(setPath, deck.ID))

		view, err := s.studyFor(setPath, deck)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.render(w, "study_body", view)
	}
}

// --- Settings and schedule editing ---------------------------------------

type settingsView struct {
	SetPath      string
	Settings     domain.SetSettings
	ScheduleText string
	Saved        bool
	Migrated     bool
	Error        string
}

func (s *Server) handleSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		setPath := r.FormValue("set")
		if _, ok := s.catalog.Set(setPath); !ok {
			http.Error(w, "Unknown set", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			data, err := s.db.Load(setPath)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			s.render(w, "settings", settingsView{
				SetPath:      setPath,
				Settings:     data.Settings,
				ScheduleText: formatScheduleText(data.Settings.Schedule()),
			})
		case http.MethodPost:
			s.saveSettings(w, r, setPath)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// saveSettings applies a settings form submission. A schedule change runs the
// log migration over every deck in the set and persists only when something
// actually changed.
func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request, setPath string) {
	settings := domain.SetSettings{
		ReverseDeck: r.PostFormValue("reverseDeck") == "on",
		ShuffleDeck: r.PostFormValue("shuffleDeck") == "on",
	}
	if rounds, err := strconv.Atoi(r.PostFormValue("totalRounds")); err == nil && rounds > 0 {
		settings.TotalRounds = rounds
	}

	scheduleText := r.PostFormValue("schedule")
	sched, err := parseScheduleText(scheduleText)
	if err != nil {
		s.render(w, "settings", settingsView{
			SetPath: setPath, Settings: settings, ScheduleText: scheduleText,
			Error: err.Error(),
		})
		return
	}
	settings.LearningSchedule = sched

	all, err := s.db.LoadAll()
	if err != nil {
		slog.Error("failed to load data for migration", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if _, ok := all[setPath]; !ok {
		data, loadErr := s.db.Load(setPath)
		if loadErr != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		all[setPath] = data
	}

	migrated := migrate.Decks(all, setPath, sched)

	if err := s.db.SaveSettings(setPath, settings); err != nil {
		slog.Error("failed to save settings", "set", setPath, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if migrated {
		for deckID, deck := range all[setPath].Decks {
			if err := s.db.SaveDeck(setPath, deckID, deck); err != nil {
				slog.Error("failed to persist migrated deck", "set", setPath, "deck", deckID, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}
	}

	// Settings and schedule changes invalidate any cached runners of the set.
	for _, set := range s.catalog.Sets {
		if set.Path != setPath {
			continue
		}
		for _, deck := range set.Decks {
			delete(s.runners, runnerKey(setPath, deck.ID))
		}
	}

	s.render(w, "settings", settingsView{
		SetPath:      setPath,
		Settings:     settings,
		ScheduleText: formatScheduleText(sched),
		Saved:        true,
		Migrated:     migrated,
	})
}

func (s *Server) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		catalog, err := deckset.Load(s.sources, s.reposDir)
		if err != nil {
			slog.Error("failed to sync deck sources", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		catalog.CheckFingerprints(s.db)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.catalog = catalog
		s.runners = map[string]*session.Runner{}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// --- Helpers -------------------------------------------------------------

func (s *Server) renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		slog.Warn("failed to render card markdown", "error", err)
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}
