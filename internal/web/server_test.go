package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/conorfennell/ingrain/internal/deckset"
	"github.com/conorfennell/ingrain/internal/domain"
	"github.com/conorfennell/ingrain/internal/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	catalog := &deckset.Catalog{Sets: []deckset.Set{{
		Path:  "decks",
		Title: "decks",
		Decks: []domain.Deck{{
			ID:    1,
			Title: "Test",
			Cards: []domain.Card{
				{ID: 1, Side1: "q1", Side2: "a1"},
				{ID: 2, Side1: "q2", Side2: "a2"},
			},
		}},
	}}}

	s, err := NewServer(db, catalog, nil, t.TempDir())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestConcurrentStudyActions(t *testing.T) {
	srv := httptest.NewServer(testServer(t))
	t.Cleanup(srv.Close)

	q := url.Values{"set": {"decks"}, "deck": {"1"}}.Encode()
	post := func(path string) error {
		resp, err := http.Post(srv.URL+path+"?"+q, "application/x-www-form-urlencoded", nil)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: status %d", path, resp.StatusCode)
		}
		return nil
	}

	if err := post("/study/start"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Overlapping HTMX actions against the same runner must serialize
	// cleanly; each request runs on its own goroutine inside net/http.
	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- post("/study/flip")
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- post("/study/font")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}

func TestIndexListsDecks(t *testing.T) {
	srv := httptest.NewServer(testServer(t))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
