// Package deckset builds the in-memory catalog of card sets from the
// configured sources: local directories of deck markdown files, or git
// repositories that are cloned and pulled on each sync.
package deckset

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conorfennell/ingrain/internal/domain"
	"github.com/conorfennell/ingrain/internal/fingerprint"
	"github.com/conorfennell/ingrain/internal/gitsource"
	"github.com/conorfennell/ingrain/internal/parser"
)

// Source is one configured deck origin: a local directory or a git URL.
type Source struct {
	Path string
}

// Set is one loaded card set: all decks parsed from a single source.
type Set struct {
	Path  string // the configured source path, used as the storage key
	Title string
	Decks []domain.Deck
}

// Catalog holds every loaded set, in configuration order.
type Catalog struct {
	Sets []Set
}

// Load syncs every source and parses its deck files. A source that fails to
// sync or walk is logged and skipped; the remaining sources still load.
func Load(sources []Source, reposDir string) (*Catalog, error) {
	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repos directory %s: %w", reposDir, err)
	}

	catalog := &Catalog{}
	for _, src := range sources {
		localPath := src.Path
		if gitsource.IsGitURL(src.Path) {
			checkout, err := gitsource.LocalPath(reposDir, src.Path)
			if err != nil {
				slog.Error("skipping source with unparseable git URL", "url", src.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(src.Path, checkout); err != nil {
				slog.Error("failed to sync git source", "url", src.Path, "error", err)
				continue
			}
			localPath = checkout
		}

		set, err := loadSet(src.Path, localPath)
		if err != nil {
			slog.Error("failed to load set", "path", src.Path, "error", err)
			continue
		}
		catalog.Sets = append(catalog.Sets, set)
	}
	return catalog, nil
}

// loadSet walks one directory and parses every .md file as a deck.
func loadSet(sourcePath, dir string) (Set, error) {
	set := Set{
		Path:  sourcePath,
		Title: titleFor(sourcePath),
	}
	seen := map[int]string{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		deck, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			slog.Warn("skipping unparseable deck file", "file", path, "error", parseErr)
			return nil
		}
		if prev, dup := seen[deck.ID]; dup {
			return fmt.Errorf("deck id %d in %s already used by %s", deck.ID, path, prev)
		}
		seen[deck.ID] = path
		set.Decks = append(set.Decks, deck)
		return nil
	})
	if err != nil {
		return Set{}, err
	}

	sort.Slice(set.Decks, func(i, j int) bool { return set.Decks[i].ID < set.Decks[j].ID })
	return set, nil
}

func titleFor(sourcePath string) string {
	trimmed := strings.TrimSuffix(sourcePath, ".git")
	trimmed = strings.TrimRight(trimmed, "/")
	if base := filepath.Base(trimmed); base != "." && base != "" {
		return base
	}
	return sourcePath
}

// Set returns the set with the given path.
func (c *Catalog) Set(path string) (*Set, bool) {
	for i := range c.Sets {
		if c.Sets[i].Path == path {
			return &c.Sets[i], true
		}
	}
	return nil, false
}

// Deck returns one deck of one set.
func (c *Catalog) Deck(setPath string, deckID int) (domain.Deck, bool) {
	set, ok := c.Set(setPath)
	if !ok {
		return domain.Deck{}, false
	}
	for _, d := range set.Decks {
		if d.ID == deckID {
			return d, true
		}
	}
	return domain.Deck{}, false
}

// FingerprintStore records deck content fingerprints across syncs.
type FingerprintStore interface {
	Fingerprint(setPath string, deckID int) (string, error)
	SaveFingerprint(setPath string, deckID int, fp string) error
}

// CheckFingerprints compares every deck's content hash against the stored
// one and warns when a deck id now carries different content. Ids are log
// and storage keys, so silent reuse would corrupt recorded progress.
func (c *Catalog) CheckFingerprints(store FingerprintStore) {
	for _, set := range c.Sets {
		for _, deck := range set.Decks {
			fp := fingerprint.Deck(deck)
			stored, err := store.Fingerprint(set.Path, deck.ID)
			if err != nil {
				slog.Warn("failed to load deck fingerprint", "set", set.Path, "deck", deck.ID, "error", err)
				continue
			}
			if stored != "" && stored != fp {
				slog.Warn("deck content changed under an existing id; recorded progress may not match",
					"set", set.Path, "deck", deck.ID)
			}
			if stored != fp {
				if err := store.SaveFingerprint(set.Path, deck.ID, fp); err != nil {
					slog.Warn("failed to save deck fingerprint", "set", set.Path, "deck", deck.ID, "error", err)
				}
			}
		}
	}
}
