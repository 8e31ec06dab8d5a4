package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/ingrain/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB wraps the SQL database connection holding all study progress.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Load returns everything persisted for the set at setPath. Rows that fail
// to decode are discarded with a warning: a malformed document degrades to an
// empty one rather than surfacing a shape error to the caller.
func (db *DB) Load(setPath string) (domain.SetData, error) {
	data := domain.SetData{Decks: map[int]domain.DeckSession{}}

	var raw string
	err := db.conn.QueryRow(`
		SELECT data FROM set_settings WHERE set_path = ?
	`, setPath).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		// No settings stored yet, keep defaults.
	case err != nil:
		return data, fmt.Errorf("failed to load settings for set %s: %w", setPath, err)
	default:
		if jsonErr := json.Unmarshal([]byte(raw), &data.Settings); jsonErr != nil {
			slog.Warn("discarding malformed set settings", "set", setPath, "error", jsonErr)
			data.Settings = domain.SetSettings{}
		}
	}

	rows, err := db.conn.Query(`
		SELECT deck_id, data FROM deck_sessions WHERE set_path = ?
	`, setPath)
	if err != nil {
		return data, fmt.Errorf("failed to load deck sessions for set %s: %w", setPath, err)
	}
	defer rows.Close()

	for rows.Next() {
		var deckID int
		if err := rows.Scan(&deckID, &raw); err != nil {
			return data, fmt.Errorf("failed to scan deck session row for set %s: %w", setPath, err)
		}
		var deck domain.DeckSession
		if jsonErr := json.Unmarshal([]byte(raw), &deck); jsonErr != nil {
			slog.Warn("discarding malformed deck session", "set", setPath, "deck", deckID, "error", jsonErr)
			continue
		}
		data.Decks[deckID] = deck
	}
	return data, rows.Err()
}

// LoadAll returns the persisted data of every set keyed by set path.
func (db *DB) LoadAll() (map[string]domain.SetData, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT set_path FROM deck_sessions
		UNION SELECT set_path FROM set_settings
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list set paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan set path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all := make(map[string]domain.SetData, len(paths))
	for _, p := range paths {
		data, err := db.Load(p)
		if err != nil {
			return nil, err
		}
		all[p] = data
	}
	return all, nil
}

// SaveDeck upserts the session document for one deck.
func (db *DB) SaveDeck(setPath string, deckID int, data domain.DeckSession) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode deck session for set %s deck %d: %w", setPath, deckID, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO deck_sessions (set_path, deck_id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (set_path, deck_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, setPath, deckID, string(raw), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save deck session for set %s deck %d: %w", setPath, deckID, err)
	}
	return nil
}

// SaveSettings upserts the settings document for one set.
func (db *DB) SaveSettings(setPath string, settings domain.SetSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings for set %s: %w", setPath, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO set_settings (set_path, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (set_path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, setPath, string(raw), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save settings for set %s: %w", setPath, err)
	}
	return nil
}

// SaveSet persists a whole set document: its settings and every deck session.
// Used after schedule migration rewrites several decks at once.
func (db *DB) SaveSet(setPath string, data domain.SetData) error {
	if err := db.SaveSettings(setPath, data.Settings); err != nil {
		return err
	}
	for deckID, deck := range data.Decks {
		if err := db.SaveDeck(setPath, deckID, deck); err != nil {
			return err
		}
	}
	return nil
}

// ResetDeck removes all recorded progress for one deck.
func (db *DB) ResetDeck(setPath string, deckID int) error {
	_, err := db.conn.Exec(`
		DELETE FROM deck_sessions WHERE set_path = ? AND deck_id = ?
	`, setPath, deckID)
	if err != nil {
		return fmt.Errorf("failed to reset deck session for set %s deck %d: %w", setPath, deckID, err)
	}
	return nil
}

// Fingerprint returns the stored content fingerprint for a deck, or "" when
// none is recorded.
func (db *DB) Fingerprint(setPath string, deckID int) (string, error) {
	var fp string
	err := db.conn.QueryRow(`
		SELECT fingerprint FROM deck_fingerprints WHERE set_path = ? AND deck_id = ?
	`, setPath, deckID).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load fingerprint for set %s deck %d: %w", setPath, deckID, err)
	}
	return fp, nil
}

// SaveFingerprint upserts the content fingerprint for a deck.
func (db *DB) SaveFingerprint(setPath string, deckID int, fingerprint string) error {
	_, err := db.conn.Exec(`
		INSERT INTO deck_fingerprints (set_path, deck_id, fingerprint)
		VALUES (?, ?, ?)
		ON CONFLICT (set_path, deck_id) DO UPDATE SET fingerprint = excluded.fingerprint
	`, setPath, deckID, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to save fingerprint for set %s deck %d: %w", setPath, deckID, err)
	}
	return nil
}
