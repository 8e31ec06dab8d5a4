package storage

const schema = `
-- One row per (set, deck): the whole deck session document as JSON.
CREATE TABLE IF NOT EXISTS deck_sessions (
    set_path TEXT NOT NULL,
    deck_id INTEGER NOT NULL,
    data TEXT NOT NULL,
    updated_at DATETIME NOT NULL,

    PRIMARY KEY (set_path, deck_id)
);

-- One row per set: the study settings document as JSON.
CREATE TABLE IF NOT EXISTS set_settings (
    set_path TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

-- Content fingerprints of decks, used to warn when a deck id is reused for
-- different content after progress has been recorded against it.
CREATE TABLE IF NOT EXISTS deck_fingerprints (
    set_path TEXT NOT NULL,
    deck_id INTEGER NOT NULL,
    fingerprint TEXT NOT NULL,

    PRIMARY KEY (set_path, deck_id)
);
`
