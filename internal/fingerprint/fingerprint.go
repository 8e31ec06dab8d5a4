// Package fingerprint derives a stable content hash for a deck. Card ids are
// log and storage keys, so a deck whose fingerprint changes while progress
// exists against it is a sign an id was reused for different content.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/conorfennell/ingrain/internal/domain"
)

// normalize cleans one card side: trimmed, lowercased, with line endings
// collapsed so editor differences do not change the hash.
func normalize(side string) string {
	s := strings.ToLower(side)
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s
}

// Card returns the canonical content string of one card: id and both sides
// joined by newlines so fields cannot run together.
func Card(c domain.Card) string {
	return strings.Join([]string{
		strconv.Itoa(c.ID),
		normalize(c.Side1),
		normalize(c.Side2),
	}, "\n")
}

// Deck returns the SHA-256 hex fingerprint of the deck's cards in order.
func Deck(d domain.Deck) string {
	parts := make([]string, len(d.Cards))
	for i, c := range d.Cards {
		parts[i] = Card(c)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n---\n")))
	return fmt.Sprintf("%x", sum)
}
