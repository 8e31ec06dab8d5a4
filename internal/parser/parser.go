package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/conorfennell/ingrain/internal/domain"
)

const (
	deckPrefix  = "Deck:"
	tagsPrefix  = "Tags:"
	idPrefix    = "ID:"
	side1Prefix = "S1:"
	side2Prefix = "S2:"
)

type state int

const (
	seeking state = iota
	readingSide1
	readingSide2
)

// ParseFile reads a deck file from the given path.
func ParseFile(path string) (domain.Deck, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.Deck{}, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads one deck from an io.Reader. The format is a header followed by
// card blocks:
//
//	# Deck title
//	Deck: 3
//	Tags: go, basics
//
//	ID: 1
//	S1: question side (markdown, may span lines)
//	S2: answer side
//	---
//	ID: 2
//	...
//
// Card and deck ids are stable integers; a duplicate card id is an error.
// Cards without a non-empty S1 side are dropped, matching hand-edited files
// with trailing separators.
func Parse(r io.Reader) (domain.Deck, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var deck domain.Deck
	deckIDSet := false
	seen := map[int]bool{}

	var currentCard domain.Card
	cardHasID := false
	var currentBlock []string
	currentState := seeking

	closeBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(currentBlock, "\n"), "\n ")
		switch currentState {
		case readingSide1:
			currentCard.Side1 = content
		case readingSide2:
			currentCard.Side2 = content
		}
		currentBlock = nil
	}

	finishCard := func() error {
		closeBlock()
		if cardHasID && strings.TrimSpace(currentCard.Side1) != "" {
			if seen[currentCard.ID] {
				return fmt.Errorf("duplicate card id %d", currentCard.ID)
			}
			seen[currentCard.ID] = true
			deck.Cards = append(deck.Cards, currentCard)
		}
		currentCard = domain.Card{}
		cardHasID = false
		currentState = seeking
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "---":
			if err := finishCard(); err != nil {
				return domain.Deck{}, err
			}

		case strings.HasPrefix(line, "# ") && deck.Title == "":
			deck.Title = strings.TrimSpace(line[2:])

		case strings.HasPrefix(line, deckPrefix) && !cardHasID:
			id, err := strconv.Atoi(strings.TrimSpace(line[len(deckPrefix):]))
			if err != nil {
				return domain.Deck{}, fmt.Errorf("invalid deck id %q: %w", line, err)
			}
			deck.ID = id
			deckIDSet = true

		case strings.HasPrefix(line, tagsPrefix) && !cardHasID:
			for _, tag := range strings.Split(line[len(tagsPrefix):], ",") {
				if t := strings.TrimSpace(tag); t != "" {
					deck.Tags = append(deck.Tags, t)
				}
			}

		case strings.HasPrefix(line, idPrefix):
			// A new id always starts a new card.
			if cardHasID {
				if err := finishCard(); err != nil {
					return domain.Deck{}, err
				}
			}
			id, err := strconv.Atoi(strings.TrimSpace(line[len(idPrefix):]))
			if err != nil {
				return domain.Deck{}, fmt.Errorf("invalid card id %q: %w", line, err)
			}
			currentCard.ID = id
			cardHasID = true
			currentState = seeking

		case strings.HasPrefix(line, side1Prefix):
			closeBlock()
			currentState = readingSide1
			currentBlock = append(currentBlock, strings.TrimPrefix(line[len(side1Prefix):], " "))

		case strings.HasPrefix(line, side2Prefix):
			closeBlock()
			currentState = readingSide2
			currentBlock = append(currentBlock, strings.TrimPrefix(line[len(side2Prefix):], " "))

		case currentState != seeking:
			currentBlock = append(currentBlock, line)
		}
	}
	if err := finishCard(); err != nil {
		return domain.Deck{}, err
	}

	if err := scanner.Err(); err != nil {
		return domain.Deck{}, err
	}
	if !deckIDSet {
		return domain.Deck{}, fmt.Errorf("deck file is missing a %q header line", deckPrefix)
	}
	if deck.Title == "" {
		deck.Title = fmt.Sprintf("Deck %d", deck.ID)
	}
	return deck, nil
}
