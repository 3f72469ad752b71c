package games

import (
	"errors"
	"math/rand/v2"
	"time"
)

const (
	matchRevealDelay    = 600 * time.Millisecond
	mismatchRevealDelay = 1000 * time.Millisecond
)

var (
	ErrBoardLocked     = errors.New("games: board is resolving the last pair")
	ErrUnknownCard     = errors.New("games: unknown card")
	ErrCardUnavailable = errors.New("games: card is already face up")
)

// Face is what a card shows when turned over.
type Face struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// MemoryGardenFaces are the eight emoji pairs of the memory garden.
var MemoryGardenFaces = []Face{
	{Value: "🌸"}, {Value: "🌿"}, {Value: "🦋"}, {Value: "🌙"},
	{Value: "⭐"}, {Value: "🌈"}, {Value: "☁️"}, {Value: "💜"},
}

// ColorMatchingFaces are the six pastel colour pairs.
var ColorMatchingFaces = []Face{
	{Value: "#FFB5BA", Label: "Rose"},
	{Value: "#B5D8FF", Label: "Sky"},
	{Value: "#C5F0C8", Label: "Mint"},
	{Value: "#FFE5B5", Label: "Peach"},
	{Value: "#E0B5FF", Label: "Lavender"},
	{Value: "#B5FFF0", Label: "Aqua"},
}

type card struct {
	id      int
	face    Face
	flipped bool
	matched bool
}

// CardView hides the face of cards that are face down.
type CardView struct {
	ID      int   `json:"id"`
	Face    *Face `json:"face,omitempty"`
	Flipped bool  `json:"flipped"`
	Matched bool  `json:"matched"`
}

// BoardState is the rendered state of a pair-matching board.
type BoardState struct {
	Cards     []CardView `json:"cards"`
	Moves     int        `json:"moves"`
	Matches   int        `json:"matches"`
	Locked    bool       `json:"locked"`
	Completed bool       `json:"completed"`
}

// Board is a pair-matching game. Two face-up cards lock the board until the pair resolves:
// matching pairs stay up after 600ms, mismatches turn back down after 1000ms.
type Board struct {
	faces   []Face
	rng     *rand.Rand
	clock   func() time.Time
	cards   []card
	open    []int
	moves   int
	matches int

	lockedUntil time.Time
	resolving   bool
}

// NewBoard deals a shuffled board holding two cards of every face.
func NewBoard(faces []Face, rng *rand.Rand, clock func() time.Time) *Board {
	board := &Board{faces: append([]Face(nil), faces...), rng: rng, clock: clock}
	board.Reset()
	return board
}

// Reset redeals the board.
func (b *Board) Reset() {
	cards := make([]card, 0, len(b.faces)*2)
	for index, face := range append(append([]Face(nil), b.faces...), b.faces...) {
		cards = append(cards, card{id: index, face: face})
	}
	b.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	b.cards = cards
	b.open = b.open[:0]
	b.moves = 0
	b.matches = 0
	b.resolving = false
	b.lockedUntil = time.Time{}
}

// Flip turns a face-down card over.
func (b *Board) Flip(cardID int) error {
	now := b.clock()
	b.settle(now)
	if b.resolving {
		return ErrBoardLocked
	}

	position := b.position(cardID)
	if position < 0 {
		return ErrUnknownCard
	}
	if b.cards[position].flipped || b.cards[position].matched {
		return ErrCardUnavailable
	}

	b.cards[position].flipped = true
	b.open = append(b.open, position)
	if len(b.open) < 2 {
		return nil
	}

	b.moves++
	b.resolving = true
	first, second := b.cards[b.open[0]], b.cards[b.open[1]]
	if first.face == second.face {
		b.lockedUntil = now.Add(matchRevealDelay)
	} else {
		b.lockedUntil = now.Add(mismatchRevealDelay)
	}
	return nil
}

// State settles any elapsed resolution and renders the board.
func (b *Board) State() BoardState {
	now := b.clock()
	b.settle(now)

	views := make([]CardView, len(b.cards))
	for index, current := range b.cards {
		view := CardView{ID: current.id, Flipped: current.flipped, Matched: current.matched}
		if current.flipped || current.matched {
			face := current.face
			view.Face = &face
		}
		views[index] = view
	}
	return BoardState{
		Cards:     views,
		Moves:     b.moves,
		Matches:   b.matches,
		Locked:    b.resolving,
		Completed: b.completed(),
	}
}

func (b *Board) settle(now time.Time) {
	if !b.resolving || now.Before(b.lockedUntil) {
		return
	}
	first, second := b.open[0], b.open[1]
	if b.cards[first].face == b.cards[second].face {
		b.cards[first].matched = true
		b.cards[second].matched = true
		b.matches++
	} else {
		b.cards[first].flipped = false
		b.cards[second].flipped = false
	}
	b.open = b.open[:0]
	b.resolving = false
}

func (b *Board) completed() bool {
	if len(b.cards) == 0 {
		return false
	}
	for _, current := range b.cards {
		if !current.matched {
			return false
		}
	}
	return true
}

func (b *Board) position(cardID int) int {
	for index, current := range b.cards {
		if current.id == cardID {
			return index
		}
	}
	return -1
}
