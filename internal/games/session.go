// Package games hosts the relaxation mini-games as short-lived server-side sessions.
package games

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mayursapkal41/MindNest/internal/identifier"
)

const (
	KindMemoryGarden   = "memory-garden"
	KindColorMatching  = "color-matching"
	KindCalmDot        = "calm-dot"
	KindWordUnscramble = "word-unscramble"

	DefaultSessionTTL = 30 * time.Minute
	// DefaultMaxSessions bounds the live sessions one process holds.
	DefaultMaxSessions = 10000
)

var (
	ErrUnknownKind       = errors.New("games: unknown game")
	ErrSessionNotFound   = errors.New("games: session not found")
	ErrUnsupportedAction = errors.New("games: action not supported by this game")
	ErrStoreFull         = errors.New("games: too many games in progress, try again shortly")
)

// View is a session rendered for the client. Exactly one game state is set.
type View struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	Board      *BoardState      `json:"board,omitempty"`
	Unscramble *UnscrambleState `json:"unscramble,omitempty"`
	CalmDot    *CalmDotState    `json:"calm_dot,omitempty"`
}

// Session is one game in progress. Its methods are safe for concurrent use.
type Session struct {
	id   string
	kind string

	mu         sync.Mutex
	lastSeen   time.Time
	board      *Board
	unscramble *Unscramble
	calmDot    *CalmDot
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// View renders the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Flip turns a card on a pair-matching board.
func (s *Session) Flip(cardID int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return View{}, ErrUnsupportedAction
	}
	if err := s.board.Flip(cardID); err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), nil
}

// Guess submits an unscramble answer.
func (s *Session) Guess(answer string) (GuessResult, View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unscramble == nil {
		return GuessResult{}, View{}, ErrUnsupportedAction
	}
	result := s.unscramble.Guess(answer)
	return result, s.viewLocked(), nil
}

// Skip draws another unscramble word.
func (s *Session) Skip() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unscramble == nil {
		return View{}, ErrUnsupportedAction
	}
	s.unscramble.Skip()
	return s.viewLocked(), nil
}

// Start begins a calm dot run.
func (s *Session) Start() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calmDot == nil {
		return View{}, ErrUnsupportedAction
	}
	s.calmDot.Start()
	return s.viewLocked(), nil
}

// Click taps the calm dot. It reports whether the click scored.
func (s *Session) Click() (bool, View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calmDot == nil {
		return false, View{}, ErrUnsupportedAction
	}
	scored := s.calmDot.Click()
	return scored, s.viewLocked(), nil
}

// Reset restarts whichever game the session hosts.
func (s *Session) Reset() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.board != nil:
		s.board.Reset()
	case s.unscramble != nil:
		s.unscramble.Reset()
	case s.calmDot != nil:
		s.calmDot.Reset()
	}
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	view := View{ID: s.id, Kind: s.kind}
	switch {
	case s.board != nil:
		state := s.board.State()
		view.Board = &state
	case s.unscramble != nil:
		state := s.unscramble.State()
		view.Unscramble = &state
	case s.calmDot != nil:
		state := s.calmDot.State()
		view.CalmDot = &state
	}
	return view
}

// StoreConfig wires the session store.
type StoreConfig struct {
	IDProvider identifier.Provider
	Clock      func() time.Time
	// Rand returns the random source for a new session.
	Rand func() *rand.Rand
	TTL  time.Duration
	// MaxSessions caps live sessions; Create fails with ErrStoreFull beyond it.
	MaxSessions int
}

// Store keeps sessions in memory and forgets them after TTL without activity.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	idProvider identifier.Provider
	clock      func() time.Time
	newRand    func() *rand.Rand
	ttl        time.Duration
	maxLive    int
}

// NewStore constructs a Store, defaulting every unset dependency.
func NewStore(cfg StoreConfig) *Store {
	store := &Store{
		sessions:   make(map[string]*Session),
		idProvider: cfg.IDProvider,
		clock:      cfg.Clock,
		newRand:    cfg.Rand,
		ttl:        cfg.TTL,
		maxLive:    cfg.MaxSessions,
	}
	if store.idProvider == nil {
		store.idProvider = identifier.NewUUIDProvider()
	}
	if store.clock == nil {
		store.clock = time.Now
	}
	if store.newRand == nil {
		store.newRand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	if store.ttl <= 0 {
		store.ttl = DefaultSessionTTL
	}
	if store.maxLive <= 0 {
		store.maxLive = DefaultMaxSessions
	}
	return store
}

// Create starts a new session for the given game kind.
func (s *Store) Create(kind string) (*Session, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		return nil, err
	}
	rng := s.newRand()
	session := &Session{id: id, kind: kind, lastSeen: s.clock()}
	switch kind {
	case KindMemoryGarden:
		session.board = NewBoard(MemoryGardenFaces, rng, s.clock)
	case KindColorMatching:
		session.board = NewBoard(ColorMatchingFaces, rng, s.clock)
	case KindWordUnscramble:
		session.unscramble = NewUnscramble(PositiveWords, rng)
	case KindCalmDot:
		session.calmDot = NewCalmDot(rng, s.clock)
	default:
		return nil, ErrUnknownKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(s.clock())
	if len(s.sessions) >= s.maxLive {
		return nil, ErrStoreFull
	}
	s.sessions[id] = session
	return session, nil
}

// Get returns a live session and refreshes its expiry.
func (s *Store) Get(id string) (*Session, error) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if now.Sub(session.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	session.lastSeen = now
	return session, nil
}

// Len reports the number of stored sessions, including expired ones not yet evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) evictExpiredLocked(now time.Time) {
	for id, session := range s.sessions {
		session.mu.Lock()
		expired := now.Sub(session.lastSeen) > s.ttl
		session.mu.Unlock()
		if expired {
			delete(s.sessions, id)
		}
	}
}
