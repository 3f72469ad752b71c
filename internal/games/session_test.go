package games

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/mayursapkal41/MindNest/internal/identifier"
	"github.com/stretchr/testify/require"
)

func newTestStore(clock *fakeClock) *Store {
	return NewStore(StoreConfig{
		IDProvider: &identifier.Sequence{Prefix: "game-"},
		Clock:      clock.Now,
		Rand:       func() *rand.Rand { return newTestRand() },
	})
}

func TestStoreCreatesEveryKind(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	store := newTestStore(clock)

	memory, err := store.Create(KindMemoryGarden)
	require.NoError(t, err)
	require.Len(t, memory.View().Board.Cards, 16)

	colors, err := store.Create(KindColorMatching)
	require.NoError(t, err)
	require.Len(t, colors.View().Board.Cards, 12)

	words, err := store.Create(KindWordUnscramble)
	require.NoError(t, err)
	require.NotEmpty(t, words.View().Unscramble.Scrambled)

	dot, err := store.Create(KindCalmDot)
	require.NoError(t, err)
	require.Equal(t, PhaseReady, dot.View().CalmDot.Phase)

	_, err = store.Create("tetris")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestSessionRejectsForeignActions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	store := newTestStore(clock)

	words, err := store.Create(KindWordUnscramble)
	require.NoError(t, err)
	_, err = words.Flip(0)
	require.ErrorIs(t, err, ErrUnsupportedAction)
	_, _, err = words.Click()
	require.ErrorIs(t, err, ErrUnsupportedAction)

	board, err := store.Create(KindMemoryGarden)
	require.NoError(t, err)
	_, _, err = board.Guess("HOPE")
	require.ErrorIs(t, err, ErrUnsupportedAction)
	_, err = board.Start()
	require.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	store := newTestStore(clock)

	session, err := store.Create(KindCalmDot)
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	fetched, err := store.Get(session.ID())
	require.NoError(t, err)
	require.Equal(t, session.ID(), fetched.ID())

	clock.Advance(30 * time.Minute)
	_, err = store.Get(session.ID())
	require.NoError(t, err, "access refreshes the expiry")

	clock.Advance(31 * time.Minute)
	_, err = store.Get(session.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.Zero(t, store.Len())

	_, err = store.Get("missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStoreCapsLiveSessions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	store := NewStore(StoreConfig{
		IDProvider:  &identifier.Sequence{Prefix: "game-"},
		Clock:       clock.Now,
		Rand:        func() *rand.Rand { return newTestRand() },
		MaxSessions: 2,
	})

	_, err := store.Create(KindCalmDot)
	require.NoError(t, err)
	_, err = store.Create(KindCalmDot)
	require.NoError(t, err)
	_, err = store.Create(KindCalmDot)
	require.ErrorIs(t, err, ErrStoreFull)

	clock.now = clock.now.Add(DefaultSessionTTL + time.Second)
	_, err = store.Create(KindCalmDot)
	require.NoError(t, err, "expired sessions should free capacity")
}
