package games

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCalmDotTimeline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	game := NewCalmDot(newTestRand(), clock.Now)

	require.Equal(t, PhaseReady, game.State().Phase)
	require.False(t, game.Click())

	game.Start()
	state := game.State()
	require.Equal(t, PhasePlaying, state.Phase)
	require.Equal(t, 1, state.Round)
	require.True(t, state.DotVisible)
	require.NotNil(t, state.Dot)
	require.EqualValues(t, 1500, state.HidesInMS)

	require.True(t, game.Click())
	require.False(t, game.Click(), "a dot scores once")

	clock.Advance(1600 * time.Millisecond)
	state = game.State()
	require.False(t, state.DotVisible)
	require.False(t, game.Click(), "clicks during the pause do not score")

	clock.Advance(700 * time.Millisecond)
	state = game.State()
	require.Equal(t, 2, state.Round)
	require.True(t, state.DotVisible)
	require.True(t, game.Click())

	// the tenth dot hides 9 cycles plus one visible period after the start.
	clock.now = time.Unix(100, 0).Add(9*2300*time.Millisecond + 1499*time.Millisecond)
	require.Equal(t, PhasePlaying, game.State().Phase)
	require.True(t, game.Click())
	clock.Advance(time.Millisecond)
	state = game.State()
	require.Equal(t, PhaseComplete, state.Phase)
	require.Equal(t, 3, state.Score)
	require.False(t, game.Click())

	game.Reset()
	require.Equal(t, PhaseReady, game.State().Phase)
	require.Zero(t, game.State().Score)
}

func TestCalmDotPositionsStayInBounds(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	game := NewCalmDot(newTestRand(), clock.Now)
	game.Start()
	for _, position := range game.positions {
		require.GreaterOrEqual(t, position.X, 20.0)
		require.Less(t, position.X, 80.0)
		require.GreaterOrEqual(t, position.Y, 20.0)
		require.Less(t, position.Y, 80.0)
	}
}
