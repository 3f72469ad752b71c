package games

import (
	"math/rand/v2"
	"time"
)

const (
	CalmDotRounds      = 10
	calmDotVisibleTime = 1500 * time.Millisecond
	calmDotPause       = 800 * time.Millisecond
	calmDotMinPercent  = 20.0
	calmDotSpanPercent = 60.0
)

const (
	PhaseReady    = "ready"
	PhasePlaying  = "playing"
	PhaseComplete = "complete"
)

// Position is a dot location in percent of the play area.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CalmDotState is the rendered state of the calm dot game.
type CalmDotState struct {
	Phase      string    `json:"phase"`
	Round      int       `json:"round"`
	Score      int       `json:"score"`
	DotVisible bool      `json:"dot_visible"`
	Dot        *Position `json:"dot,omitempty"`
	HidesInMS  int64     `json:"hides_in_ms,omitempty"`
}

// CalmDot shows ten dots in turn, each for 1500ms with an 800ms pause between them.
// A click scores at most once per dot and only while it is visible.
type CalmDot struct {
	rng       *rand.Rand
	clock     func() time.Time
	started   bool
	startedAt time.Time
	positions []Position
	clicked   []bool
	score     int
}

// NewCalmDot returns a game in the ready phase.
func NewCalmDot(rng *rand.Rand, clock func() time.Time) *CalmDot {
	return &CalmDot{rng: rng, clock: clock}
}

// Start begins a fresh run at the current time.
func (c *CalmDot) Start() {
	c.positions = make([]Position, CalmDotRounds)
	for index := range c.positions {
		c.positions[index] = Position{
			X: c.rng.Float64()*calmDotSpanPercent + calmDotMinPercent,
			Y: c.rng.Float64()*calmDotSpanPercent + calmDotMinPercent,
		}
	}
	c.clicked = make([]bool, CalmDotRounds)
	c.score = 0
	c.startedAt = c.clock()
	c.started = true
}

// Reset returns the game to the ready phase.
func (c *CalmDot) Reset() {
	c.started = false
	c.positions = nil
	c.clicked = nil
	c.score = 0
}

// Click scores the visible dot. It reports whether the click counted.
func (c *CalmDot) Click() bool {
	round, visible, _ := c.locate(c.clock())
	if !visible || c.clicked[round] {
		return false
	}
	c.clicked[round] = true
	c.score++
	return true
}

// State renders the game at the current time.
func (c *CalmDot) State() CalmDotState {
	if !c.started {
		return CalmDotState{Phase: PhaseReady}
	}
	now := c.clock()
	round, visible, remaining := c.locate(now)
	if round >= CalmDotRounds {
		return CalmDotState{Phase: PhaseComplete, Round: CalmDotRounds, Score: c.score}
	}
	state := CalmDotState{Phase: PhasePlaying, Round: round + 1, Score: c.score, DotVisible: visible}
	if visible {
		position := c.positions[round]
		state.Dot = &position
		state.HidesInMS = remaining.Milliseconds()
	}
	return state
}

// locate maps a moment onto a round index, whether its dot is visible, and the visible time left.
func (c *CalmDot) locate(now time.Time) (int, bool, time.Duration) {
	if !c.started {
		return 0, false, 0
	}
	elapsed := now.Sub(c.startedAt)
	if elapsed < 0 {
		return 0, false, 0
	}
	cycle := calmDotVisibleTime + calmDotPause
	round := int(elapsed / cycle)
	if round >= CalmDotRounds {
		return CalmDotRounds, false, 0
	}
	offset := elapsed % cycle
	if offset < calmDotVisibleTime {
		return round, true, calmDotVisibleTime - offset
	}
	if round == CalmDotRounds-1 {
		return CalmDotRounds, false, 0
	}
	return round, false, 0
}
