package bowl

import (
	"sync"
	"time"
)

// InactivityTimeout ends a meditation session after two minutes without taps.
const InactivityTimeout = 120 * time.Second

// Activity is the state of a meditation session.
type Activity struct {
	SessionID string    `json:"session_id"`
	Active    bool      `json:"active"`
	Ended     bool      `json:"ended"`
	EndsAt    time.Time `json:"ends_at,omitempty"`
	Taps      int       `json:"taps"`
}

type tapRecord struct {
	lastTap time.Time
	taps    int
}

// ActivityTracker follows taps per session and ends sessions after InactivityTimeout.
type ActivityTracker struct {
	mu       sync.Mutex
	clock    func() time.Time
	sessions map[string]*tapRecord
}

// NewActivityTracker constructs a tracker. A nil clock uses time.Now.
func NewActivityTracker(clock func() time.Time) *ActivityTracker {
	if clock == nil {
		clock = time.Now
	}
	return &ActivityTracker{clock: clock, sessions: make(map[string]*tapRecord)}
}

// Tap marks the session active and restarts its inactivity window.
func (a *ActivityTracker) Tap(sessionID string) Activity {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.clock()
	a.evictLocked(now)

	record, ok := a.sessions[sessionID]
	if !ok {
		record = &tapRecord{}
		a.sessions[sessionID] = record
	} else if !now.Before(record.lastTap.Add(InactivityTimeout)) {
		record.taps = 0
	}
	record.lastTap = now
	record.taps++
	return activityOf(sessionID, record, now)
}

// Status reports the session without recording a tap.
func (a *ActivityTracker) Status(sessionID string) Activity {
	a.mu.Lock()
	defer a.mu.Unlock()
	record, ok := a.sessions[sessionID]
	if !ok {
		return Activity{SessionID: sessionID}
	}
	return activityOf(sessionID, record, a.clock())
}

func activityOf(sessionID string, record *tapRecord, now time.Time) Activity {
	endsAt := record.lastTap.Add(InactivityTimeout)
	active := now.Before(endsAt)
	return Activity{
		SessionID: sessionID,
		Active:    active,
		Ended:     !active,
		EndsAt:    endsAt.UTC(),
		Taps:      record.taps,
	}
}

// evictLocked forgets sessions that ended long enough ago that no client still polls them.
func (a *ActivityTracker) evictLocked(now time.Time) {
	for sessionID, record := range a.sessions {
		if now.Sub(record.lastTap) > 10*InactivityTimeout {
			delete(a.sessions, sessionID)
		}
	}
}
