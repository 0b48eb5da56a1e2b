// Package timer implements the one-shot decision countdown attached to
// each offer.
package timer

import (
	"sync"
	"time"
)

type state int

const (
	running state = iota
	cancelled
	expired
)

// Timer is a one-shot countdown. Exactly one of the expiry callback or
// Cancel wins; the loser is a no-op.
type Timer struct {
	mu       sync.Mutex
	st       state
	deadline time.Time
	t        *time.Timer
}

// Start arms a countdown that invokes onExpire once when window
// elapses, unless Cancel wins first.
func Start(window time.Duration, onExpire func()) *Timer {
	tm := &Timer{deadline: time.Now().Add(window)}
	tm.t = time.AfterFunc(window, func() {
		tm.mu.Lock()
		if tm.st != running {
			tm.mu.Unlock()
			return
		}
		tm.st = expired
		tm.mu.Unlock()
		onExpire()
	})
	return tm
}

// Cancel stops the countdown. Returns true if the countdown was still
// running; cancelling an expired or already-cancelled timer is a no-op.
func (tm *Timer) Cancel() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.st != running {
		return false
	}
	tm.st = cancelled
	tm.t.Stop()
	return true
}

// Remaining reports how much of the decision window is left, floored
// at zero. Presentation-only; it never drives decisions.
func (tm *Timer) Remaining() time.Duration {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.st != running {
		return 0
	}
	if d := time.Until(tm.deadline); d > 0 {
		return d
	}
	return 0
}

// Deadline returns the instant the window ends.
func (tm *Timer) Deadline() time.Time {
	return tm.deadline
}
