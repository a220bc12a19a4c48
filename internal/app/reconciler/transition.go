package reconciler

import "time"

// transition is the tagged transition-in-progress state: idle, or advancing
// to a specific request until the play command settles or the deadline
// passes. It is the one piece of shared mutable state both the cycle-driven
// completion path and the manual skip path synchronize on.
type transition struct {
	active    bool
	requestID string
	deadline  time.Time
}

// beginTransition atomically claims the transition guard for requestID.
// It fails while another transition is in flight and its grace deadline has
// not passed; an expired deadline is treated as settled, so a dropped device
// acknowledgment cannot wedge the loop permanently.
func (l *Loop) beginTransition(requestID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.trans.active && time.Now().Before(l.trans.deadline) {
		return false
	}
	l.trans = transition{
		active:    true,
		requestID: requestID,
		deadline:  time.Now().Add(l.config.GracePeriod),
	}
	return true
}

// settleTransition releases the guard.
func (l *Loop) settleTransition() {
	l.mu.Lock()
	l.trans = transition{}
	l.mu.Unlock()
}

// transitionActive reports whether an unexpired transition is in flight.
func (l *Loop) transitionActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trans.active && time.Now().Before(l.trans.deadline)
}
