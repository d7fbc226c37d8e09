package keys

import "time"

type keyState struct {
	down      bool
	downSince time.Time
}

// Tracker deduplicates raw key reports into clean transitions.
//
// macOS-style flag-change events redeliver the full modifier state, so
// the same logical press can be reported more than once; Observe drops
// anything that does not change a key's stored state.
//
// The tracker is not goroutine-safe. It is owned by the monitor's event
// loop, which serializes all access.
type Tracker struct {
	states [numPhysical]keyState
}

// NewTracker returns a tracker with all keys up.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe records a raw report. It returns the resulting transition and
// true, or a zero Transition and false when the report is a duplicate of
// the key's current state.
func (t *Tracker) Observe(key Physical, down bool, at time.Time) (Transition, bool) {
	s := &t.states[key]
	if s.down == down {
		return Transition{}, false
	}
	s.down = down
	if down {
		s.downSince = at
	}
	return Transition{Key: key, Down: down, Time: at}, true
}

// Down reports whether key is currently held.
func (t *Tracker) Down(key Physical) bool {
	return t.states[key].down
}

// DownSince returns when key was last pressed. Zero if the key is up.
func (t *Tracker) DownSince(key Physical) time.Time {
	if !t.states[key].down {
		return time.Time{}
	}
	return t.states[key].downSince
}

// AnyDown reports whether any tracked key is held.
func (t *Tracker) AnyDown() bool {
	for i := range t.states {
		if t.states[i].down {
			return true
		}
	}
	return false
}

// OthersDown reports whether any key other than except is held.
func (t *Tracker) OthersDown(except Physical) bool {
	for i := range t.states {
		if Physical(i) != except && t.states[i].down {
			return true
		}
	}
	return false
}

// HeldKeys returns the currently held keys in fixed order.
func (t *Tracker) HeldKeys() []Physical {
	var held []Physical
	for i := range t.states {
		if t.states[i].down {
			held = append(held, Physical(i))
		}
	}
	return held
}

// Reset marks every key as released. Used when capture is restarted, so
// stale held state from before the gap cannot leak into arbitration.
func (t *Tracker) Reset() {
	t.states = [numPhysical]keyState{}
}
