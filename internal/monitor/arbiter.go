package monitor

import (
	"time"

	"github.com/modswitch/modswitch/internal/keys"
	"github.com/modswitch/modswitch/internal/throttle"
)

// State is the arbiter's coarse position in the press cycle.
type State int

const (
	// StateIdle means no tracked key is held.
	StateIdle State = iota
	// StateSinglePending means one press is held and may still become
	// either a single switch (on release) or a combo (on a second press).
	StateSinglePending
	// StateComboActive means two or more validly mapped keys have been
	// down together since the last full release.
	StateComboActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSinglePending:
		return "single_pending"
	case StateComboActive:
		return "combo_active"
	default:
		return "unknown"
	}
}

// staleSwitchWindow bounds the livelock guard: a repeat switch press on
// the same key inside this window is presumed to follow a missed
// release, and the combo bookkeeping is rebuilt from scratch.
const staleSwitchWindow = 2 * time.Second

// Arbiter decides when a clean key transition becomes a switch request.
//
// The asymmetry is deliberate: a combo is only observable once the
// second key goes down, so combos switch on the press edge; a solitary
// press is only confirmed solitary once it is released without company,
// so singles switch on the release edge.
//
// Owned by the monitor's event loop; not goroutine-safe.
type Arbiter struct {
	tracker *keys.Tracker
	cfg     ConfigSource

	comboActive bool
	lastPressed keys.Physical
	hasPressed  bool
	lastSwitch  keys.Physical
	hasSwitch   bool
	switchTime  time.Time
}

// NewArbiter creates an arbiter reading key state from tracker and
// mappings from cfg. Mappings are re-read on every decision.
func NewArbiter(tracker *keys.Tracker, cfg ConfigSource) *Arbiter {
	return &Arbiter{tracker: tracker, cfg: cfg}
}

// State derives the current machine state.
func (a *Arbiter) State() State {
	switch {
	case a.comboActive:
		return StateComboActive
	case a.tracker.AnyDown():
		return StateSinglePending
	default:
		return StateIdle
	}
}

// Handle consumes one confirmed transition. The tracker must already
// reflect it. Returns a switch request and true when one should be
// submitted.
func (a *Arbiter) Handle(tr keys.Transition) (throttle.Request, bool) {
	if tr.Down {
		return a.handleDown(tr)
	}
	return a.handleUp(tr)
}

func (a *Arbiter) handleDown(tr keys.Transition) (throttle.Request, bool) {
	k := tr.Key
	othersDown := a.tracker.OthersDown(k)

	if !othersDown {
		// Fresh solitary press. Any leftover combo memory belongs to a
		// prior cycle and must not influence this one.
		a.comboActive = false
		a.hasSwitch = false
		a.lastPressed = k
		a.hasPressed = true
		return throttle.Request{}, false
	}

	target, mapped := a.mapping(k)
	if mapped && a.otherMappedDown(k) {
		// Combo: the most recent validly mapped press wins, overriding
		// whatever the previous key in the combo requested.
		if a.hasSwitch && a.lastSwitch == k && tr.Time.Sub(a.switchTime) < staleSwitchWindow {
			// Presumed stuck from a missed release. Rebuild the
			// bookkeeping but never suppress the switch itself.
			a.comboActive = false
			a.hasPressed = false
		}
		a.comboActive = true
		a.lastPressed = k
		a.hasPressed = true
		a.lastSwitch = k
		a.hasSwitch = true
		a.switchTime = tr.Time
		return throttle.Request{Target: target, Origin: throttle.OriginInternal, At: tr.Time}, true
	}

	// A second press that forms no combo (either side unmapped or
	// disabled). It still forfeits the pending single: the first press
	// is no longer a solitary press-and-release.
	if !a.comboActive {
		a.hasPressed = false
	}
	return throttle.Request{}, false
}

func (a *Arbiter) handleUp(tr keys.Transition) (throttle.Request, bool) {
	k := tr.Key
	othersStillDown := a.tracker.OthersDown(k)

	if a.comboActive {
		// Never switch on a release inside a combo. Memory survives
		// partial releases so re-pressing continues the same combo.
		if !othersStillDown {
			a.reset()
		}
		return throttle.Request{}, false
	}

	if !othersStillDown {
		target, mapped := a.mapping(k)
		solo := a.hasPressed && a.lastPressed == k
		a.reset()
		if mapped && solo {
			return throttle.Request{Target: target, Origin: throttle.OriginInternal, At: tr.Time}, true
		}
	}
	return throttle.Request{}, false
}

// mapping is the hasValidMapping predicate plus the target lookup.
func (a *Arbiter) mapping(k keys.Physical) (string, bool) {
	target, enabled := a.cfg.Binding(k)
	if target == "" || !enabled {
		return "", false
	}
	return target, true
}

// otherMappedDown reports whether some other held key has a valid
// enabled mapping. Held keys without one count toward "others down"
// but never contribute a mapping.
func (a *Arbiter) otherMappedDown(k keys.Physical) bool {
	for _, held := range a.tracker.HeldKeys() {
		if held == k {
			continue
		}
		if _, ok := a.mapping(held); ok {
			return true
		}
	}
	return false
}

// reset clears all combo memory. Called whenever zero keys are down.
func (a *Arbiter) reset() {
	a.comboActive = false
	a.hasPressed = false
	a.hasSwitch = false
}
