// Package keys defines the physical modifier keys ModSwitch tracks and
// the clean press/release transitions derived from raw OS flag events.
//
// Left and right variants of the same logical modifier are distinct
// keys: the whole point of the app is that left-Command and
// right-Command can switch to different input sources.
package keys

import (
	"fmt"
	"time"
)

// Physical identifies one physical modifier key.
type Physical uint8

const (
	LeftCommand Physical = iota
	RightCommand
	LeftShift
	RightShift
	LeftOption
	RightOption
	LeftControl
	RightControl

	numPhysical
)

// Count is the number of tracked physical keys.
const Count = int(numPhysical)

var names = [numPhysical]string{
	LeftCommand:  "left-command",
	RightCommand: "right-command",
	LeftShift:    "left-shift",
	RightShift:   "right-shift",
	LeftOption:   "left-option",
	RightOption:  "right-option",
	LeftControl:  "left-control",
	RightControl: "right-control",
}

func (p Physical) String() string {
	if p >= numPhysical {
		return "unknown"
	}
	return names[p]
}

// Valid reports whether p is one of the tracked modifier keys.
func (p Physical) Valid() bool { return p < numPhysical }

// Parse converts a config name like "left-command" to a Physical key.
func Parse(name string) (Physical, error) {
	for p, n := range names {
		if n == name {
			return Physical(p), nil
		}
	}
	return 0, fmt.Errorf("unknown modifier key: %q", name)
}

// All returns every tracked physical key in a fixed order.
func All() []Physical {
	out := make([]Physical, numPhysical)
	for i := range out {
		out[i] = Physical(i)
	}
	return out
}

// Transition is a confirmed change of one key's logical state.
type Transition struct {
	Key  Physical
	Down bool
	Time time.Time
}

func (t Transition) String() string {
	edge := "up"
	if t.Down {
		edge = "down"
	}
	return fmt.Sprintf("%s %s", t.Key, edge)
}
