// Package capture delivers raw modifier key up/down observations from
// the OS to the monitor. The monitor owns interpretation; this package
// only reports what the hardware did, including duplicate flag
// redeliveries.
package capture

import (
	"errors"
	"time"

	"github.com/modswitch/modswitch/internal/keys"
)

// Event is one raw observation of a modifier key.
type Event struct {
	Key  keys.Physical
	Down bool
	Time time.Time
}

// Callbacks receive capture output. They are invoked from the capture
// backend's own delivery goroutines and must not block.
type Callbacks struct {
	// OnEvent is called for every raw modifier observation.
	OnEvent func(Event)
	// OnDisabled is called when the backend loses its event source
	// (device unplugged, permission revoked, tap disabled). The owner
	// may attempt a restart. May be nil.
	OnDisabled func(reason string)
}

// Source is a startable stream of raw key events. After Stop returns,
// no further callbacks are delivered.
type Source interface {
	Start(cb Callbacks) error
	Stop() error
}

// ErrUnsupported is returned by New on platforms without a backend.
var ErrUnsupported = errors.New("no modifier capture backend for this platform")
