// Package notify sends desktop notifications for events the user
// would otherwise only see in the log.
package notify

import (
	"sync/atomic"

	"github.com/gen2brain/beeep"
)

const appName = "ModSwitch"

// Notifier sends desktop notifications.
type Notifier struct {
	enabled atomic.Bool
}

// New creates a new Notifier.
func New(enabled bool) *Notifier {
	n := &Notifier{}
	n.enabled.Store(enabled)
	return n
}

// SetEnabled turns notifications on or off.
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// SwitchDropped reports a switch that failed after all retries.
func (n *Notifier) SwitchDropped(target string) {
	n.notify("Switch failed", "Could not switch to "+target)
}

// CaptureLost reports that key capture stopped and could not be
// restored.
func (n *Notifier) CaptureLost(reason string) {
	n.notify("Key monitoring stopped", reason)
}

// Paused reports a pause state change.
func (n *Notifier) Paused(paused bool) {
	if paused {
		n.notify("", "Switching paused")
	} else {
		n.notify("", "Switching resumed")
	}
}

func (n *Notifier) notify(title, message string) {
	if !n.enabled.Load() {
		return
	}
	// Notification failures are not critical.
	if title != "" {
		_ = beeep.Notify(appName+": "+title, message, "")
	} else {
		_ = beeep.Notify(appName, message, "")
	}
}
