// Package throttle paces switch requests on their way to the input
// source service, collapsing chattering duplicates and retrying
// transient service failures a bounded number of times.
package throttle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/modswitch/modswitch/internal/source"
)

// Origin says who asked for a switch.
type Origin int

const (
	// OriginInternal marks requests produced by key arbitration or the
	// idle monitor. These are elided when the target is already active.
	OriginInternal Origin = iota
	// OriginUser marks requests the user asked for explicitly (tray,
	// settings page). These forward even when the service claims the
	// target is already active, so the user can re-assert a switch
	// after the IME state has silently drifted.
	OriginUser
)

func (o Origin) String() string {
	if o == OriginUser {
		return "user"
	}
	return "internal"
}

// Request is one transient switch request. Produced upstream, consumed
// and retired here; never persisted.
type Request struct {
	Target string
	Origin Origin
	At     time.Time
}

const (
	// DefaultWindow is the minimum spacing between forwarded requests
	// to the same target.
	DefaultWindow = 75 * time.Millisecond

	maxAttempts = 3
	retryDelay  = 100 * time.Millisecond
)

// Options configures a Throttle. The zero value is usable.
type Options struct {
	// Window returns the current throttle window. Re-read on every
	// submission so config changes apply without a restart. Nil or a
	// non-positive result falls back to DefaultWindow.
	Window func() time.Duration

	// Now is the clock. Nil means time.Now.
	Now func() time.Time

	// OnDrop is called after a request is abandoned because every
	// delivery attempt failed. May be nil.
	OnDrop func(req Request, err error)
}

// Throttle deduplicates and forwards switch requests. It is owned by
// the monitor's event loop; all submissions are already serialized, so
// it holds no lock of its own.
type Throttle struct {
	svc     source.Service
	opts    Options
	entries map[string]time.Time // target -> last forwarded
}

// New creates a throttle in front of svc.
func New(svc source.Service, opts Options) *Throttle {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Throttle{
		svc:     svc,
		opts:    opts,
		entries: make(map[string]time.Time),
	}
}

func (t *Throttle) window() time.Duration {
	if t.opts.Window != nil {
		if w := t.opts.Window(); w > 0 {
			return w
		}
	}
	return DefaultWindow
}

// Submit decides whether req reaches the service and, if so, delivers
// it with bounded retry. It reports whether the request was forwarded.
// A false return with nil error means the request was elided; a false
// return with an error means delivery was attempted and dropped.
func (t *Throttle) Submit(ctx context.Context, req Request) (bool, error) {
	now := t.opts.Now()

	if last, ok := t.entries[req.Target]; ok && now.Sub(last) < t.window() {
		return false, nil
	}

	if req.Origin == OriginInternal {
		// Cheap no-op elision. A failed CurrentID read is not a reason
		// to drop the request; just skip the check.
		if cur, err := t.svc.CurrentID(); err == nil && cur == req.Target {
			return false, nil
		}
	}

	t.entries[req.Target] = now

	if err := t.deliver(ctx, req); err != nil {
		if t.opts.OnDrop != nil {
			t.opts.OnDrop(req, err)
		}
		return false, err
	}
	return true, nil
}

// deliver calls SwitchTo, retrying transient failures a few times with
// a short fixed delay. Waits are cancelable via ctx.
func (t *Throttle) deliver(ctx context.Context, req Request) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = t.svc.SwitchTo(req.Target); err == nil {
			return nil
		}
		log.Printf("[throttle] switch to %q failed (attempt %d/%d): %v", req.Target, attempt, maxAttempts, err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return fmt.Errorf("switch to %q dropped after %d attempts: %w", req.Target, maxAttempts, err)
}
