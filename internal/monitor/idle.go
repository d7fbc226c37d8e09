package monitor

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/modswitch/modswitch/internal/source"
	"github.com/modswitch/modswitch/internal/throttle"
)

// idleWatcher fires a fallback switch after a configured stretch of no
// modifier activity. It runs on its own goroutine but funnels requests
// through the monitor's serialized submission path via submit.
type idleWatcher struct {
	cfg    ConfigSource
	submit func(throttle.Request)
	now    func() time.Time

	lastActivity atomic.Int64 // unix nanos
	reconfig     chan struct{}

	// pollOverride shortens the poll interval in tests. Zero in
	// production.
	pollOverride time.Duration
}

func newIdleWatcher(cfg ConfigSource, submit func(throttle.Request), now func() time.Time) *idleWatcher {
	w := &idleWatcher{
		cfg:      cfg,
		submit:   submit,
		now:      now,
		reconfig: make(chan struct{}, 1),
	}
	w.Touch(now())
	return w
}

// Touch records activity. Called for every transition regardless of
// mapping validity. Safe from any goroutine.
func (w *idleWatcher) Touch(at time.Time) {
	w.lastActivity.Store(at.UnixNano())
}

// Reconfigure makes the run loop re-read idle settings, restarting or
// stopping its timer as needed.
func (w *idleWatcher) Reconfigure() {
	select {
	case w.reconfig <- struct{}{}:
	default:
	}
}

// pollInterval scales polling with the timeout: tight timeouts need
// tight polling, long ones do not.
func pollInterval(timeout time.Duration) time.Duration {
	switch {
	case timeout <= 5*time.Second:
		return 500 * time.Millisecond
	case timeout <= 30*time.Second:
		return time.Second
	case timeout <= 60*time.Second:
		return 2 * time.Second
	default:
		return 5 * time.Second
	}
}

// Run polls until ctx is cancelled. While idle switching is disabled it
// just parks on the reconfigure channel.
func (w *idleWatcher) Run(ctx context.Context) {
	for {
		enabled, timeout, target := w.cfg.IdleSettings()
		if !enabled || timeout <= 0 {
			select {
			case <-ctx.Done():
				return
			case <-w.reconfig:
				continue
			}
		}

		interval := pollInterval(timeout)
		if w.pollOverride > 0 {
			interval = w.pollOverride
		}
		ticker := time.NewTicker(interval)

	poll:
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-w.reconfig:
				ticker.Stop()
				break poll
			case <-ticker.C:
				w.check(timeout, target)
			}
		}
	}
}

func (w *idleWatcher) check(timeout time.Duration, target string) {
	now := w.now()
	last := time.Unix(0, w.lastActivity.Load())
	if now.Sub(last) < timeout {
		return
	}
	if target == "" {
		target = source.DefaultTarget
	}
	log.Printf("[idle] no activity for %v, returning to %q", timeout, target)
	w.submit(throttle.Request{Target: target, Origin: throttle.OriginInternal, At: now})
	// Reset the clock so one idle period fires exactly once.
	w.Touch(now)
}
