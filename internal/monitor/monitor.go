// Package monitor is the core of ModSwitch: it turns raw modifier key
// events into input source switches.
//
// Pipeline: capture → tracker (dedupe) → arbiter (single/combo
// decision) → throttle (dedupe/pace/retry) → source service. The idle
// watcher feeds its fallback requests through the same path.
//
// All of KeyState, combo state, and throttle entries are mutated only
// on the monitor's single event loop goroutine; capture and idle
// deliveries are funneled into it over channels.
package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modswitch/modswitch/internal/capture"
	"github.com/modswitch/modswitch/internal/keys"
	"github.com/modswitch/modswitch/internal/source"
	"github.com/modswitch/modswitch/internal/throttle"
)

// ConfigSource provides the per-decision lookups the monitor needs.
// Values are read on demand, never cached beyond a single decision.
type ConfigSource interface {
	// Binding returns the switch target bound to key and whether the
	// binding is enabled. An empty target means unbound.
	Binding(key keys.Physical) (target string, enabled bool)
	// IdleSettings returns the idle fallback configuration.
	IdleSettings() (enabled bool, timeout time.Duration, returnTarget string)
	// ThrottleWindow returns the minimum spacing between forwarded
	// requests to the same target. Non-positive means the default.
	ThrottleWindow() time.Duration
}

// Capture start retry policy. Variables so tests can tighten the
// backoff.
var (
	captureAttempts = 5
	captureBackoff  = 200 * time.Millisecond
)

// Options wires a Monitor's collaborators. Service, Capture, and
// Config are required.
type Options struct {
	Service source.Service
	Capture capture.Source
	Config  ConfigSource

	// OnDiag receives structured observability events. May be nil.
	OnDiag func(Diag)

	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// Monitor owns the whole switching pipeline.
type Monitor struct {
	svc    source.Service
	cap    capture.Source
	cfg    ConfigSource
	onDiag func(Diag)
	now    func() time.Time

	tracker  *keys.Tracker
	arbiter  *Arbiter
	throttle *throttle.Throttle
	idle     *idleWatcher

	events   chan capture.Event
	requests chan throttle.Request
	disabled chan string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	paused   atomic.Bool
	overflow atomic.Uint64

	statusMu sync.Mutex
	state    State
	held     []string
}

// New builds a monitor. It does not start anything.
func New(opts Options) *Monitor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Monitor{
		svc:      opts.Service,
		cap:      opts.Capture,
		cfg:      opts.Config,
		onDiag:   opts.OnDiag,
		now:      opts.Now,
		tracker:  keys.NewTracker(),
		events:   make(chan capture.Event, 128),
		requests: make(chan throttle.Request, 8),
		disabled: make(chan string, 1),
	}
	m.arbiter = NewArbiter(m.tracker, opts.Config)
	m.throttle = throttle.New(opts.Service, throttle.Options{
		Window: opts.Config.ThrottleWindow,
		Now:    opts.Now,
		OnDrop: func(req throttle.Request, err error) {
			m.diag(Diag{Kind: DiagSwitchDropped, Target: req.Target, Err: err})
		},
	})
	m.idle = newIdleWatcher(opts.Config, m.enqueue, opts.Now)
	return m
}

// Start brings up capture and the event loop. Idempotent.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.loop(ctx)
	}()
	go func() {
		defer m.wg.Done()
		m.idle.Run(ctx)
	}()

	// Capture start happens off the caller's goroutine because failed
	// attempts back off for a while.
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.startCapture(ctx)
	}()
}

// Stop tears everything down: timer cancelled, capture released, no
// callbacks delivered afterward. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	// Wait for the loop and any in-flight capture start attempt before
	// releasing the capture resource, so Stop cannot race a Start.
	m.wg.Wait()
	if err := m.cap.Stop(); err != nil {
		log.Printf("[monitor] capture stop: %v", err)
	}
}

// Pause suspends switching without tearing down capture. Key state
// keeps tracking so resuming mid-hold stays coherent; user-origin
// requests still go through.
func (m *Monitor) Pause(paused bool) {
	m.paused.Store(paused)
	log.Printf("[monitor] paused: %v", paused)
}

// Paused reports whether switching is suspended.
func (m *Monitor) Paused() bool { return m.paused.Load() }

// Reconfigure tells the monitor that configuration changed. The idle
// watcher restarts its timer; everything else re-reads config per
// decision anyway.
func (m *Monitor) Reconfigure() {
	m.idle.Reconfigure()
}

// SubmitUser queues a user-origin switch request (tray, settings page).
// User requests bypass the already-active elision so the user can
// re-assert a drifted IME state.
func (m *Monitor) SubmitUser(target string) error {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return errors.New("monitor not running")
	}
	select {
	case m.requests <- throttle.Request{Target: target, Origin: throttle.OriginUser, At: m.now()}:
		return nil
	default:
		return errors.New("request queue full")
	}
}

// Status is a point-in-time snapshot for the tray and settings UI.
type Status struct {
	Running bool
	Paused  bool
	State   string
	Held    []string
	Current string
	Dropped uint64
}

// Status reports the monitor's current state. Current source is read
// live from the service; an unreadable id is reported empty.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	m.statusMu.Lock()
	state := m.state
	held := append([]string(nil), m.held...)
	m.statusMu.Unlock()

	cur, err := m.svc.CurrentID()
	if err != nil {
		cur = ""
	}
	return Status{
		Running: running,
		Paused:  m.paused.Load(),
		State:   state.String(),
		Held:    held,
		Current: cur,
		Dropped: m.overflow.Load(),
	}
}

// startCapture starts the capture source, retrying with exponential
// backoff. Exhausting the attempts is fatal for this session's
// switching; the loop stays up to serve user requests.
func (m *Monitor) startCapture(ctx context.Context) {
	cb := capture.Callbacks{
		OnEvent:    m.deliver,
		OnDisabled: m.captureDisabled,
	}

	delay := captureBackoff
	var err error
	for attempt := 1; attempt <= captureAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if err = m.cap.Start(cb); err == nil {
			if attempt > 1 {
				log.Printf("[monitor] capture started after %d attempts", attempt)
			}
			return
		}
		log.Printf("[monitor] capture start failed (attempt %d/%d): %v", attempt, captureAttempts, err)
		if attempt == captureAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
	m.diag(Diag{Kind: DiagCaptureFailed, Attempts: captureAttempts, Err: err})
}

// deliver posts a raw event into the loop. Runs on the capture
// backend's delivery goroutine and must never block it; when the queue
// is full the event is dropped and counted.
func (m *Monitor) deliver(ev capture.Event) {
	select {
	case m.events <- ev:
	default:
		if m.overflow.Add(1) == 1 {
			log.Printf("[monitor] event queue full, dropping raw events")
			m.diag(Diag{Kind: DiagEventOverflow})
		}
	}
}

// captureDisabled forwards an external-disable notice into the loop.
func (m *Monitor) captureDisabled(reason string) {
	select {
	case m.disabled <- reason:
	default:
	}
}

// loop is the single owner of tracker, arbiter, and throttle state.
func (m *Monitor) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.handleRaw(ctx, ev)
		case req := <-m.requests:
			m.submit(ctx, req)
		case reason := <-m.disabled:
			m.reenableCapture(ctx, reason)
		}
	}
}

func (m *Monitor) handleRaw(ctx context.Context, ev capture.Event) {
	tr, ok := m.tracker.Observe(ev.Key, ev.Down, ev.Time)
	if !ok {
		return
	}

	// Every confirmed transition counts as activity, mapped or not.
	m.idle.Touch(tr.Time)

	req, emit := m.arbiter.Handle(tr)
	m.snapshotState()
	if emit {
		m.submit(ctx, req)
	}
}

func (m *Monitor) submit(ctx context.Context, req throttle.Request) {
	if m.paused.Load() && req.Origin == throttle.OriginInternal {
		return
	}
	forwarded, err := m.throttle.Submit(ctx, req)
	if forwarded {
		log.Printf("[monitor] switched to %q (%s)", req.Target, req.Origin)
	}
	_ = err // already surfaced through OnDrop
}

// reenableCapture makes the single automatic recovery attempt after an
// external disable.
func (m *Monitor) reenableCapture(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	log.Printf("[monitor] capture disabled externally: %s", reason)
	m.diag(Diag{Kind: DiagCaptureDisabled, Reason: reason})

	// Held state from before the gap is unknowable now.
	m.tracker.Reset()
	m.arbiter.reset()
	m.snapshotState()

	if err := m.cap.Stop(); err != nil {
		log.Printf("[monitor] capture stop before re-enable: %v", err)
	}
	if err := m.cap.Start(capture.Callbacks{OnEvent: m.deliver, OnDisabled: m.captureDisabled}); err != nil {
		m.diag(Diag{Kind: DiagCaptureFailed, Attempts: 1, Err: err, Reason: "re-enable"})
		return
	}
	m.diag(Diag{Kind: DiagCaptureReenabled, Reason: reason})
}

func (m *Monitor) snapshotState() {
	var held []string
	for _, k := range m.tracker.HeldKeys() {
		held = append(held, k.String())
	}
	m.statusMu.Lock()
	m.state = m.arbiter.State()
	m.held = held
	m.statusMu.Unlock()
}

// enqueue is the idle watcher's submission path; it funnels through the
// loop so throttle state stays single-owner.
func (m *Monitor) enqueue(req throttle.Request) {
	select {
	case m.requests <- req:
	default:
		log.Printf("[monitor] request queue full, dropping idle switch to %q", req.Target)
	}
}

func (m *Monitor) diag(d Diag) {
	log.Printf("[monitor] %s", d)
	if m.onDiag != nil {
		m.onDiag(d)
	}
}
