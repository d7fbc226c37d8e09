package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeService records switch calls and serves a scripted current id.
type fakeService struct {
	mu       sync.Mutex
	current  string
	curErr   error
	switches []string
	failFor  int // fail this many SwitchTo calls before succeeding
}

func (f *fakeService) SwitchTo(target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor > 0 {
		f.failFor--
		return errors.New("service unavailable")
	}
	f.switches = append(f.switches, target)
	f.current = target
	return nil
}

func (f *fakeService) CurrentID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.curErr
}

func (f *fakeService) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.switches...)
}

// fakeClock is a manually advanced clock.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestThrottle(svc *fakeService) (*Throttle, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	return New(svc, Options{Now: clk.Now}), clk
}

func TestInternalDuplicateWithinWindowCollapses(t *testing.T) {
	svc := &fakeService{}
	th, clk := newTestThrottle(svc)
	ctx := context.Background()

	fwd, err := th.Submit(ctx, Request{Target: "ATOK", Origin: OriginInternal})
	if err != nil || !fwd {
		t.Fatalf("first submit: forwarded=%v err=%v, want forwarded", fwd, err)
	}

	clk.advance(10 * time.Millisecond)
	// The service now reports ATOK active, but the window check alone
	// already suppresses this.
	svc.current = ""
	fwd, err = th.Submit(ctx, Request{Target: "ATOK", Origin: OriginInternal})
	if err != nil || fwd {
		t.Fatalf("second submit within window: forwarded=%v err=%v, want elided", fwd, err)
	}

	if got := svc.calls(); len(got) != 1 {
		t.Errorf("service saw %d switches %v, want 1", len(got), got)
	}
}

func TestInternalElidedWhenAlreadyCurrent(t *testing.T) {
	svc := &fakeService{current: "ABC"}
	th, _ := newTestThrottle(svc)

	fwd, err := th.Submit(context.Background(), Request{Target: "ABC", Origin: OriginInternal})
	if err != nil || fwd {
		t.Fatalf("submit to active target: forwarded=%v err=%v, want elided", fwd, err)
	}
	if len(svc.calls()) != 0 {
		t.Errorf("service saw switches %v, want none", svc.calls())
	}
}

func TestUserReassertsActiveTarget(t *testing.T) {
	svc := &fakeService{current: "ABC"}
	th, clk := newTestThrottle(svc)
	ctx := context.Background()

	fwd, err := th.Submit(ctx, Request{Target: "ABC", Origin: OriginUser})
	if err != nil || !fwd {
		t.Fatalf("user submit to active target: forwarded=%v err=%v, want forwarded", fwd, err)
	}

	// Within the window even a user request is suppressed.
	clk.advance(10 * time.Millisecond)
	fwd, _ = th.Submit(ctx, Request{Target: "ABC", Origin: OriginUser})
	if fwd {
		t.Error("user submit inside window forwarded, want suppressed")
	}

	// After the window it forwards again despite being active.
	clk.advance(DefaultWindow)
	fwd, err = th.Submit(ctx, Request{Target: "ABC", Origin: OriginUser})
	if err != nil || !fwd {
		t.Fatalf("user submit after window: forwarded=%v err=%v, want forwarded", fwd, err)
	}
	if got := svc.calls(); len(got) != 2 {
		t.Errorf("service saw %d switches, want 2", len(got))
	}
}

func TestDistinctTargetsNotCrossThrottled(t *testing.T) {
	svc := &fakeService{}
	th, clk := newTestThrottle(svc)
	ctx := context.Background()

	th.Submit(ctx, Request{Target: "ATOK", Origin: OriginInternal})
	clk.advance(5 * time.Millisecond)
	fwd, err := th.Submit(ctx, Request{Target: "ABC", Origin: OriginInternal})
	if err != nil || !fwd {
		t.Fatalf("submit to other target inside first's window: forwarded=%v err=%v", fwd, err)
	}
}

func TestRetryThenSuccess(t *testing.T) {
	svc := &fakeService{failFor: 1}
	th, _ := newTestThrottle(svc)

	fwd, err := th.Submit(context.Background(), Request{Target: "ATOK", Origin: OriginInternal})
	if err != nil || !fwd {
		t.Fatalf("submit with one transient failure: forwarded=%v err=%v", fwd, err)
	}
	if got := svc.calls(); len(got) != 1 || got[0] != "ATOK" {
		t.Errorf("service calls = %v, want [ATOK]", got)
	}
}

func TestRetriesExhaustedDrops(t *testing.T) {
	svc := &fakeService{failFor: maxAttempts}
	var dropped []Request
	clk := &fakeClock{now: time.Now()}
	th := New(svc, Options{
		Now:    clk.Now,
		OnDrop: func(req Request, err error) { dropped = append(dropped, req) },
	})

	fwd, err := th.Submit(context.Background(), Request{Target: "ATOK", Origin: OriginInternal})
	if fwd || err == nil {
		t.Fatalf("submit with persistent failure: forwarded=%v err=%v, want drop", fwd, err)
	}
	if len(dropped) != 1 || dropped[0].Target != "ATOK" {
		t.Errorf("OnDrop got %v, want one ATOK request", dropped)
	}
}

func TestConfiguredWindow(t *testing.T) {
	svc := &fakeService{}
	clk := &fakeClock{now: time.Now()}
	window := 50 * time.Millisecond
	th := New(svc, Options{Now: clk.Now, Window: func() time.Duration { return window }})
	ctx := context.Background()

	th.Submit(ctx, Request{Target: "ATOK", Origin: OriginUser})
	clk.advance(60 * time.Millisecond)
	fwd, _ := th.Submit(ctx, Request{Target: "ATOK", Origin: OriginUser})
	if !fwd {
		t.Error("submit after configured window suppressed, want forwarded")
	}
}
