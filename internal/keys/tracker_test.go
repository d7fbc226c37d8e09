package keys

import (
	"testing"
	"time"
)

func TestObserveDuplicateSuppression(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr1, ok := tr.Observe(LeftCommand, true, now)
	if !ok {
		t.Fatal("first down report produced no transition")
	}
	if !tr1.Down || tr1.Key != LeftCommand {
		t.Errorf("transition = %v, want left-command down", tr1)
	}

	// Echo of the same logical state must be a no-op.
	if _, ok := tr.Observe(LeftCommand, true, now.Add(time.Millisecond)); ok {
		t.Error("duplicate down report produced a transition")
	}

	tr2, ok := tr.Observe(LeftCommand, false, now.Add(2*time.Millisecond))
	if !ok || tr2.Down {
		t.Errorf("up report: transition=%v ok=%v, want up transition", tr2, ok)
	}
	if _, ok := tr.Observe(LeftCommand, false, now.Add(3*time.Millisecond)); ok {
		t.Error("duplicate up report produced a transition")
	}
}

func TestDownSince(t *testing.T) {
	tr := NewTracker()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tr.Observe(RightShift, true, at)
	if got := tr.DownSince(RightShift); !got.Equal(at) {
		t.Errorf("DownSince = %v, want %v", got, at)
	}

	tr.Observe(RightShift, false, at.Add(time.Second))
	if got := tr.DownSince(RightShift); !got.IsZero() {
		t.Errorf("DownSince after release = %v, want zero", got)
	}
}

func TestOthersDown(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	if tr.AnyDown() {
		t.Error("AnyDown true on fresh tracker")
	}

	tr.Observe(LeftCommand, true, now)
	if tr.OthersDown(LeftCommand) {
		t.Error("OthersDown(left-command) true with only left-command held")
	}
	if !tr.OthersDown(RightCommand) {
		t.Error("OthersDown(right-command) false with left-command held")
	}

	tr.Observe(RightCommand, true, now)
	if !tr.OthersDown(LeftCommand) {
		t.Error("OthersDown(left-command) false with right-command held")
	}

	held := tr.HeldKeys()
	if len(held) != 2 || held[0] != LeftCommand || held[1] != RightCommand {
		t.Errorf("HeldKeys = %v, want [left-command right-command]", held)
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker()
	tr.Observe(LeftOption, true, time.Now())
	tr.Reset()
	if tr.AnyDown() {
		t.Error("AnyDown true after Reset")
	}
	// A fresh down after reset must produce a transition again.
	if _, ok := tr.Observe(LeftOption, true, time.Now()); !ok {
		t.Error("down after Reset produced no transition")
	}
}
