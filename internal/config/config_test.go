package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modswitch/modswitch/internal/keys"
)

func tempConfig(t *testing.T) *Config {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return cfg
}

func TestLoadCreatesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if _, err := os.Stat(p); err != nil {
		t.Errorf("default config not written: %v", err)
	}
	if len(cfg.GetBindings()) != keys.Count {
		t.Errorf("default bindings = %d entries, want %d", len(cfg.GetBindings()), keys.Count)
	}
	if cfg.ThrottleWindow() != 75*time.Millisecond {
		t.Errorf("default throttle window = %v, want 75ms", cfg.ThrottleWindow())
	}
	enabled, timeout, _ := cfg.IdleSettings()
	if enabled || timeout != 30*time.Second {
		t.Errorf("default idle = %v/%v, want disabled/30s", enabled, timeout)
	}
}

func TestBindingRoundTrip(t *testing.T) {
	cfg := tempConfig(t)

	if err := cfg.SetBinding("left-command", Binding{Target: "ABC", Enabled: true}); err != nil {
		t.Fatalf("SetBinding: %v", err)
	}

	target, enabled := cfg.Binding(keys.LeftCommand)
	if target != "ABC" || !enabled {
		t.Errorf("Binding(left-command) = %q/%v, want ABC/true", target, enabled)
	}

	// Empty target reads as unbound regardless of the enabled flag.
	target, enabled = cfg.Binding(keys.LeftShift)
	if target != "" {
		t.Errorf("Binding(left-shift) target = %q, want empty", target)
	}
	_ = enabled

	// Persisted: a fresh load sees the same binding.
	cfg2, err := LoadFile(cfg.FilePath())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if target, _ := cfg2.Binding(keys.LeftCommand); target != "ABC" {
		t.Errorf("persisted Binding(left-command) = %q, want ABC", target)
	}
}

func TestSetBindingRejectsUnknownKey(t *testing.T) {
	cfg := tempConfig(t)
	if err := cfg.SetBinding("caps-lock", Binding{Target: "ABC", Enabled: true}); err == nil {
		t.Error("SetBinding(caps-lock) succeeded, want error")
	}
}

func TestSubscribeNotifiedOnChange(t *testing.T) {
	cfg := tempConfig(t)

	var calls int
	cfg.Subscribe(func() { calls++ })

	if err := cfg.SetIdle(IdleConfig{Enabled: true, TimeoutSeconds: 10, ReturnTarget: "ABC"}); err != nil {
		t.Fatalf("SetIdle: %v", err)
	}
	if calls != 1 {
		t.Errorf("subscriber called %d times after SetIdle, want 1", calls)
	}

	if err := cfg.SetBinding("right-command", Binding{Target: "ATOK", Enabled: true}); err != nil {
		t.Fatalf("SetBinding: %v", err)
	}
	if calls != 2 {
		t.Errorf("subscriber called %d times after SetBinding, want 2", calls)
	}
}

func TestReloadPicksUpExternalEdit(t *testing.T) {
	cfg := tempConfig(t)

	// Simulate an external editor rewriting the file.
	other, err := LoadFile(cfg.FilePath())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if err := other.SetBinding("right-option", Binding{Target: "KANA", Enabled: true}); err != nil {
		t.Fatalf("SetBinding: %v", err)
	}

	var notified bool
	cfg.Subscribe(func() { notified = true })
	if err := cfg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if target, enabled := cfg.Binding(keys.RightOption); target != "KANA" || !enabled {
		t.Errorf("after reload Binding(right-option) = %q/%v, want KANA/true", target, enabled)
	}
	if !notified {
		t.Error("Reload did not notify subscribers")
	}
}

func TestWatcherReloads(t *testing.T) {
	cfg := tempConfig(t)

	w, err := Watch(cfg)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	other, err := LoadFile(cfg.FilePath())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if err := other.SetBinding("left-control", Binding{Target: "HIRAGANA", Enabled: true}); err != nil {
		t.Fatalf("SetBinding: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if target, _ := cfg.Binding(keys.LeftControl); target == "HIRAGANA" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watcher never reloaded the external change")
}

func TestHotkeyString(t *testing.T) {
	h := HotkeyConfig{Modifiers: []string{"ctrl", "alt"}, Key: "k"}
	if got := h.String(); got != "Ctrl+Alt+K" {
		t.Errorf("String() = %q, want Ctrl+Alt+K", got)
	}
}
