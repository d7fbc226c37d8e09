// Package hotkey provides the global pause/resume hotkey. Pressing it
// toggles switching without touching the tray or settings page.
package hotkey

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

// Manager handles global hotkey registration for the pause toggle.
type Manager struct {
	mu       sync.Mutex
	hk       *hotkey.Hotkey
	cancel   context.CancelFunc
	onToggle func()
}

// NewManager creates a hotkey manager calling onToggle on each press.
func NewManager(onToggle func()) *Manager {
	return &Manager{onToggle: onToggle}
}

// Register sets up the global hotkey with the given modifiers and key.
// If a hotkey is already registered, it is unregistered first.
func (m *Manager) Register(mods []string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unregisterLocked()

	parsedMods, err := ParseModifiers(mods)
	if err != nil {
		return fmt.Errorf("parse modifiers: %w", err)
	}
	parsedKey, err := ParseKey(key)
	if err != nil {
		return fmt.Errorf("parse key: %w", err)
	}

	hk := hotkey.New(parsedMods, parsedKey)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey: %w", err)
	}
	m.hk = hk

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.listen(ctx, hk)

	log.Printf("[hotkey] pause toggle registered: %v+%s", mods, key)
	return nil
}

// listen fires onToggle on each keydown. X11 auto-repeat generates
// spurious keyup/keydown pairs, so repeats within a short window are
// swallowed.
func (m *Manager) listen(ctx context.Context, hk *hotkey.Hotkey) {
	isLinux := runtime.GOOS == "linux"
	var lastDown time.Time
	const repeatWindow = 150 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			now := time.Now()
			if isLinux && now.Sub(lastDown) < repeatWindow {
				continue
			}
			lastDown = now
			if m.onToggle != nil {
				m.onToggle()
			}
		case <-hk.Keyup():
			// Toggle acts on the press edge only.
		}
	}
}

// Unregister removes the current global hotkey.
func (m *Manager) Unregister() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregisterLocked()
}

func (m *Manager) unregisterLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.hk != nil {
		m.hk.Unregister()
		m.hk = nil
	}
}
