// Package config handles loading and saving the ModSwitch
// configuration: per-key input source bindings, idle fallback, and app
// settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/modswitch/modswitch/internal/keys"
)

// Binding maps one physical modifier key to an input source target.
type Binding struct {
	Target  string `json:"target"`
	Enabled bool   `json:"enabled"`
}

// IdleConfig controls the idle fallback switch.
type IdleConfig struct {
	Enabled        bool   `json:"enabled"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	ReturnTarget   string `json:"return_target"`
}

// HotkeyConfig defines the global pause/resume hotkey binding.
type HotkeyConfig struct {
	Modifiers []string `json:"modifiers"` // "ctrl", "shift", "alt", "super"
	Key       string   `json:"key"`       // "k", "space", "f5", etc.
}

// String returns a human-readable representation like "Ctrl+Alt+K".
func (h HotkeyConfig) String() string {
	s := ""
	for _, m := range h.Modifiers {
		switch m {
		case "ctrl":
			s += "Ctrl+"
		case "shift":
			s += "Shift+"
		case "alt":
			s += "Alt+"
		case "super":
			s += "Super+"
		}
	}
	if len(h.Key) == 1 {
		s += string(h.Key[0] - 32) // uppercase single letter
	} else {
		s += h.Key
	}
	return s
}

// Config holds the application configuration. Bindings are keyed by
// the physical key names from the keys package ("left-command", ...).
type Config struct {
	mu               sync.RWMutex       `json:"-"`
	Bindings         map[string]Binding `json:"bindings"`
	Idle             IdleConfig         `json:"idle"`
	ThrottleWindowMS int                `json:"throttle_window_ms"`
	PauseHotkey      HotkeyConfig       `json:"pause_hotkey"`
	Notifications    bool               `json:"notifications"`
	AutoStart        bool               `json:"auto_start"`

	path string   `json:"-"`
	subs []func() `json:"-"`
}

// DefaultConfig returns the default configuration: every modifier key
// listed, none bound yet, the command keys pre-enabled so filling in a
// target is the only step.
func DefaultConfig() *Config {
	bindings := make(map[string]Binding, keys.Count)
	for _, k := range keys.All() {
		bindings[k.String()] = Binding{
			Enabled: k == keys.LeftCommand || k == keys.RightCommand,
		}
	}
	return &Config{
		Bindings:         bindings,
		Idle:             IdleConfig{Enabled: false, TimeoutSeconds: 30},
		ThrottleWindowMS: 75,
		PauseHotkey:      HotkeyConfig{Modifiers: []string{"ctrl", "alt"}, Key: "k"},
		Notifications:    true,
	}
}

// Dir returns the OS-appropriate config directory for modswitch.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, "modswitch"), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path. If the file doesn't
// exist, it creates a default config and saves it.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(p)
}

// LoadFile reads the config from p, creating it with defaults when
// missing.
func LoadFile(p string) (*Config, error) {
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.path = p
		if saveErr := cfg.Save(); saveErr != nil {
			return nil, fmt.Errorf("create default config: %w", saveErr)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig() // start with defaults so new fields get populated
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.path = p
	return cfg, nil
}

// FilePath returns the path this config was loaded from.
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Save writes the config to disk atomically (write temp, rename).
func (c *Config) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	p := c.path
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if p == "" {
		p, err = Path()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// Reload re-reads the config file in place and notifies subscribers.
// Used by the file watcher when the file changes on disk.
func (c *Config) Reload() error {
	c.mu.RLock()
	p := c.path
	c.mu.RUnlock()
	if p == "" {
		var err error
		if p, err = Path(); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	fresh := DefaultConfig()
	if err := json.Unmarshal(data, fresh); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	c.mu.Lock()
	c.Bindings = fresh.Bindings
	c.Idle = fresh.Idle
	c.ThrottleWindowMS = fresh.ThrottleWindowMS
	c.PauseHotkey = fresh.PauseHotkey
	c.Notifications = fresh.Notifications
	c.AutoStart = fresh.AutoStart
	c.mu.Unlock()

	c.notify()
	return nil
}

// Subscribe registers fn to run after every config change. Callbacks
// run synchronously on the mutating goroutine and must be quick.
func (c *Config) Subscribe(fn func()) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *Config) notify() {
	c.mu.RLock()
	subs := append([]func(){}, c.subs...)
	c.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

// Binding returns the target bound to k and whether the binding is
// enabled. Satisfies the monitor's ConfigSource.
func (c *Config) Binding(k keys.Physical) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.Bindings[k.String()]
	if !ok {
		return "", false
	}
	return b.Target, b.Enabled
}

// IdleSettings returns the idle fallback configuration.
func (c *Config) IdleSettings() (bool, time.Duration, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Idle.Enabled, time.Duration(c.Idle.TimeoutSeconds) * time.Second, c.Idle.ReturnTarget
}

// ThrottleWindow returns the configured throttle window.
func (c *Config) ThrottleWindow() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.ThrottleWindowMS) * time.Millisecond
}

// SetBinding updates one key's binding and saves to disk.
func (c *Config) SetBinding(key string, b Binding) error {
	if _, err := keys.Parse(key); err != nil {
		return err
	}
	c.mu.Lock()
	if c.Bindings == nil {
		c.Bindings = make(map[string]Binding)
	}
	c.Bindings[key] = b
	c.mu.Unlock()
	if err := c.Save(); err != nil {
		return err
	}
	c.notify()
	return nil
}

// SetBindings replaces all bindings at once and saves to disk. Keys
// are validated before anything is applied.
func (c *Config) SetBindings(bindings map[string]Binding) error {
	for key := range bindings {
		if _, err := keys.Parse(key); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.Bindings = make(map[string]Binding, len(bindings))
	for k, v := range bindings {
		c.Bindings[k] = v
	}
	c.mu.Unlock()
	if err := c.Save(); err != nil {
		return err
	}
	c.notify()
	return nil
}

// GetBindings returns a copy of all bindings.
func (c *Config) GetBindings() map[string]Binding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Binding, len(c.Bindings))
	for k, v := range c.Bindings {
		out[k] = v
	}
	return out
}

// SetIdle updates the idle fallback settings and saves to disk.
func (c *Config) SetIdle(idle IdleConfig) error {
	c.mu.Lock()
	c.Idle = idle
	c.mu.Unlock()
	if err := c.Save(); err != nil {
		return err
	}
	c.notify()
	return nil
}

// GetIdle returns a copy of the idle settings.
func (c *Config) GetIdle() IdleConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Idle
}

// SetPauseHotkey updates the pause hotkey and saves to disk.
func (c *Config) SetPauseHotkey(mods []string, key string) error {
	c.mu.Lock()
	c.PauseHotkey = HotkeyConfig{Modifiers: mods, Key: key}
	c.mu.Unlock()
	if err := c.Save(); err != nil {
		return err
	}
	c.notify()
	return nil
}

// GetPauseHotkey returns a copy of the pause hotkey configuration.
func (c *Config) GetPauseHotkey() HotkeyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mods := make([]string, len(c.PauseHotkey.Modifiers))
	copy(mods, c.PauseHotkey.Modifiers)
	return HotkeyConfig{Modifiers: mods, Key: c.PauseHotkey.Key}
}

// GetAutoStart returns the current auto-start setting.
func (c *Config) GetAutoStart() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AutoStart
}

// SetAutoStart updates the auto-start setting and saves to disk.
func (c *Config) SetAutoStart(enabled bool) error {
	c.mu.Lock()
	c.AutoStart = enabled
	c.mu.Unlock()
	return c.Save()
}

// GetNotifications returns whether desktop notifications are enabled.
func (c *Config) GetNotifications() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Notifications
}

// SetNotifications updates the notifications setting and saves to disk.
func (c *Config) SetNotifications(enabled bool) error {
	c.mu.Lock()
	c.Notifications = enabled
	c.mu.Unlock()
	return c.Save()
}
