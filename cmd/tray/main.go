// ModSwitch — modifier-key input source switcher.
//
// Tray app that switches the active input source when modifier keys
// are tapped or chorded:
//   - Tap one bound modifier alone: switch on release.
//   - Hold a bound modifier and press another: switch on press.
//
// Settings live in a small localhost web UI reachable from the tray.
package main

import (
	"context"
	"errors"
	"log"
	"os/exec"
	"runtime"
	"time"

	"github.com/modswitch/modswitch/internal/autostart"
	"github.com/modswitch/modswitch/internal/capture"
	"github.com/modswitch/modswitch/internal/config"
	"github.com/modswitch/modswitch/internal/hotkey"
	"github.com/modswitch/modswitch/internal/monitor"
	"github.com/modswitch/modswitch/internal/notify"
	"github.com/modswitch/modswitch/internal/server"
	"github.com/modswitch/modswitch/internal/source"
	"github.com/modswitch/modswitch/internal/tray"
)

var version = "dev"

// noCapture stands in on platforms without a capture backend. User
// switches and the idle fallback still work.
type noCapture struct{}

func (noCapture) Start(capture.Callbacks) error { return nil }
func (noCapture) Stop() error                   { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[modswitch] config: %v", err)
	}

	svc, err := source.New()
	if err != nil {
		log.Fatalf("[modswitch] input source service: %v", err)
	}

	capSrc, err := capture.New()
	if err != nil {
		if !errors.Is(err, capture.ErrUnsupported) {
			log.Fatalf("[modswitch] capture: %v", err)
		}
		log.Printf("[modswitch] %v; key switching disabled", err)
		capSrc = noCapture{}
	}

	notifier := notify.New(cfg.GetNotifications())

	mon := monitor.New(monitor.Options{
		Service: svc,
		Capture: capSrc,
		Config:  cfg,
		OnDiag: func(d monitor.Diag) {
			switch d.Kind {
			case monitor.DiagSwitchDropped:
				notifier.SwitchDropped(d.Target)
			case monitor.DiagCaptureFailed:
				notifier.CaptureLost(d.Err.Error())
			}
		},
	})

	setPaused := func(paused bool) {
		mon.Pause(paused)
		tray.SetPaused(paused)
		notifier.Paused(paused)
		log.Printf("[modswitch] paused: %v", paused)
	}

	pauseHkMgr := hotkey.NewManager(func() {
		setPaused(!mon.Paused())
	})

	srv := server.New(mon, pauseHkMgr, cfg, version)
	srv.OnPause = func(paused bool) {
		tray.SetPaused(paused)
		notifier.Paused(paused)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var watcher *config.Watcher

	// System tray — blocks on the main thread.
	tray.Run(tray.RunOpts{
		Version:          version,
		AutoStartEnabled: cfg.GetAutoStart(),

		OnReady: func() {
			mon.Start()

			// Idle and notification settings apply live when the
			// file changes on disk.
			cfg.Subscribe(func() {
				mon.Reconfigure()
				notifier.SetEnabled(cfg.GetNotifications())
			})
			w, err := config.Watch(cfg)
			if err != nil {
				log.Printf("[modswitch] config watch: %v", err)
			} else {
				watcher = w
			}

			hk := cfg.GetPauseHotkey()
			if err := pauseHkMgr.Register(hk.Modifiers, hk.Key); err != nil {
				log.Printf("[modswitch] pause hotkey register failed: %v", err)
				log.Printf("[modswitch] you can change the hotkey via Settings")
			} else {
				log.Printf("[modswitch] pause hotkey: %s", hk.String())
			}

			if _, err := srv.Start(); err != nil {
				log.Printf("[modswitch] settings server: %v", err)
			}

			go trackCurrentSource(ctx, mon)

			log.Printf("[modswitch] ready (version %s)", version)
		},

		OnSettings: func() {
			url := srv.URL()
			if url == "" {
				log.Println("[modswitch] settings server not running")
				return
			}
			openBrowser(url)
		},

		OnPause: func(paused bool) {
			mon.Pause(paused)
			notifier.Paused(paused)
			log.Printf("[modswitch] paused: %v", paused)
		},

		OnAutoStart: func(enabled bool) {
			if enabled {
				if err := autostart.Enable(); err != nil {
					log.Printf("[modswitch] enable autostart: %v", err)
					return
				}
			} else {
				if err := autostart.Disable(); err != nil {
					log.Printf("[modswitch] disable autostart: %v", err)
					return
				}
			}
			if err := cfg.SetAutoStart(enabled); err != nil {
				log.Printf("[modswitch] save autostart config: %v", err)
			}
			log.Printf("[modswitch] auto-start: %v", enabled)
		},

		OnQuit: func() {
			cancel()
			pauseHkMgr.Unregister()
			if watcher != nil {
				watcher.Close()
			}
			srv.Stop()
			mon.Stop()
		},
	})
}

// trackCurrentSource keeps the tray menu's source line fresh.
func trackCurrentSource(ctx context.Context, mon *monitor.Monitor) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	var last string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := mon.Status().Current
			if cur != last {
				tray.SetCurrentSource(cur)
				last = cur
			}
		}
	}
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default: // linux, bsd
		cmd = "xdg-open"
		args = []string{url}
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		log.Printf("[modswitch] open browser: %v", err)
	}
}
