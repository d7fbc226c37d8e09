// Package tray manages the system tray icon and menu.
package tray

import (
	"strings"

	"fyne.io/systray"
)

// RunOpts configures the system tray.
type RunOpts struct {
	Version          string // app version string (e.g., "1.0.0")
	AutoStartEnabled bool   // initial state of "Start on Login" checkbox
	Paused           bool   // initial state of "Pause Switching" checkbox
	OnReady          func()
	OnSettings       func()
	OnPause          func(paused bool) // called when user toggles pause
	OnAutoStart      func(enabled bool)
	OnQuit           func()
}

// Run starts the system tray. It blocks on the main thread.
func Run(opts RunOpts) {
	systray.Run(func() {
		systray.SetIcon(IconActive)
		systray.SetTitle("")
		systray.SetTooltip("ModSwitch")

		versionLabel := "ModSwitch"
		if opts.Version != "" && opts.Version != "dev" {
			versionLabel += " v" + strings.TrimPrefix(opts.Version, "v")
		}
		mVersion := systray.AddMenuItem(versionLabel, "")
		mVersion.Disable()

		systray.AddSeparator()

		mSettings := systray.AddMenuItem("Settings...", "Configure key bindings")
		mPause := systray.AddMenuItemCheckbox("Pause Switching", "Stop reacting to modifier keys", opts.Paused)
		mAutoStart := systray.AddMenuItemCheckbox("Start on Login", "Launch automatically on login", opts.AutoStartEnabled)

		systray.AddSeparator()

		mSource := systray.AddMenuItem("Source: unknown", "")
		mSource.Disable()

		systray.AddSeparator()

		mQuit := systray.AddMenuItem("Quit", "Exit ModSwitch")

		sourceItem = mSource
		pauseItem = mPause
		if opts.Paused {
			systray.SetIcon(IconPaused)
		}

		if opts.OnReady != nil {
			opts.OnReady()
		}

		go func() {
			for {
				select {
				case <-mSettings.ClickedCh:
					if opts.OnSettings != nil {
						opts.OnSettings()
					}
				case <-mPause.ClickedCh:
					paused := !mPause.Checked()
					SetPaused(paused)
					if opts.OnPause != nil {
						opts.OnPause(paused)
					}
				case <-mAutoStart.ClickedCh:
					if mAutoStart.Checked() {
						mAutoStart.Uncheck()
						if opts.OnAutoStart != nil {
							opts.OnAutoStart(false)
						}
					} else {
						mAutoStart.Check()
						if opts.OnAutoStart != nil {
							opts.OnAutoStart(true)
						}
					}
				case <-mQuit.ClickedCh:
					if opts.OnQuit != nil {
						opts.OnQuit()
					}
					systray.Quit()
				}
			}
		}()
	}, func() {
		// cleanup on systray exit
	})
}

var (
	sourceItem *systray.MenuItem
	pauseItem  *systray.MenuItem
)

// SetPaused updates the icon, tooltip and checkbox for the pause state.
func SetPaused(paused bool) {
	if paused {
		systray.SetIcon(IconPaused)
		systray.SetTooltip("ModSwitch — Paused")
		if pauseItem != nil {
			pauseItem.Check()
		}
	} else {
		systray.SetIcon(IconActive)
		systray.SetTooltip("ModSwitch")
		if pauseItem != nil {
			pauseItem.Uncheck()
		}
	}
}

// SetCurrentSource updates the informational source line in the menu.
func SetCurrentSource(id string) {
	if sourceItem == nil {
		return
	}
	if id == "" {
		sourceItem.SetTitle("Source: unknown")
		return
	}
	sourceItem.SetTitle("Source: " + id)
}

// Quit stops the system tray.
func Quit() {
	systray.Quit()
}
