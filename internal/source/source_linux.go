//go:build linux

package source

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// DefaultTarget is the fallback source when no idle return target is
// configured.
const DefaultTarget = "keyboard-us"

const (
	fcitxService   = "org.fcitx.Fcitx5"
	fcitxPath      = "/controller"
	fcitxInterface = "org.fcitx.Fcitx.Controller1"
)

// fcitxController talks to fcitx5's controller over the session bus.
// Target ids are fcitx input method names, e.g. "keyboard-us" or "mozc".
type fcitxController struct {
	conn *dbus.Conn
}

func newPlatform() (Service, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}
	return &fcitxController{conn: conn}, nil
}

func (f *fcitxController) SwitchTo(target string) error {
	obj := f.conn.Object(fcitxService, fcitxPath)
	call := obj.Call(fcitxInterface+".SetCurrentIM", 0, target)
	if call.Err != nil {
		return fmt.Errorf("fcitx5 SetCurrentIM(%q): %w", target, call.Err)
	}
	return nil
}

func (f *fcitxController) CurrentID() (string, error) {
	obj := f.conn.Object(fcitxService, fcitxPath)
	var im string
	if err := obj.Call(fcitxInterface+".CurrentInputMethod", 0).Store(&im); err != nil {
		return "", fmt.Errorf("fcitx5 CurrentInputMethod: %w", err)
	}
	return im, nil
}
