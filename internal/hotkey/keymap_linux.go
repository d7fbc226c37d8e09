//go:build linux

package hotkey

import "golang.design/x/hotkey"

var modMap = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.Mod1, // Alt on X11
	"super": hotkey.Mod4, // Super/Win on X11
}
