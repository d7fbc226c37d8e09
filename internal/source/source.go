// Package source abstracts the OS input-source (IME) service.
//
// Target ids are opaque strings owned by the platform service, e.g.
// "com.apple.keylayout.ABC" on macOS or "keyboard-us" on fcitx5.
// Unknown ids are passed through unvalidated; validity is the
// service's domain.
package source

import (
	"errors"
	"fmt"
	"runtime"
)

// Service switches and reports the active input source. Implementations
// must be safe to call redundantly: switching to the already-active
// source is a no-op at the OS level.
type Service interface {
	// SwitchTo makes target the active input source.
	SwitchTo(target string) error
	// CurrentID returns the id of the active input source.
	CurrentID() (string, error)
}

// ErrUnsupported is returned by New on platforms without a backend.
var ErrUnsupported = errors.New("no input source backend for this platform")

// New returns the platform's input source service.
func New() (Service, error) {
	svc, err := newPlatform()
	if err != nil {
		return nil, fmt.Errorf("input source backend (%s): %w", runtime.GOOS, err)
	}
	return svc, nil
}
