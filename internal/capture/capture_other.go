//go:build !linux

package capture

// New opens the platform capture backend.
//
// TODO: darwin backend over a CGEventTap flags-changed tap (needs a
// small cgo bridge); until then the monitor runs with an injected
// source only.
func New() (Source, error) {
	return nil, ErrUnsupported
}
