//go:build linux

package capture

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/holoplot/go-evdev"

	"github.com/modswitch/modswitch/internal/keys"
)

const devInput = "/dev/input"

// evdev key event values.
const (
	evUp     = 0
	evDown   = 1
	evRepeat = 2
)

var codeToKey = map[evdev.EvCode]keys.Physical{
	evdev.KEY_LEFTMETA:   keys.LeftCommand,
	evdev.KEY_RIGHTMETA:  keys.RightCommand,
	evdev.KEY_LEFTSHIFT:  keys.LeftShift,
	evdev.KEY_RIGHTSHIFT: keys.RightShift,
	evdev.KEY_LEFTALT:    keys.LeftOption,
	evdev.KEY_RIGHTALT:   keys.RightOption,
	evdev.KEY_LEFTCTRL:   keys.LeftControl,
	evdev.KEY_RIGHTCTRL:  keys.RightControl,
}

// evdevSource reads modifier events from every device that looks like a
// keyboard. Many devices emit EV_KEY (power buttons, headsets); real
// keyboards are the ones that also advertise EV_REP.
type evdevSource struct {
	mu      sync.Mutex
	devices []*evdev.InputDevice
	cb      Callbacks
	running bool
	readers sync.WaitGroup
	alive   int
}

// New opens the platform capture backend.
func New() (Source, error) {
	return &evdevSource{}, nil
}

func (s *evdevSource) Start(cb Callbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	devices, err := openKeyboards()
	if err != nil {
		return err
	}

	s.devices = devices
	s.cb = cb
	s.running = true
	s.alive = len(devices)
	for _, dev := range devices {
		s.readers.Add(1)
		go s.readLoop(dev)
	}
	log.Printf("[capture] listening on %d keyboard device(s)", len(devices))
	return nil
}

// openKeyboards opens every /dev/input character device advertising
// EV_REP.
func openKeyboards() ([]*evdev.InputDevice, error) {
	entries, err := os.ReadDir(devInput)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", devInput, err)
	}

	var devices []*evdev.InputDevice
	for _, entry := range entries {
		if entry.Type()&os.ModeCharDevice == 0 {
			continue
		}
		path := filepath.Join(devInput, entry.Name())
		dev, err := evdev.Open(path)
		if err != nil {
			continue
		}
		if !slices.Contains(dev.CapableTypes(), evdev.EV_REP) {
			dev.Close()
			continue
		}
		devices = append(devices, dev)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no keyboard device under %s (missing permission on /dev/input?)", devInput)
	}
	return devices, nil
}

func (s *evdevSource) readLoop(dev *evdev.InputDevice) {
	defer s.readers.Done()
	defer s.readerGone()

	for {
		ev, err := dev.ReadOne()
		if err != nil {
			return
		}
		if ev.Type != evdev.EV_KEY || ev.Value == evRepeat {
			continue
		}
		key, ok := codeToKey[ev.Code]
		if !ok {
			continue
		}

		s.mu.Lock()
		cb := s.cb
		running := s.running
		s.mu.Unlock()
		if !running || cb.OnEvent == nil {
			return
		}
		cb.OnEvent(Event{
			Key:  key,
			Down: ev.Value == evDown,
			Time: time.Unix(ev.Time.Sec, ev.Time.Usec*1000),
		})
	}
}

// readerGone reports total loss of input devices while still running.
func (s *evdevSource) readerGone() {
	s.mu.Lock()
	s.alive--
	lost := s.running && s.alive == 0
	cb := s.cb
	s.mu.Unlock()
	if lost && cb.OnDisabled != nil {
		cb.OnDisabled("all input devices lost")
	}
}

func (s *evdevSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	devices := s.devices
	s.devices = nil
	s.mu.Unlock()

	for _, dev := range devices {
		dev.Close()
	}
	s.readers.Wait()
	return nil
}
