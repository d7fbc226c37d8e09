package monitor

import "fmt"

// DiagKind classifies a diagnostic event.
type DiagKind int

const (
	// DiagCaptureFailed: capture could not be started; Attempts holds
	// how many tries were made. Fatal for this session's switching.
	DiagCaptureFailed DiagKind = iota
	// DiagCaptureDisabled: the capture backend was disabled externally.
	DiagCaptureDisabled
	// DiagCaptureReenabled: the automatic re-enable after an external
	// disable succeeded.
	DiagCaptureReenabled
	// DiagSwitchDropped: a switch request was dropped after retries;
	// Target holds the request target.
	DiagSwitchDropped
	// DiagEventOverflow: raw events were dropped because the delivery
	// queue was full.
	DiagEventOverflow
)

func (k DiagKind) String() string {
	switch k {
	case DiagCaptureFailed:
		return "capture_failed"
	case DiagCaptureDisabled:
		return "capture_disabled"
	case DiagCaptureReenabled:
		return "capture_reenabled"
	case DiagSwitchDropped:
		return "switch_dropped"
	case DiagEventOverflow:
		return "event_overflow"
	default:
		return "unknown"
	}
}

// Diag is one structured observability event emitted by the monitor.
type Diag struct {
	Kind     DiagKind
	Err      error
	Attempts int
	Target   string
	Reason   string
}

func (d Diag) String() string {
	s := d.Kind.String()
	if d.Target != "" {
		s += " target=" + d.Target
	}
	if d.Reason != "" {
		s += " reason=" + d.Reason
	}
	if d.Attempts > 0 {
		s += fmt.Sprintf(" attempts=%d", d.Attempts)
	}
	if d.Err != nil {
		s += " err=" + d.Err.Error()
	}
	return s
}
