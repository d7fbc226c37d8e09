package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/modswitch/modswitch/internal/capture"
	"github.com/modswitch/modswitch/internal/config"
	"github.com/modswitch/modswitch/internal/keys"
	"github.com/modswitch/modswitch/internal/monitor"
)

type fakeService struct {
	mu       sync.Mutex
	current  string
	switches []string
}

func (f *fakeService) SwitchTo(target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switches = append(f.switches, target)
	f.current = target
	return nil
}

func (f *fakeService) CurrentID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeService) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.switches...)
}

type nopCapture struct{}

func (nopCapture) Start(capture.Callbacks) error { return nil }
func (nopCapture) Stop() error                   { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *config.Config, *fakeService) {
	t.Helper()

	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	svc := &fakeService{}
	mon := monitor.New(monitor.Options{
		Service: svc,
		Capture: nopCapture{},
		Config:  cfg,
	})
	mon.Start()
	t.Cleanup(mon.Stop)

	s := New(mon, nil, cfg, "test")
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, cfg, svc
}

func getJSON(t *testing.T, url string, out interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func postJSON(t *testing.T, url string, body, out interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var st statusResponse
	getJSON(t, ts.URL+"/status", &st)

	if st.Version != "test" {
		t.Errorf("version = %q, want test", st.Version)
	}
	if st.State != "idle" {
		t.Errorf("state = %q, want idle", st.State)
	}
	if st.Paused {
		t.Error("fresh monitor reported paused")
	}
	if st.Idle.TimeoutSeconds != 30 {
		t.Errorf("idle timeout = %d, want default 30", st.Idle.TimeoutSeconds)
	}
}

func TestBindingsRoundTrip(t *testing.T) {
	ts, cfg, _ := newTestServer(t)

	update := map[string]config.Binding{
		"left-command":  {Target: "ABC", Enabled: true},
		"right-command": {Target: "ATOK", Enabled: true},
	}
	var resp bindingsResponse
	postJSON(t, ts.URL+"/bindings", update, &resp)
	if resp.Error != "" {
		t.Fatalf("POST /bindings error: %s", resp.Error)
	}

	var got map[string]config.Binding
	getJSON(t, ts.URL+"/bindings", &got)
	if b := got["left-command"]; b.Target != "ABC" || !b.Enabled {
		t.Errorf("left-command = %+v, want ABC/enabled", b)
	}
	if target, _ := cfg.Binding(keys.RightCommand); target != "ATOK" {
		t.Errorf("config right-command target = %q, want ATOK", target)
	}
}

func TestBindingsRejectUnknownKey(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var resp bindingsResponse
	postJSON(t, ts.URL+"/bindings", map[string]config.Binding{
		"caps-lock": {Target: "ABC", Enabled: true},
	}, &resp)
	if resp.Error == "" {
		t.Error("POST /bindings accepted unknown key")
	}
}

func TestIdleEndpointValidates(t *testing.T) {
	ts, cfg, _ := newTestServer(t)

	var resp idleResponse
	postJSON(t, ts.URL+"/idle", idleRequest{Enabled: true, TimeoutSeconds: 0}, &resp)
	if resp.Error == "" {
		t.Error("POST /idle accepted zero timeout")
	}

	postJSON(t, ts.URL+"/idle", idleRequest{Enabled: true, TimeoutSeconds: 45, ReturnTarget: "ABC"}, &resp)
	if resp.Error != "" {
		t.Fatalf("POST /idle error: %s", resp.Error)
	}
	idle := cfg.GetIdle()
	if !idle.Enabled || idle.TimeoutSeconds != 45 || idle.ReturnTarget != "ABC" {
		t.Errorf("idle config = %+v, want enabled/45/ABC", idle)
	}
}

func TestPauseEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var resp pauseResponse
	postJSON(t, ts.URL+"/pause", pauseRequest{Paused: true}, &resp)
	if !resp.Paused {
		t.Error("POST /pause did not report paused")
	}

	var st statusResponse
	getJSON(t, ts.URL+"/status", &st)
	if !st.Paused {
		t.Error("status did not report paused")
	}
}

func TestSwitchEndpoint(t *testing.T) {
	ts, _, svc := newTestServer(t)

	var resp switchResponse
	postJSON(t, ts.URL+"/switch", switchRequest{Target: "KANA"}, &resp)
	if resp.Error != "" {
		t.Fatalf("POST /switch error: %s", resp.Error)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls := svc.calls(); len(calls) == 1 && calls[0] == "KANA" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("switch never reached the service: %v", svc.calls())
}

func TestSwitchRequiresTarget(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var resp switchResponse
	postJSON(t, ts.URL+"/switch", switchRequest{}, &resp)
	if resp.Error == "" {
		t.Error("POST /switch accepted empty target")
	}
}
