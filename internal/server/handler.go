package server

import (
	"encoding/json"
	"io"
	"io/fs"
	"log"
	"net/http"

	"github.com/modswitch/modswitch/internal/autostart"
	"github.com/modswitch/modswitch/internal/config"
	"github.com/modswitch/modswitch/internal/hotkey"
	"github.com/modswitch/modswitch/internal/web"
)

// handleIndex serves the settings page HTML.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	staticFS, _ := fs.Sub(web.StaticFiles, "static")
	f, err := staticFS.Open("index.html")
	if err != nil {
		http.Error(w, "not found", 404)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.Copy(w, f)
}

// idleStatus mirrors config.IdleConfig in the status payload.
type idleStatus struct {
	Enabled        bool   `json:"enabled"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	ReturnTarget   string `json:"return_target"`
}

// statusResponse is the JSON response for GET /status.
type statusResponse struct {
	State         string     `json:"state"`
	CurrentSource string     `json:"current_source"`
	Held          []string   `json:"held"`
	Paused        bool       `json:"paused"`
	Dropped       uint64     `json:"dropped"`
	PauseHotkey   string     `json:"pause_hotkey"`
	Idle          idleStatus `json:"idle"`
	Version       string     `json:"version"`
	AutoStart     bool       `json:"auto_start"`
}

// handleStatus returns the monitor state and current settings.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "method not allowed", 405)
		return
	}

	st := s.mon.Status()
	idle := s.cfg.GetIdle()

	resp := statusResponse{
		State:         st.State,
		CurrentSource: st.Current,
		Held:          st.Held,
		Paused:        st.Paused,
		Dropped:       st.Dropped,
		PauseHotkey:   s.cfg.GetPauseHotkey().String(),
		Idle: idleStatus{
			Enabled:        idle.Enabled,
			TimeoutSeconds: idle.TimeoutSeconds,
			ReturnTarget:   idle.ReturnTarget,
		},
		Version:   s.version,
		AutoStart: s.cfg.GetAutoStart(),
	}
	writeJSON(w, resp)
}

// bindingsResponse is the JSON response for POST /bindings.
type bindingsResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// handleBindings returns or replaces the key bindings.
func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		writeJSON(w, s.cfg.GetBindings())
	case "POST":
		var req map[string]config.Binding
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, bindingsResponse{Error: "invalid JSON"})
			return
		}
		if err := s.cfg.SetBindings(req); err != nil {
			writeJSON(w, bindingsResponse{Error: err.Error()})
			return
		}
		log.Printf("[server] bindings updated (%d keys)", len(req))
		writeJSON(w, bindingsResponse{OK: true})
	default:
		http.Error(w, "method not allowed", 405)
	}
}

// idleRequest is the JSON body for POST /idle.
type idleRequest struct {
	Enabled        bool   `json:"enabled"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	ReturnTarget   string `json:"return_target"`
}

// idleResponse is the JSON response for POST /idle.
type idleResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// handleIdle updates the idle fallback settings.
func (s *Server) handleIdle(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", 405)
		return
	}

	var req idleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, idleResponse{Error: "invalid JSON"})
		return
	}
	if req.Enabled && req.TimeoutSeconds < 1 {
		writeJSON(w, idleResponse{Error: "timeout must be at least 1 second"})
		return
	}

	if err := s.cfg.SetIdle(config.IdleConfig{
		Enabled:        req.Enabled,
		TimeoutSeconds: req.TimeoutSeconds,
		ReturnTarget:   req.ReturnTarget,
	}); err != nil {
		log.Printf("[server] save idle config: %v", err)
		writeJSON(w, idleResponse{Error: "failed to persist setting"})
		return
	}
	s.mon.Reconfigure()

	log.Printf("[server] idle: enabled=%v, timeout=%ds", req.Enabled, req.TimeoutSeconds)
	writeJSON(w, idleResponse{OK: true})
}

// pauseRequest is the JSON body for POST /pause.
type pauseRequest struct {
	Paused bool `json:"paused"`
}

// pauseResponse is the JSON response for POST /pause.
type pauseResponse struct {
	Paused bool `json:"paused"`
}

// handlePause toggles the pause state.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", 405)
		return
	}

	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	s.mon.Pause(req.Paused)
	if s.OnPause != nil {
		s.OnPause(req.Paused)
	}
	log.Printf("[server] paused: %v", req.Paused)
	writeJSON(w, pauseResponse{Paused: req.Paused})
}

// hotkeyRequest is the JSON body for POST /hotkey.
type hotkeyRequest struct {
	Modifiers []string `json:"modifiers"`
	JSCode    string   `json:"js_code"`
}

// hotkeyResponse is the JSON response for POST /hotkey.
type hotkeyResponse struct {
	Hotkey string `json:"hotkey,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleHotkey updates the pause hotkey configuration.
func (s *Server) handleHotkey(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", 405)
		return
	}

	var req hotkeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, hotkeyResponse{Error: "invalid JSON"})
		return
	}

	if len(req.Modifiers) == 0 {
		writeJSON(w, hotkeyResponse{Error: "at least one modifier required"})
		return
	}

	keyName, err := hotkey.JSCodeToKeyName(req.JSCode)
	if err != nil {
		writeJSON(w, hotkeyResponse{Error: "unsupported key: " + req.JSCode})
		return
	}

	if s.hotkeyMgr != nil {
		if err := s.hotkeyMgr.Register(req.Modifiers, keyName); err != nil {
			log.Printf("[server] hotkey register failed: %v", err)
			writeJSON(w, hotkeyResponse{Error: "failed to register hotkey: " + err.Error()})
			return
		}
	}

	if err := s.cfg.SetPauseHotkey(req.Modifiers, keyName); err != nil {
		log.Printf("[server] config save failed: %v", err)
		writeJSON(w, hotkeyResponse{Error: "registered hotkey but failed to persist config"})
		return
	}

	hk := s.cfg.GetPauseHotkey()
	log.Printf("[server] pause hotkey updated to: %s", hk.String())
	writeJSON(w, hotkeyResponse{Hotkey: hk.String()})
}

// autoStartRequest is the JSON body for POST /autostart.
type autoStartRequest struct {
	Enabled bool `json:"enabled"`
}

// autoStartResponse is the JSON response for POST /autostart.
type autoStartResponse struct {
	AutoStart bool   `json:"auto_start"`
	Error     string `json:"error,omitempty"`
}

// handleAutoStart toggles the auto-start on login setting.
func (s *Server) handleAutoStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", 405)
		return
	}

	var req autoStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, autoStartResponse{Error: "invalid JSON"})
		return
	}

	if req.Enabled {
		if err := autostart.Enable(); err != nil {
			log.Printf("[server] enable autostart: %v", err)
			writeJSON(w, autoStartResponse{Error: "failed to enable auto-start: " + err.Error()})
			return
		}
	} else {
		if err := autostart.Disable(); err != nil {
			log.Printf("[server] disable autostart: %v", err)
			writeJSON(w, autoStartResponse{Error: "failed to disable auto-start: " + err.Error()})
			return
		}
	}

	if err := s.cfg.SetAutoStart(req.Enabled); err != nil {
		log.Printf("[server] save autostart config: %v", err)
		writeJSON(w, autoStartResponse{Error: "setting changed but failed to persist"})
		return
	}

	log.Printf("[server] auto-start: %v", req.Enabled)
	writeJSON(w, autoStartResponse{AutoStart: req.Enabled})
}

// switchRequest is the JSON body for POST /switch.
type switchRequest struct {
	Target string `json:"target"`
}

// switchResponse is the JSON response for POST /switch.
type switchResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// handleSwitch requests a user-initiated switch through the monitor.
func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", 405)
		return
	}

	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, switchResponse{Error: "invalid JSON"})
		return
	}
	if req.Target == "" {
		writeJSON(w, switchResponse{Error: "target required"})
		return
	}

	if err := s.mon.SubmitUser(req.Target); err != nil {
		writeJSON(w, switchResponse{Error: err.Error()})
		return
	}
	writeJSON(w, switchResponse{OK: true})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
