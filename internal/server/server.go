// Package server provides the local HTTP server for the settings UI.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/modswitch/modswitch/internal/config"
	"github.com/modswitch/modswitch/internal/hotkey"
	"github.com/modswitch/modswitch/internal/monitor"
	"github.com/modswitch/modswitch/internal/web"
)

// Server serves the settings UI on localhost.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	mon        *monitor.Monitor
	hotkeyMgr  *hotkey.Manager
	cfg        *config.Config
	version    string

	// OnPause propagates pause toggles made from the page to the rest
	// of the app (tray checkbox, notification). Optional.
	OnPause func(paused bool)
}

// New creates a settings server.
func New(mon *monitor.Monitor, hotkeyMgr *hotkey.Manager, cfg *config.Config, version string) *Server {
	return &Server{
		mon:       mon,
		hotkeyMgr: hotkeyMgr,
		cfg:       cfg,
		version:   version,
	}
}

// Start begins serving on a random localhost port.
// Returns the URL to open in the browser.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[server] error: %v", err)
		}
	}()

	url := fmt.Sprintf("http://%s", ln.Addr().String())
	log.Printf("[server] settings available at %s", url)
	return url, nil
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	staticFS, err := fs.Sub(web.StaticFiles, "static")
	if err == nil {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	mux.HandleFunc("/", s.handleIndex)

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/bindings", s.handleBindings)
	mux.HandleFunc("/idle", s.handleIdle)
	mux.HandleFunc("/pause", s.handlePause)
	mux.HandleFunc("/hotkey", s.handleHotkey)
	mux.HandleFunc("/autostart", s.handleAutoStart)
	mux.HandleFunc("/switch", s.handleSwitch)

	return mux
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// URL returns the server's URL, or empty string if not started.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s", s.listener.Addr().String())
}
