// Package server exposes the shutdown trigger over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"remoteshutdown/internal/core/trigger"
)

// Triggerer is the gate that decides whether a request starts a countdown.
type Triggerer interface {
	Attempt(credential string, delaySeconds *int) trigger.Outcome
}

// Config holds configuration for the HTTP server.
type Config struct {
	Address string
	Version string
	Logger  *slog.Logger
}

// Server is the HTTP front of the trigger gate.
type Server struct {
	config Config
	gate   Triggerer
	logger *slog.Logger
	mux    *http.ServeMux
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
	serveErr chan error
}

// New creates a new server with the given configuration.
func New(cfg Config, gate Triggerer) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		gate:   gate,
		logger: logger.With("component", "server"),
		mux:    http.NewServeMux(),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{secret}/shutdown", s.handleShutdown)
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start binds the listen address and serves requests in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.serveErr = make(chan error, 1)
	s.mu.Unlock()

	s.logger.Info("listening", "address", listener.Addr().String())
	go func() {
		err := s.server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.serveErr <- err
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Start.
func (s *Server) Port() int {
	if tcpAddr, ok := s.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}
	return 0
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	s.mu.Lock()
	serveErr := s.serveErr
	s.mu.Unlock()
	if serveErr == nil {
		return nil
	}
	return <-serveErr
}

// handleShutdown answers every request the same way. The outcome is only
// logged, so callers cannot tell a wrong secret from a busy countdown.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	delay := trigger.ParseDelay(r.URL.Query().Get("delay"))
	outcome := s.gate.Attempt(r.PathValue("secret"), delay)

	s.logger.Info("shutdown request", "remote", r.RemoteAddr, "outcome", outcome.String())
	w.WriteHeader(http.StatusOK)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version := s.config.Version
	if version == "" {
		version = "dev"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version,
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
