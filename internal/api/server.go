package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-labs/panobridge/internal/app"
	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	pblog "github.com/meridian-labs/panobridge/pkg/log"
)

// DefaultAddr is the loopback address the control server binds when the
// configuration does not name one.
const DefaultAddr = "127.0.0.1:8712"

// Controller is the slice of the application controller the control server
// drives. *app.Controller satisfies it.
type Controller interface {
	Snapshot() app.Snapshot
	View() domain.ViewState
	SetCredentials(ctx context.Context, creds domain.Credentials) error
	SetLocation(loc domain.Location) error
	SetMapPointVisible(visible bool) error
	Reload() error
}

// Config configures the control server.
type Config struct {
	// Addr is the listen address. Defaults to DefaultAddr.
	Addr string

	// ReadHeaderTimeout bounds header parsing on incoming requests.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown in Stop.
	ShutdownTimeout time.Duration

	// Logger receives request and lifecycle logs. Defaults to a no-op logger.
	Logger ports.Logger
}

// Server hosts the HTTP control plane. It does not listen until Start.
type Server struct {
	cfg    Config
	ctrl   Controller
	logger ports.Logger

	srv *http.Server
	ln  net.Listener
}

// NewServer wires the routes onto a chi router and applies defaults.
func NewServer(ctrl Controller, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 2 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = pblog.NewNoopLogger()
	}
	s := &Server{cfg: cfg, ctrl: ctrl, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/view", s.handleView)
		r.Put("/location", s.handleLocation)
		r.Put("/credentials", s.handleCredentials)
		r.Post("/reload", s.handleReload)
	})

	s.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Start binds the listen address and serves in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.logger.Info("control server listening", ports.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control server stopped", ports.Err(err))
		}
	}()
	return nil
}

// Addr reports the bound address once Start has returned.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts the server down, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fromSnapshot(s.ctrl.Snapshot()))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.View())
}

// handleLocation accepts a domain location and hands it to the controller.
// The body is the same shape the location-change event emits.
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var loc domain.Location
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&loc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := s.ctrl.SetLocation(loc); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	creds := domain.Credentials{Username: req.Username, Password: req.Password}
	if !creds.Complete() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and password are required"})
		return
	}
	if err := s.ctrl.SetCredentials(r.Context(), creds); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Reload(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps application errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrNotRunning) {
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// logRequests logs method, path and duration at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("control request",
			ports.String("method", r.Method),
			ports.String("path", r.URL.Path),
			ports.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
