package panobridge

import (
	"context"
	"sync"
	"time"

	"github.com/meridian-labs/panobridge/internal/api"
	"github.com/meridian-labs/panobridge/internal/ports"
)

// ControlAPIConfig holds configuration options for the loopback control
// API. When enabled, the instance serves an HTTP control plane for the
// lifetime of a run: status and view reads, credential and location
// updates, and reload.
type ControlAPIConfig struct {
	// Enabled controls whether the control API is served. Default: false
	Enabled bool

	// Addr is the loopback address to bind. Default: 127.0.0.1:8712
	// Use 127.0.0.1:0 for an ephemeral port; read it back with
	// ControlAPIAddr().
	Addr string

	// ShutdownTimeout bounds the graceful server shutdown. Default: 5s
	ShutdownTimeout time.Duration
}

// DefaultControlAPIConfig returns a ControlAPIConfig with sensible defaults.
func DefaultControlAPIConfig() ControlAPIConfig {
	return ControlAPIConfig{
		Enabled:         true,
		Addr:            api.DefaultAddr,
		ShutdownTimeout: 5 * time.Second,
	}
}

// WithControlAPI enables the loopback control API with the specified
// configuration.
//
// Usage:
//
//	p, err := panobridge.New(cfg,
//	    panobridge.WithControlAPI(panobridge.ControlAPIConfig{
//	        Enabled: true,
//	        Addr:    "127.0.0.1:8712",
//	    }),
//	)
func WithControlAPI(cfg ControlAPIConfig) Option {
	if !cfg.Enabled {
		return func(o *options) {} // No-op if not enabled
	}

	// Apply defaults for zero values
	if cfg.Addr == "" {
		cfg.Addr = api.DefaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	return func(o *options) {
		o.controlAPIConfig = &cfg
	}
}

// controlAPIRunner serves the control API for the lifetime of a run.
type controlAPIRunner struct {
	cfg    ControlAPIConfig
	logger ports.Logger

	mu  sync.Mutex
	srv *api.Server
}

func newControlAPIRunner(cfg ControlAPIConfig, logger ports.Logger) *controlAPIRunner {
	return &controlAPIRunner{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *controlAPIRunner) start(ctrl api.Controller) error {
	srv := api.NewServer(ctrl, api.Config{
		Addr:            r.cfg.Addr,
		ShutdownTimeout: r.cfg.ShutdownTimeout,
		Logger:          r.logger,
	})
	if err := srv.Start(); err != nil {
		return err
	}

	r.mu.Lock()
	r.srv = srv
	r.mu.Unlock()
	return nil
}

func (r *controlAPIRunner) stop() {
	r.mu.Lock()
	srv := r.srv
	r.srv = nil
	r.mu.Unlock()

	if srv == nil {
		return
	}
	if err := srv.Stop(context.Background()); err != nil {
		r.logger.Warn("control api shutdown failed", ports.Err(err))
	}
}

// addr returns the bound listen address, empty while not serving.
func (r *controlAPIRunner) addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.srv == nil {
		return ""
	}
	return r.srv.Addr()
}
