package panobridge

import (
	"context"
	"sync"
	"time"

	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/lifecycle"
)

// ReadyWatchdogConfig holds configuration options for the ready watchdog.
// The watchdog monitors the viewer boundary and forces a remount when no
// API handle has been delivered within the configured timeout. It covers
// the case where the viewer host is alive but its page never connects.
type ReadyWatchdogConfig struct {
	// Enabled controls whether the watchdog is active. Default: true
	Enabled bool

	// Timeout is how long the boundary may stay not-ready before a
	// remount is forced. Zero inherits the instance's ReadyTimeout.
	Timeout time.Duration

	// MaxInterval caps the escalating wait between successive remounts.
	// Default: 5 minutes.
	MaxInterval time.Duration
}

// DefaultReadyWatchdogConfig returns a ReadyWatchdogConfig with sensible
// defaults. The watchdog is enabled by default so a wedged viewer host
// recovers without operator intervention.
func DefaultReadyWatchdogConfig() ReadyWatchdogConfig {
	return ReadyWatchdogConfig{
		Enabled:     true,
		MaxInterval: 5 * time.Minute,
	}
}

// WithReadyWatchdog enables the ready watchdog with the specified
// configuration.
//
// Usage:
//
//	p, err := panobridge.New(cfg,
//	    panobridge.WithReadyWatchdog(panobridge.ReadyWatchdogConfig{
//	        Enabled: true,
//	        Timeout: time.Minute,
//	    }),
//	)
func WithReadyWatchdog(cfg ReadyWatchdogConfig) Option {
	if !cfg.Enabled {
		return func(o *options) {} // No-op if not enabled
	}

	// Apply defaults for zero values
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Minute
	}

	return func(o *options) {
		o.readyWatchdogConfig = &cfg
	}
}

// readyWatchdog probes boundary readiness and forces remounts on stalls.
type readyWatchdog struct {
	timeout     time.Duration
	maxInterval time.Duration

	ready   func() bool
	remount func() error
	logger  ports.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newReadyWatchdog(cfg ReadyWatchdogConfig, ready func() bool, remount func() error, logger ports.Logger) *readyWatchdog {
	return &readyWatchdog{
		timeout:     cfg.Timeout,
		maxInterval: cfg.MaxInterval,
		ready:       ready,
		remount:     remount,
		logger:      logger,
	}
}

func (w *readyWatchdog) start(ctx context.Context) {
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.logger.Info("ready watchdog enabled",
		ports.Duration("timeout", w.timeout),
	)

	w.wg.Add(1)
	go w.watchLoop(watchCtx)
}

func (w *readyWatchdog) stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// watchLoop probes readiness after each wait. A stalled boundary gets a
// remount; repeated stalls escalate the wait up to maxInterval so a
// permanently broken host is not remounted in a tight cycle.
func (w *readyWatchdog) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	b := lifecycle.NewBackoff(w.timeout, w.maxInterval)
	wait := w.timeout

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if w.ready() {
			b.Reset()
			wait = w.timeout
			continue
		}

		w.logger.Warn("viewer boundary not ready, forcing remount",
			ports.Duration("timeout", w.timeout),
		)
		if err := w.remount(); err != nil {
			w.logger.Error("remount failed", ports.Err(err))
		}
		wait = b.Next()
	}
}
