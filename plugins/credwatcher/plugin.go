// Package credwatcher provides credential file monitoring for panobridge.
// When enabled, it watches the instance's credential file and
// re-authenticates the viewer when another process rewrites it.
package credwatcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/meridian-labs/panobridge/pkg/panobridge"
)

// Plugin implements credential file watching.
// It monitors the credential file the instance reads at startup and
// applies updated credentials to the running viewer when the file
// changes, so a login performed in another tool takes effect without a
// restart.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	retryInterval time.Duration
	debounceDelay time.Duration

	// Runtime state
	credentialsPath string
	host            panobridge.PluginHost
	logger          panobridge.Logger
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	debounce        *time.Timer

	// Applying credentials writes the same file back through the host's
	// store; lastApplied breaks that echo.
	lastApplied panobridge.Credentials
}

// Config holds configuration options for the credential watcher plugin.
type Config struct {
	// RetryInterval is the delay between retries when applying fails.
	// Default: 5 seconds
	RetryInterval time.Duration

	// DebounceDelay is the delay to wait after a file change before applying.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RetryInterval: 5 * time.Second,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new credential watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	return &Plugin{
		retryInterval: cfg.RetryInterval,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "credwatcher"
}

// Initialize sets up the plugin and starts the credential watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg panobridge.PluginConfig) error {
	p.mu.Lock()
	p.credentialsPath = cfg.CredentialsPath
	p.host = cfg.Host
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.credentialsPath == "" {
		p.logger.Warn("Credential watcher disabled: no credential file path")
		return nil
	}

	// Create cancellable context for the watcher loop
	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("Credential watcher plugin initialized")

	// Start watcher loop
	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the credential watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// watchLoop watches the credential file's directory for changes. The
// directory is watched rather than the file itself so rename-style
// atomic writes keep being observed.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("Credential watcher: failed to create watcher")
		return
	}
	defer watcher.Close()

	credDir := filepath.Dir(p.credentialsPath)
	credFile := filepath.Base(p.credentialsPath)

	if err := watcher.Add(credDir); err != nil {
		p.logger.Error("Credential watcher: failed to watch directory")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != credFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceApply(ctx, p.debounceDelay)

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("Credential watcher: watcher error")
		}
	}
}

func (p *Plugin) debounceApply(ctx context.Context, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(delay, func() {
		p.applyWithRetry(ctx)
	})
}

// applyWithRetry reads the credential file and applies it to the host,
// retrying until success or context cancellation. Unreadable or
// incomplete files are skipped so a half-written login never clears a
// working session.
func (p *Plugin) applyWithRetry(ctx context.Context) {
	creds, err := p.readCredentials()
	if err != nil {
		p.logger.Warn("Credential watcher: credential file unreadable")
		return
	}
	if !creds.Complete() {
		p.logger.Warn("Credential watcher: credential file incomplete, ignoring")
		return
	}

	p.mu.Lock()
	if creds == p.lastApplied {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	retryCount := 0
	for {
		if err := p.host.SetCredentials(ctx, creds); err == nil {
			p.mu.Lock()
			p.lastApplied = creds
			p.mu.Unlock()
			if retryCount > 0 {
				p.logger.Info("Credential watcher: applied credential update after retries")
			} else {
				p.logger.Info("Credential watcher: applied credential update")
			}
			return
		}

		// Failure - log and retry
		retryCount++
		p.logger.Error("Credential watcher: apply failed")

		select {
		case <-ctx.Done():
			p.logger.Info("Credential watcher: stopping retry due to context cancellation")
			return
		case <-time.After(p.retryInterval):
			// Continue to next retry
		}
	}
}

func (p *Plugin) readCredentials() (panobridge.Credentials, error) {
	data, err := os.ReadFile(p.credentialsPath)
	if err != nil {
		return panobridge.Credentials{}, err
	}

	var creds panobridge.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return panobridge.Credentials{}, err
	}

	return creds, nil
}

// Ensure Plugin implements panobridge.Plugin.
var _ panobridge.Plugin = (*Plugin)(nil)
