package panobridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/meridian-labs/panobridge/internal/adapters/fs"
	"github.com/meridian-labs/panobridge/internal/adapters/i18n"
	"github.com/meridian-labs/panobridge/internal/adapters/sandbox"
	"github.com/meridian-labs/panobridge/internal/app"
	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/lifecycle"
	"github.com/meridian-labs/panobridge/pkg/log"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// Status is a point-in-time snapshot of an instance.
type Status struct {
	// Running reports whether the instance is started.
	Running bool

	// State is the viewer lifecycle state.
	State State

	// Epoch counts completed reloads.
	Epoch uint64

	// ImageID is the image id of the tracked location, when one is set.
	ImageID string

	// APIReady reports whether a viewer API handle is currently held.
	APIReady bool

	// SessionActive reports whether a panorama session is open.
	SessionActive bool

	// CredentialsSet reports whether complete credentials are present.
	CredentialsSet bool

	// ErrorMessage is the resolved failure text when State is StateError.
	ErrorMessage string
}

// Panobridge embeds the Street Smart panoramic viewer behind a sandboxed
// runtime. Use New() to create an instance, then Start() to bring the
// viewer up.
type Panobridge struct {
	config Config
	opts   options

	run     *lifecycle.DefaultManager
	store   ports.CredentialStore
	catalog ports.MessageCatalog
	logger  ports.Logger
	emitter *eventEmitterWrapper

	// Plugin support
	plugins []Plugin

	// Ready watchdog (config-based, not a plugin)
	watchdog *readyWatchdog

	// Control API (config-based, not a plugin)
	controlAPI *controlAPIRunner

	credentialsPath string

	// The controller and runtime are single-run objects; Start wires a
	// fresh pair so an instance can be restarted after Stop. spent marks
	// the pair as consumed by a completed run.
	mu      sync.RWMutex
	ctrl    *app.Controller
	runtime ports.ViewerRuntime
	spent   bool
	ctx     context.Context
	cancel  context.CancelFunc
}

var _ PluginHost = (*Panobridge)(nil)

// New creates a new Panobridge instance with the given configuration.
// The instance is created stopped; call Start() to bring the viewer up.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Panobridge, error) {
	// Set defaults
	cfg.SetDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validate module version compatibility
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	// Apply options
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// Create logger
	var logger ports.Logger
	if o.logger != nil {
		logger = o.logger
	} else {
		logger = log.NewNoopLogger()
	}

	// Create the credential store
	store := o.credStore
	credentialsPath := ""
	if store == nil {
		if cfg.CredentialsDir == "" {
			return nil, fmt.Errorf("%w: credentials dir could not be derived", domain.ErrInvalidConfig)
		}
		fileStore := fs.NewCredentialFile(cfg.CredentialsDir)
		store = fileStore
		credentialsPath = fileStore.Path(domain.CredentialRef)
	}

	// Create the message catalog
	catalog := o.catalog
	if catalog == nil {
		catalog = i18n.ForLocale(cfg.Locale)
	}

	p := &Panobridge{
		config:          cfg,
		opts:            o,
		run:             lifecycle.NewManager(logger, nil),
		store:           store,
		catalog:         catalog,
		logger:          logger,
		emitter:         &eventEmitterWrapper{handler: o.eventHandler},
		plugins:         o.plugins,
		credentialsPath: credentialsPath,
	}

	// Wire an initial controller so reads work before the first Start.
	p.buildRun()

	// Create ready watchdog if configured. The closures resolve the
	// current run's controller and runtime so restarts stay covered.
	if o.readyWatchdogConfig != nil && o.readyWatchdogConfig.Enabled {
		wcfg := *o.readyWatchdogConfig
		if wcfg.Timeout <= 0 {
			wcfg.Timeout = cfg.ReadyTimeout
		}
		p.watchdog = newReadyWatchdog(wcfg,
			func() bool { return p.controller().Snapshot().APIReady },
			func() error { return p.viewerRuntime().Remount() },
			logger,
		)
	}

	// Create control API runner if configured
	if o.controlAPIConfig != nil && o.controlAPIConfig.Enabled {
		p.controlAPI = newControlAPIRunner(*o.controlAPIConfig, logger)
	}

	return p, nil
}

// buildRun wires a controller and runtime for one run. Callers hold the
// write lock or own the instance exclusively.
func (p *Panobridge) buildRun() {
	rt := p.opts.runtime
	if rt == nil {
		rt = sandbox.NewRuntime(sandbox.Config{
			Command:    p.config.RuntimeCommand,
			ListenAddr: p.config.RuntimeListenAddr,
			ScriptURL:  p.config.ScriptURL,
			Logger:     p.logger,
		})
	}

	p.runtime = rt
	p.ctrl = app.NewController(app.ControllerConfig{
		APIKey:          p.config.APIKey,
		SRS:             p.config.SRS,
		Locale:          p.config.Locale,
		InitOptions:     p.config.InitOptions,
		Style:           p.config.Style,
		Location:        p.config.Location,
		MapPointVisible: p.config.MapPointVisible,
		CallTimeout:     p.config.CallTimeout,
	}, rt, p.store, p.catalog, p.logger, p.emitter)
}

// controller returns the current run's controller.
func (p *Panobridge) controller() *app.Controller {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ctrl
}

// viewerRuntime returns the current run's runtime.
func (p *Panobridge) viewerRuntime() ports.ViewerRuntime {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.runtime
}

// Start brings the viewer up in the background.
// It returns once supervision is running; initialization progresses
// asynchronously as the sandbox delivers API handles.
// Returns an error if already running or if startup fails.
// The provided context is used for the lifetime of the run.
func (p *Panobridge) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.run.CanStart() {
		return domain.ErrAlreadyRunning
	}

	// Transition to starting
	if err := p.run.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
		return err
	}

	// Rewire when the previous run consumed the controller. The pair from
	// New is used as-is on the first Start so queued pre-start updates
	// are kept.
	if p.spent {
		p.buildRun()
		p.spent = false
	}

	// Create cancellable context
	runCtx, cancel := context.WithCancel(ctx)
	p.ctx = runCtx
	p.cancel = cancel
	p.run.SetCancel(cancel)

	// Initialize plugins
	pluginCfg := PluginConfig{
		CredentialsDir:  p.config.CredentialsDir,
		CredentialsPath: p.credentialsPath,
		Locale:          p.config.Locale,
		ScriptURL:       p.config.ScriptURL,
		Host:            p,
		Logger:          p.logger,
	}
	for _, plg := range p.plugins {
		if err := plg.Initialize(runCtx, pluginCfg); err != nil {
			p.logger.Error("plugin initialization failed",
				ports.String("plugin", plg.Name()),
				ports.Err(err))
			cancel()
			_ = p.run.TransitionTo(lifecycle.StateCrashed, "plugin init failed: "+plg.Name())
			return err
		}
		p.logger.Info("plugin initialized", ports.String("plugin", plg.Name()))
	}

	// Start the controller and its sandboxed runtime
	if err := p.ctrl.Start(runCtx); err != nil {
		cancel()
		p.spent = true
		_ = p.run.TransitionTo(lifecycle.StateCrashed, "controller start failed")
		return err
	}

	// Serve the control API if configured
	if p.controlAPI != nil {
		if err := p.controlAPI.start(p.ctrl); err != nil {
			p.logger.Error("control api start failed", ports.Err(err))
			_ = p.ctrl.Stop()
			cancel()
			p.spent = true
			_ = p.run.TransitionTo(lifecycle.StateCrashed, "control api start failed")
			return err
		}
	}

	// Start the ready watchdog if configured
	if p.watchdog != nil {
		p.watchdog.start(runCtx)
	}

	_ = p.run.TransitionTo(lifecycle.StateRunning, "viewer supervision running")
	return nil
}

// Stop gracefully shuts the viewer down.
// Tears down the session and initialization, closes the sandbox, the
// control API and all plugins.
// Returns nil on graceful shutdown, ErrShutdownTimeout if teardown was
// forced.
func (p *Panobridge) Stop() error {
	p.mu.Lock()

	if !p.run.CanStop() {
		p.mu.Unlock()
		return domain.ErrNotRunning
	}

	// Transition to stopping
	if err := p.run.TransitionTo(lifecycle.StateStopping, "Stop() called"); err != nil {
		p.mu.Unlock()
		return err
	}

	ctrl := p.ctrl
	cancel := p.cancel
	p.spent = true
	p.mu.Unlock()

	// Stop the watchdog first so it cannot remount a closing runtime
	if p.watchdog != nil {
		p.watchdog.stop()
	}

	// Stop the control API
	if p.controlAPI != nil {
		p.controlAPI.stop()
	}

	// Tear down the controller and the runtime
	err := ctrl.Stop()

	// Cancel the run context
	if cancel != nil {
		cancel()
	}

	// Shutdown plugins (in reverse order)
	shutdownCtx := context.Background()
	for i := len(p.plugins) - 1; i >= 0; i-- {
		plg := p.plugins[i]
		if shutdownErr := plg.Shutdown(shutdownCtx); shutdownErr != nil {
			p.logger.Error("plugin shutdown failed",
				ports.String("plugin", plg.Name()),
				ports.Err(shutdownErr))
		} else {
			p.logger.Info("plugin shutdown complete", ports.String("plugin", plg.Name()))
		}
	}

	// Transition to stopped
	if err != nil {
		_ = p.run.TransitionTo(lifecycle.StateCrashed, "shutdown timeout")
	} else {
		_ = p.run.TransitionTo(lifecycle.StateStopped, "graceful shutdown")
	}

	return err
}

// Status returns a point-in-time snapshot of the instance.
// Safe to call concurrently from any goroutine.
func (p *Panobridge) Status() Status {
	snap := p.controller().Snapshot()
	return Status{
		Running:        p.run.State() == lifecycle.StateRunning,
		State:          convertState(snap.State),
		Epoch:          snap.Epoch,
		ImageID:        snap.ImageID,
		APIReady:       snap.APIReady,
		SessionActive:  snap.SessionActive,
		CredentialsSet: snap.CredentialsSet,
		ErrorMessage:   snap.ErrorMessage,
	}
}

// View returns the current presentation descriptor.
// Safe to call concurrently from any goroutine.
func (p *Panobridge) View() View {
	return p.controller().View()
}

// SetCredentials persists the credentials and re-runs viewer
// initialization with them. Both fields must be non-empty.
func (p *Panobridge) SetCredentials(ctx context.Context, creds Credentials) error {
	if !creds.Complete() {
		return domain.ErrNoCredentials
	}
	return p.controller().SetCredentials(ctx, creds)
}

// SetLocation replaces the tracked location. The viewer opens the
// panorama named by the location's image id once initialized.
func (p *Panobridge) SetLocation(loc Location) error {
	return p.controller().SetLocation(loc)
}

// SetMapPointVisible updates the host's map-point visibility flag. While
// false the viewer shows a zoom-in hint instead of a panorama.
func (p *Panobridge) SetMapPointVisible(visible bool) error {
	return p.controller().SetMapPointVisible(visible)
}

// Reload clears the error state and forces a full destroy and
// reinitialize cycle.
func (p *Panobridge) Reload() error {
	return p.controller().Reload()
}

// ControlAPIAddr returns the bound control API address.
// Empty when the control API is disabled or the instance is not running.
func (p *Panobridge) ControlAPIAddr() string {
	if p.controlAPI == nil {
		return ""
	}
	return p.controlAPI.addr()
}

// BootstrapURL returns the sandbox bootstrap page URL for hosts that run
// without a configured RuntimeCommand and open the page themselves.
// Empty before Start or when the injected runtime does not expose one.
func (p *Panobridge) BootstrapURL() string {
	if u, ok := p.viewerRuntime().(interface{ URL() string }); ok {
		return u.URL()
	}
	return ""
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interface.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnLifecycleChange(previous, current app.LifecycleState, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnViewChange(view domain.ViewState) {
	if e.handler == nil {
		return
	}
	e.handler.OnViewChange(ViewChangeEvent{View: view})
}

func (e *eventEmitterWrapper) OnPointOfView(pov domain.PointOfView) {
	if e.handler == nil {
		return
	}
	e.handler.OnPointOfView(PointOfViewEvent{
		Heading: pov.Heading,
		Pitch:   pov.Pitch,
	})
}

func (e *eventEmitterWrapper) OnLocationChange(loc domain.Location) {
	if e.handler == nil {
		return
	}
	e.handler.OnLocationChange(LocationChangeEvent{Location: loc})
}

func (e *eventEmitterWrapper) OnViewerError(err error, message string) {
	if e.handler == nil {
		return
	}
	e.handler.OnViewerError(ViewerErrorEvent{Error: err, Message: message})
}

func convertState(s app.LifecycleState) State {
	switch s {
	case app.StateUninitialized:
		return StateUninitialized
	case app.StateInitializing:
		return StateInitializing
	case app.StateInitialized:
		return StateInitialized
	case app.StateError:
		return StateError
	default:
		return StateUninitialized
	}
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"lifecycle":   {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"log":         {log.Version, log.MinCompatibleVersion},
		"streetsmart": {streetsmart.Version, streetsmart.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	// Parse versions (simplified semver comparison)
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
