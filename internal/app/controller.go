package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// ShutdownTimeout is the maximum time to wait for graceful teardown.
const ShutdownTimeout = 30 * time.Second

// ControllerEmitter receives host-facing notifications. Callbacks are
// invoked on the controller loop and must not block.
type ControllerEmitter interface {
	OnLifecycleChange(previous, current LifecycleState, reason string)
	OnPointOfView(pov domain.PointOfView)
	OnLocationChange(loc domain.Location)
	OnViewChange(view domain.ViewState)
	OnViewerError(err error, message string)
}

// ControllerConfig carries the host-supplied configuration.
type ControllerConfig struct {
	// APIKey authenticates the host against the vendor. Required.
	APIKey string

	// SRS and Locale are the fixed init parameters; the pass-through
	// InitOptions map may override both.
	SRS    string
	Locale string

	// InitOptions is merged verbatim into the vendor init call.
	InitOptions map[string]any

	// Style is the host's base style, passed through on every view.
	Style map[string]string

	// Location is the initial location, if any.
	Location *domain.Location

	// MapPointVisible is the initial map-point visibility flag.
	MapPointVisible bool

	// CallTimeout bounds a single bridge call.
	CallTimeout time.Duration
}

// Snapshot is the externally readable controller state. It is written on
// the loop after every task and read under the snapshot lock.
type Snapshot struct {
	State          LifecycleState
	Epoch          uint64
	ImageID        string
	APIReady       bool
	SessionActive  bool
	CredentialsSet bool
	ErrorMessage   string
	View           domain.ViewState
}

// Controller conducts the viewer components: it owns the run loop,
// tracks the host-supplied inputs, feeds the lifecycle and session state
// machines in order, and fans host-facing events out.
type Controller struct {
	cfg     ControllerConfig
	loop    *Loop
	runtime ports.ViewerRuntime
	creds   ports.CredentialStore
	catalog ports.MessageCatalog
	logger  ports.Logger
	emitter ControllerEmitter

	lifecycle *Lifecycle
	session   *Session
	recovery  *Recovery

	// Loop-confined tracked inputs.
	runCtx          context.Context
	api             streetsmart.API
	target          string
	credentials     domain.Credentials
	location        domain.Location
	hasLocation     bool
	mapPointVisible bool

	mu      sync.RWMutex
	snap    Snapshot
	started bool

	wg sync.WaitGroup
}

// NewController wires a controller from its collaborators. The runtime,
// store, catalog, logger and emitter must all be non-nil except emitter,
// which may be nil when the host consumes snapshots only.
func NewController(
	cfg ControllerConfig,
	runtime ports.ViewerRuntime,
	creds ports.CredentialStore,
	catalog ports.MessageCatalog,
	logger ports.Logger,
	emitter ControllerEmitter,
) *Controller {
	c := &Controller{
		cfg:             cfg,
		loop:            NewLoop(),
		runtime:         runtime,
		creds:           creds,
		catalog:         catalog,
		logger:          logger,
		emitter:         emitter,
		recovery:        NewRecovery(logger),
		mapPointVisible: cfg.MapPointVisible,
	}
	if cfg.Location != nil {
		c.location = *cfg.Location
		c.hasLocation = true
	}

	// Machine completions re-run the conductor so dependent inputs
	// propagate within the same task.
	post := func(fn func()) bool {
		return c.loop.Post(func() {
			fn()
			c.reapply()
		})
	}

	c.lifecycle = NewLifecycle(LifecycleConfig{
		SRS:         cfg.SRS,
		Locale:      cfg.Locale,
		Extra:       cfg.InitOptions,
		CallTimeout: cfg.CallTimeout,
	}, post, logger, c)

	c.session = NewSession(SessionConfig{
		SRS:         cfg.SRS,
		CallTimeout: cfg.CallTimeout,
	}, post, logger, c)

	return c
}

// Start loads stored credentials, starts the loop and the viewer runtime,
// and begins pumping runtime ready signals. It returns once supervision
// is running; initialization progresses asynchronously.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	c.started = true
	c.mu.Unlock()

	c.runCtx = ctx

	creds, ok, err := c.creds.Get(ctx, domain.CredentialRef)
	if err != nil {
		c.logger.Warn("credential load failed", ports.Err(err))
	} else if ok {
		c.credentials = creds
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop.Run(ctx)
	}()

	if err := c.runtime.Start(ctx); err != nil {
		c.loop.Close()
		return fmt.Errorf("start viewer runtime: %w", err)
	}

	// Each ready re-resolves the API handle: the initial mount and every
	// remount deliver a fresh one.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for ready := range c.runtime.Ready() {
			r := ready
			c.loop.Post(func() { c.handleReady(r) })
		}
	}()

	c.loop.Post(func() { c.reapply() })
	return nil
}

// Stop tears the session and initialization down, closes the runtime and
// stops the loop. Returns ErrShutdownTimeout when teardown had to be
// abandoned; the runtime is closed either way.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return domain.ErrNotRunning
	}
	c.started = false
	c.mu.Unlock()

	var timedOut bool
	done := make(chan struct{})
	posted := c.loop.Post(func() {
		defer close(done)
		c.session.Teardown(c.runCtx)
		c.lifecycle.Teardown(c.runCtx)
		c.publish()
	})
	if posted {
		select {
		case <-done:
		case <-c.loop.Done():
		case <-time.After(ShutdownTimeout):
			c.logger.Warn("teardown timed out",
				ports.Duration("timeout", ShutdownTimeout),
			)
			timedOut = true
		}
	}

	c.loop.Close()
	if err := c.runtime.Close(); err != nil {
		c.logger.Warn("runtime close failed", ports.Err(err))
	}
	c.wg.Wait()
	if timedOut {
		return domain.ErrShutdownTimeout
	}
	return nil
}

// Snapshot returns the last published controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// View returns the last published presentation descriptor.
func (c *Controller) View() domain.ViewState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.View
}

// SetCredentials stores the credentials and re-runs the lifecycle with
// them.
func (c *Controller) SetCredentials(ctx context.Context, creds domain.Credentials) error {
	if err := c.creds.Set(ctx, domain.CredentialRef, creds); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	if !c.loop.Post(func() {
		c.credentials = creds
		c.reapply()
	}) {
		return domain.ErrNotRunning
	}
	return nil
}

// SetLocation replaces the tracked location.
func (c *Controller) SetLocation(loc domain.Location) error {
	if !c.loop.Post(func() {
		c.location = loc
		c.hasLocation = true
		c.reapply()
	}) {
		return domain.ErrNotRunning
	}
	return nil
}

// SetMapPointVisible updates the host's map-point visibility flag.
func (c *Controller) SetMapPointVisible(visible bool) error {
	if !c.loop.Post(func() {
		c.mapPointVisible = visible
		c.reapply()
	}) {
		return domain.ErrNotRunning
	}
	return nil
}

// Reload clears the error state and forces a full destroy+reinitialize
// cycle by bumping the reload epoch.
func (c *Controller) Reload() error {
	if !c.loop.Post(func() {
		c.recovery.Reload()
		c.reapply()
	}) {
		return domain.ErrNotRunning
	}
	return nil
}

// handleReady adopts a freshly resolved API handle and mount target.
func (c *Controller) handleReady(r ports.Ready) {
	c.api = r.API
	c.target = r.TargetElement
	c.logger.Info("viewer api ready", ports.String("target", r.TargetElement))
	c.reapply()
}

// reapply runs both state machines against the current tracked inputs.
// When the lifecycle tuple changed, the session is torn down first so its
// handlers leave a still-valid viewer before destroy runs; the session is
// then fed the post-lifecycle state.
func (c *Controller) reapply() {
	lin := LifecycleInputs{
		API:      c.api,
		Target:   c.target,
		Username: c.credentials.Username,
		Password: c.credentials.Password,
		APIKey:   c.cfg.APIKey,
		Epoch:    c.recovery.Epoch(),
	}
	if c.lifecycle.NeedsApply(lin) {
		c.session.Teardown(c.runCtx)
		c.lifecycle.Apply(c.runCtx, lin)
	}

	c.session.Apply(c.runCtx, SessionInputs{
		API:         c.api,
		Initialized: c.lifecycle.State() == StateInitialized,
		ImageID:     c.imageID(),
	})

	c.publish()
}

// imageID extracts the image identifier from the tracked location.
func (c *Controller) imageID() string {
	if !c.hasLocation {
		return ""
	}
	return c.location.ImageID()
}

// publish derives the current view, stores the snapshot and emits a view
// change when the host-visible fields moved.
func (c *Controller) publish() {
	view := SelectView(PresentationInputs{
		CredentialsPresent: c.credentials.Complete(),
		APIReady:           c.api != nil,
		State:              c.lifecycle.State(),
		ImageID:            c.imageID(),
		MapPointVisible:    c.mapPointVisible,
		ErrorMessage:       DeriveMessage(c.lifecycle.Failure(), c.catalog),
		CanReload:          c.lifecycle.WasInitialized(),
		Style:              c.cfg.Style,
	})

	snap := Snapshot{
		State:          c.lifecycle.State(),
		Epoch:          c.recovery.Epoch(),
		ImageID:        c.imageID(),
		APIReady:       c.api != nil,
		SessionActive:  c.session.Active(),
		CredentialsSet: c.credentials.Complete(),
		ErrorMessage:   view.ErrorMessage,
		View:           view,
	}

	c.mu.Lock()
	prev := c.snap
	c.snap = snap
	c.mu.Unlock()

	if c.emitter != nil && !viewEqual(prev.View, view) {
		c.emitter.OnViewChange(view)
	}
}

// OnLifecycleChange implements LifecycleEmitter. Failures additionally
// surface as viewer errors with their derived message.
func (c *Controller) OnLifecycleChange(previous, current LifecycleState, reason string) {
	if c.emitter == nil {
		return
	}
	c.emitter.OnLifecycleChange(previous, current, reason)
	if current == StateError {
		err := c.lifecycle.Failure()
		c.emitter.OnViewerError(err, DeriveMessage(err, c.catalog))
	}
}

// OnPointOfView implements SessionSink.
func (c *Controller) OnPointOfView(pov domain.PointOfView) {
	if c.emitter != nil {
		c.emitter.OnPointOfView(pov)
	}
}

// OnLocationChange implements SessionSink. The clicked location becomes
// the tracked location, so the session follows the user into the new
// image; the host receives the same value.
func (c *Controller) OnLocationChange(loc domain.Location) {
	c.location = loc
	c.hasLocation = true
	if c.emitter != nil {
		c.emitter.OnLocationChange(loc)
	}
}

// OnSessionError implements SessionSink. Open and subscribe failures run
// through the lifecycle error state like init failures do.
func (c *Controller) OnSessionError(err error) {
	c.lifecycle.Fail(err, "open panorama failed")
}
