package app

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// DefaultCallTimeout bounds a single call across the viewer bridge.
const DefaultCallTimeout = 30 * time.Second

// LifecycleState represents the viewer initialization state machine.
type LifecycleState int

const (
	StateUninitialized LifecycleState = iota
	StateInitializing
	StateInitialized
	StateError
)

// String returns a human-readable representation of the state.
func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitializing:
		return "Initializing"
	case StateInitialized:
		return "Initialized"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// LifecycleEmitter is called when the initialization state changes.
type LifecycleEmitter interface {
	OnLifecycleChange(previous, current LifecycleState, reason string)
}

// LifecycleInputs is the dependency tuple the lifecycle reacts to. Apply
// re-runs the destroy/init pairing only when this tuple changes.
type LifecycleInputs struct {
	API      streetsmart.API
	Target   string
	Username string
	Password string
	APIKey   string
	Epoch    uint64
}

// complete reports whether every input required for initialization is present.
func (in LifecycleInputs) complete() bool {
	return in.API != nil && in.Username != "" && in.Password != "" && in.APIKey != ""
}

// LifecycleConfig carries the fixed initialization parameters.
type LifecycleConfig struct {
	SRS    string
	Locale string

	// Extra is the host's pass-through initialization map. Keys in it win
	// over the fixed init fields.
	Extra map[string]any

	CallTimeout time.Duration
}

// Lifecycle owns the authenticate+initialize / destroy pairing against the
// vendor API handle.
//
// All methods run on the controller loop. The init call is asynchronous
// and posts its completion back onto the loop; teardown is synchronous
// within Apply, so destroy always finishes before the next init is issued.
type Lifecycle struct {
	cfg     LifecycleConfig
	post    func(func()) bool
	logger  ports.Logger
	emitter LifecycleEmitter

	state   LifecycleState
	failure error

	// wasInitialized remembers, across the error window, whether the
	// machine had reached Initialized before the failure. It decides
	// whether recovery offers a reload.
	wasInitialized bool

	applied bool
	last    LifecycleInputs

	// api and target identify the init this lifecycle issued; teardown
	// destroys against exactly these, whether or not the init completed.
	api    streetsmart.API
	target string

	// gen invalidates in-flight init completions after a teardown.
	gen uint64
}

// NewLifecycle creates a lifecycle controller posting its completions
// through post.
func NewLifecycle(cfg LifecycleConfig, post func(func()) bool, logger ports.Logger, emitter LifecycleEmitter) *Lifecycle {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Lifecycle{
		cfg:     cfg,
		post:    post,
		logger:  logger,
		emitter: emitter,
		state:   StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() LifecycleState {
	return l.state
}

// Failure returns the retained failure while the state is StateError.
func (l *Lifecycle) Failure() error {
	return l.failure
}

// WasInitialized reports whether the machine had reached Initialized
// before the current failure.
func (l *Lifecycle) WasInitialized() bool {
	return l.wasInitialized
}

// NeedsApply reports whether Apply would act on the given inputs.
func (l *Lifecycle) NeedsApply(in LifecycleInputs) bool {
	return !l.applied || in != l.last
}

// Apply re-runs the destroy/init pairing for a changed input tuple. An
// unchanged tuple is a no-op. Otherwise the previous init is destroyed
// first, and a new init is issued only when every required input is
// present; its completion is posted back to the loop.
func (l *Lifecycle) Apply(ctx context.Context, in LifecycleInputs) {
	if !l.NeedsApply(in) {
		return
	}

	l.Teardown(ctx)
	l.last = in
	l.applied = true

	if !in.complete() {
		return
	}

	l.api = in.API
	l.target = in.Target
	l.transitionTo(StateInitializing, "dependencies changed")

	gen := l.gen
	api := in.API
	opts := streetsmart.InitOptions{
		TargetElement: in.Target,
		Username:      in.Username,
		Password:      in.Password,
		APIKey:        in.APIKey,
		SRS:           l.cfg.SRS,
		Locale:        l.cfg.Locale,
		Extra:         l.cfg.Extra,
	}
	timeout := l.cfg.CallTimeout

	go func() {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := api.Init(cctx, opts)
		l.post(func() { l.completeInit(gen, err) })
	}()
}

// Teardown destroys the previously issued init, if any. Destroy failures
// are logged and swallowed; teardown never propagates them.
func (l *Lifecycle) Teardown(ctx context.Context) {
	l.gen++

	if l.api == nil {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	err := l.api.Destroy(cctx, streetsmart.DestroyOptions{TargetElement: l.target})
	cancel()
	if err != nil {
		l.logger.Warn("viewer destroy failed",
			ports.String("target", l.target),
			ports.Err(err),
		)
	}

	l.api = nil
	l.target = ""
	l.failure = nil
	l.wasInitialized = false
	l.transitionTo(StateUninitialized, "teardown")
}

// completeInit applies the result of an init issued by Apply. Completions
// from a torn-down generation are logged and discarded.
func (l *Lifecycle) completeInit(gen uint64, err error) {
	if gen != l.gen {
		l.logger.Debug("discarding stale init completion",
			ports.Uint64("gen", gen),
			ports.Uint64("current", l.gen),
		)
		return
	}
	if err != nil {
		l.Fail(fmt.Errorf("viewer init: %w", err), "initialization failed")
		return
	}
	l.transitionTo(StateInitialized, "initialization complete")
}

// Fail records a failure and transitions to StateError, remembering
// whether the machine was initialized at the time.
func (l *Lifecycle) Fail(err error, reason string) {
	l.wasInitialized = l.state == StateInitialized
	l.failure = err
	l.transitionTo(StateError, reason)
}

// transitionTo performs a validated state transition and emits the change.
func (l *Lifecycle) transitionTo(next LifecycleState, reason string) {
	old := l.state
	if old == next {
		return
	}
	if !validTransition(old, next) {
		l.logger.Error("invalid lifecycle transition",
			ports.String("from", old.String()),
			ports.String("to", next.String()),
			ports.String("reason", reason),
		)
		return
	}

	l.state = next

	l.logger.Info("lifecycle transition",
		ports.String("from", old.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)

	if l.emitter != nil {
		l.emitter.OnLifecycleChange(old, next, reason)
	}
}

// validTransition reports whether the machine may move from old to next.
func validTransition(old, next LifecycleState) bool {
	switch old {
	case StateUninitialized:
		return next == StateInitializing
	case StateInitializing:
		return next == StateInitialized || next == StateError || next == StateUninitialized
	case StateInitialized:
		return next == StateError || next == StateUninitialized
	case StateError:
		return next == StateUninitialized
	}
	return false
}
