package panobridge

import (
	"github.com/meridian-labs/panobridge/internal/ports"
)

// Re-export the port types hosts implement or receive.
type (
	// Logger is the interface for structured logging.
	// See github.com/meridian-labs/panobridge/pkg/log for adapters.
	Logger = ports.Logger

	// LogField represents a structured log field.
	LogField = ports.Field

	// Runtime hosts the viewer library inside an isolated boundary.
	// The default implementation sandboxes it in a supervised child
	// process; tests and embedding hosts may inject their own.
	Runtime = ports.ViewerRuntime

	// Ready announces a usable viewer API handle, once per mount.
	Ready = ports.Ready

	// CredentialStore persists viewer credentials.
	CredentialStore = ports.CredentialStore

	// MessageCatalog resolves message ids to display text.
	MessageCatalog = ports.MessageCatalog
)

// Option configures optional behavior of a Panobridge instance.
type Option func(*options)

// options holds the optional configuration for a Panobridge instance.
type options struct {
	logger              ports.Logger
	eventHandler        EventHandler
	runtime             ports.ViewerRuntime
	credStore           ports.CredentialStore
	catalog             ports.MessageCatalog
	plugins             []Plugin
	readyWatchdogConfig *ReadyWatchdogConfig
	controlAPIConfig    *ControlAPIConfig
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger:       nil,
		eventHandler: nil,
		plugins:      nil,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for viewer events.
// Events are called synchronously from the controller loop.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithRuntime sets a custom viewer runtime.
// If not provided, a sandboxed child-process runtime is built from the
// RuntimeCommand, RuntimeListenAddr and ScriptURL configuration.
// The default runtime is rebuilt for every run; a custom runtime is
// reused across restarts and must support Start after Close.
func WithRuntime(rt Runtime) Option {
	return func(o *options) {
		o.runtime = rt
	}
}

// WithCredentialStore sets a custom credential store.
// If not provided, a file-backed store under CredentialsDir is used.
func WithCredentialStore(store CredentialStore) Option {
	return func(o *options) {
		o.credStore = store
	}
}

// WithMessageCatalog sets a custom message catalog.
// If not provided, a static catalog for the configured locale is used.
func WithMessageCatalog(catalog MessageCatalog) Option {
	return func(o *options) {
		o.catalog = catalog
	}
}

// WithPlugin registers a plugin to be initialized when the instance starts.
// Plugins are initialized in registration order and shutdown in reverse
// order. Use this for custom plugins. For built-in plugins, use specific
// options like credwatcher.WithCredentialWatcher().
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
