package panobridge

import "context"

// Plugin extends a Panobridge instance with optional behavior.
// Plugins are initialized during Start() in registration order and shut
// down during Stop() in reverse order. An initialization failure aborts
// the start and crashes the instance.
type Plugin interface {
	// Name returns the plugin name for logging.
	Name() string

	// Initialize is called during Start(). The context is canceled when
	// the instance stops. The host must not be called synchronously from
	// Initialize; spawn a goroutine for ongoing work.
	Initialize(ctx context.Context, config PluginConfig) error

	// Shutdown is called during Stop(). Errors are logged, not propagated.
	Shutdown(ctx context.Context) error
}

// PluginHost is the control surface a running instance exposes to its
// plugins.
type PluginHost interface {
	Status() Status
	View() View
	SetCredentials(ctx context.Context, creds Credentials) error
	SetLocation(loc Location) error
	SetMapPointVisible(visible bool) error
	Reload() error
}

// PluginConfig is passed to each plugin during initialization.
type PluginConfig struct {
	// CredentialsDir is the directory the default credential store
	// persists to.
	CredentialsDir string

	// CredentialsPath is the file the default credential store writes.
	// Empty when a custom store was injected.
	CredentialsPath string

	// Locale is the configured viewer locale.
	Locale string

	// ScriptURL is the resolved viewer script URL.
	ScriptURL string

	// Host exposes the running instance to the plugin.
	Host PluginHost

	// Logger is the logger configured for the instance.
	Logger Logger
}

// BasePlugin provides a default Plugin implementation to embed.
// Embedders override the methods they need.
type BasePlugin struct {
	name string
}

// NewBasePlugin creates a base plugin with the given name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

// Name returns the plugin name.
func (p BasePlugin) Name() string { return p.name }

// Initialize is a no-op.
func (p BasePlugin) Initialize(ctx context.Context, config PluginConfig) error { return nil }

// Shutdown is a no-op.
func (p BasePlugin) Shutdown(ctx context.Context) error { return nil }
