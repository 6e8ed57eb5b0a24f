// Package panobridge provides an embeddable controller for the Cyclomedia
// Street Smart panoramic viewer.
//
// Panobridge runs the viewer library inside an isolated sandbox runtime,
// drives its authentication and panorama lifecycle, and exposes plain Go
// calls and events to the host. It can be used as a standalone daemon or
// embedded as a library in other Go programs.
//
// # Basic Usage
//
// To embed panobridge in your application:
//
//	cfg := panobridge.Config{
//	    APIKey:         "your-api-key",
//	    RuntimeCommand: []string{"chromium", "--app"},
//	}
//
//	p, err := panobridge.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := p.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Configuration
//
// Create a [Config] with at minimum APIKey. All other fields have sensible
// defaults set via [Config.SetDefaults]. Leave RuntimeCommand empty to run
// without a supervised child process and open [Panobridge.BootstrapURL]
// from your own host.
//
// # Event Handling
//
// To receive viewer notifications, implement [EventHandler] and pass it
// via [WithEventHandler]:
//
//	handler := &myEventHandler{}
//	p, err := panobridge.New(cfg, panobridge.WithEventHandler(handler))
//
// Events are called synchronously from the controller loop. Implementations
// should return quickly to avoid blocking the viewer.
//
// # Dependency Injection
//
// For testing, you can inject custom implementations of external
// dependencies:
//
//	p, err := panobridge.New(cfg,
//	    panobridge.WithRuntime(fakeRuntime),
//	    panobridge.WithCredentialStore(memStore),
//	    panobridge.WithLogger(customLogger),
//	)
//
// # Lifecycle States
//
// The embedded viewer is in one of four states: [StateUninitialized],
// [StateInitializing], [StateInitialized], or [StateError]. Use
// [Panobridge.Status] to query the current state and [Panobridge.Reload]
// to recover from [StateError].
//
// # Plugins and Runners
//
// Panobridge supports optional plugins and built-in runners:
//
//	import "github.com/meridian-labs/panobridge/plugins/credwatcher"
//
//	p, err := panobridge.New(cfg,
//	    credwatcher.WithDefaultCredentialWatcher(),
//	    panobridge.WithControlAPI(panobridge.DefaultControlAPIConfig()),
//	    panobridge.WithReadyWatchdog(panobridge.DefaultReadyWatchdogConfig()),
//	)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules and
// [CompatibilityMatrix] to check minimum compatible versions. See
// version.go for details.
package panobridge
