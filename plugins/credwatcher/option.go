package credwatcher

import "github.com/meridian-labs/panobridge/pkg/panobridge"

// WithCredentialWatcher returns a panobridge Option that enables
// credential file watching. When enabled, the plugin monitors the
// instance's credential file for changes and re-authenticates the viewer
// with the updated pair.
//
// Usage:
//
//	p, err := panobridge.New(cfg,
//	    credwatcher.WithCredentialWatcher(credwatcher.Config{
//	        RetryInterval: 5 * time.Second,
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithCredentialWatcher(cfg Config) panobridge.Option {
	plugin := New(cfg)
	return panobridge.WithPlugin(plugin)
}

// WithDefaultCredentialWatcher returns a panobridge Option that enables
// credential watching with default settings (retry every 5s, debounce
// 100ms).
//
// Usage:
//
//	p, err := panobridge.New(cfg, credwatcher.WithDefaultCredentialWatcher())
func WithDefaultCredentialWatcher() panobridge.Option {
	return WithCredentialWatcher(DefaultConfig())
}
