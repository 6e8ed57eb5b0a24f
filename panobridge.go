// Package panobridge embeds the Cyclomedia Street Smart panoramic viewer
// beside a desktop map by supervising an isolated viewer host process.
//
// Example usage:
//
//	cfg := panobridge.DefaultConfig()
//	cfg.APIKey = "your-api-key"
//	cfg.RuntimeCmd = []string{"chromium", "--app"}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := panobridge.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks with the credential watcher, control API and ready watchdog
// enabled. Hosts that need event callbacks or lifecycle control should use
// the pkg/panobridge library directly.
package panobridge

import (
	"context"

	"github.com/meridian-labs/panobridge/internal/cliconfig"
	"github.com/rs/zerolog"
)

// Config holds the configuration for the viewer daemon.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// FileConfig mirrors Config with TOML tags and string durations for
// configuration files.
type FileConfig = cliconfig.FileConfig

// Run starts the viewer daemon with the given configuration.
// It blocks until the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return cliconfig.Run(ctx, cfg)
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set APIKey before calling Run.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// LoadConfigFile applies the TOML config file at path to cfg.
// This should be called after DefaultConfig and before Run.
func LoadConfigFile(cfg *Config, path string) error {
	return cliconfig.LoadConfigFile(cfg, path)
}

// Logger returns the package-level zerolog logger used by the daemon.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}

// DefaultControlAddr is the default control API listen address.
const DefaultControlAddr = cliconfig.DefaultControlAddr
