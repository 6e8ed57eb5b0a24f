package panobridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// Default timeouts applied by SetDefaults.
const (
	// DefaultReadyTimeout is how long the viewer boundary may stay
	// not-ready before the watchdog forces a remount.
	DefaultReadyTimeout = 30 * time.Second

	// DefaultCallTimeout bounds a single viewer API call.
	DefaultCallTimeout = 15 * time.Second
)

// Config holds the configuration for an embedded viewer instance.
// Use SetDefaults() to fill derived values, then Validate() before New().
type Config struct {
	// APIKey authenticates against the Street Smart service. Required.
	APIKey string

	// ScriptURL is the viewer API script the sandbox loads.
	// Defaults to the pinned vendor URL.
	ScriptURL string

	// SRS is the spatial reference system for coordinates and addresses.
	// Defaults to EPSG:4326.
	SRS string

	// Locale selects the viewer language and the message catalog.
	// Defaults to "en".
	Locale string

	// InitOptions is merged verbatim into the viewer init call. Entries
	// here override the fixed init parameters, including SRS and Locale.
	InitOptions map[string]any

	// Style is the host's base style, passed through on every view.
	Style map[string]string

	// Location is the initial location to open, if any.
	Location *Location

	// MapPointVisible reports whether the host's map point is visible at
	// the current zoom level. While false the viewer shows a zoom-in hint
	// instead of a panorama.
	MapPointVisible bool

	// RuntimeCommand is the viewer host command line. The bootstrap page
	// URL is appended as the final argument. When empty no child process
	// is spawned and an external host must open the page.
	RuntimeCommand []string

	// RuntimeListenAddr is the loopback address the sandbox bootstrap
	// server binds. Defaults to an ephemeral port on 127.0.0.1.
	RuntimeListenAddr string

	// CredentialsDir is the directory the default credential store
	// persists to. Defaults to ~/.panobridge/credentials.
	CredentialsDir string

	// ReadyTimeout is how long the viewer boundary may stay not-ready
	// before the watchdog forces a remount. Defaults to 30s.
	ReadyTimeout time.Duration

	// CallTimeout bounds a single viewer API call. Defaults to 15s.
	CallTimeout time.Duration
}

// SetDefaults fills in default values for unset fields.
func (c *Config) SetDefaults() {
	if c.ScriptURL == "" {
		c.ScriptURL = streetsmart.DefaultScriptURL
	}
	if c.SRS == "" {
		c.SRS = streetsmart.DefaultSRS
	}
	if c.Locale == "" {
		c.Locale = streetsmart.DefaultLocale
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = DefaultReadyTimeout
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.CredentialsDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.CredentialsDir = filepath.Join(home, ".panobridge", "credentials")
		}
	}
}

// Validate checks the configuration for errors.
// Call SetDefaults() first; zero timeouts fail validation.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key is required", domain.ErrInvalidConfig)
	}
	if len(c.RuntimeCommand) > 0 && strings.TrimSpace(c.RuntimeCommand[0]) == "" {
		return fmt.Errorf("%w: runtime command is blank", domain.ErrInvalidConfig)
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("%w: ready timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("%w: call timeout must be positive", domain.ErrInvalidConfig)
	}
	return nil
}
