package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meridian-labs/panobridge/internal/api"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// DefaultControlAddr is the default control API listen address.
const DefaultControlAddr = api.DefaultAddr

// Config holds CLI configuration for the panobridge daemon.
type Config struct {
	APIKey   string
	Username string
	Password string

	ScriptURL string
	SRS       string
	Locale    string

	ImageID string

	ListenAddr  string
	RuntimeAddr string
	RuntimeCmd  []string

	CredentialsDir string

	MapPointVisible bool

	ReadyTimeout time.Duration
	CallTimeout  time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ScriptURL:       streetsmart.DefaultScriptURL,
		SRS:             streetsmart.DefaultSRS,
		Locale:          streetsmart.DefaultLocale,
		ListenAddr:      DefaultControlAddr,
		MapPointVisible: true,
		ReadyTimeout:    30 * time.Second,
		CallTimeout:     15 * time.Second,
		APIKey:          os.Getenv("PANOBRIDGE_API_KEY"),
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api-key is required")
	}

	if c.CredentialsDir == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("credentials-dir is required when no home directory is available")
		}
		// fallback derived layout
		c.CredentialsDir = filepath.Join(h, ".panobridge", "credentials")
	}

	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("username and password must be provided together")
	}

	if len(c.RuntimeCmd) > 0 && strings.TrimSpace(c.RuntimeCmd[0]) == "" {
		return fmt.Errorf("runtime-cmd must start with an executable")
	}

	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("ready timeout must be positive")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a string-slice value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setStringsFromString splits a whitespace-separated string into a slice.
// Used for environment variables that come as strings.
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = strings.Fields(value)
}
