package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	APIKey          string   `toml:"api_key"`
	Username        string   `toml:"username"`
	Password        string   `toml:"password"`
	ScriptURL       string   `toml:"script_url"`
	SRS             string   `toml:"srs"`
	Locale          string   `toml:"locale"`
	ImageID         string   `toml:"image_id"`
	ListenAddr      string   `toml:"listen_addr"`
	RuntimeAddr     string   `toml:"runtime_addr"`
	RuntimeCmd      []string `toml:"runtime_cmd"`
	CredentialsDir  string   `toml:"credentials_dir"`
	MapPointVisible *bool    `toml:"map_point_visible"`
	ReadyTimeout    string   `toml:"ready_timeout"`
	CallTimeout     string   `toml:"call_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.panobridge/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".panobridge", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("api-key", fc.APIKey, &cfg.APIKey)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("password", fc.Password, &cfg.Password)
	s.setString("script-url", fc.ScriptURL, &cfg.ScriptURL)
	s.setString("srs", fc.SRS, &cfg.SRS)
	s.setString("locale", fc.Locale, &cfg.Locale)
	s.setString("image-id", fc.ImageID, &cfg.ImageID)
	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("runtime-addr", fc.RuntimeAddr, &cfg.RuntimeAddr)
	s.setString("credentials-dir", fc.CredentialsDir, &cfg.CredentialsDir)

	s.setStrings("runtime-cmd", fc.RuntimeCmd, &cfg.RuntimeCmd)

	if err := s.setDuration("ready-timeout", fc.ReadyTimeout, &cfg.ReadyTimeout); err != nil {
		return err
	}
	if err := s.setDuration("call-timeout", fc.CallTimeout, &cfg.CallTimeout); err != nil {
		return err
	}

	s.setBool("map-point", fc.MapPointVisible, &cfg.MapPointVisible)

	return nil
}

// LoadConfigFile loads the TOML config file at path and applies it to cfg.
// File values override whatever cfg already holds.
func LoadConfigFile(cfg *Config, path string) error {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return err
	}
	return ApplyFileConfig(cfg, fc, nil)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
