package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (PANOBRIDGE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("api-key", os.Getenv("PANOBRIDGE_API_KEY"), &cfg.APIKey)
	s.setString("username", os.Getenv("PANOBRIDGE_USERNAME"), &cfg.Username)
	s.setString("password", os.Getenv("PANOBRIDGE_PASSWORD"), &cfg.Password)
	s.setString("script-url", os.Getenv("PANOBRIDGE_SCRIPT_URL"), &cfg.ScriptURL)
	s.setString("srs", os.Getenv("PANOBRIDGE_SRS"), &cfg.SRS)
	s.setString("locale", os.Getenv("PANOBRIDGE_LOCALE"), &cfg.Locale)
	s.setString("image-id", os.Getenv("PANOBRIDGE_IMAGE_ID"), &cfg.ImageID)
	s.setString("listen", os.Getenv("PANOBRIDGE_LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("runtime-addr", os.Getenv("PANOBRIDGE_RUNTIME_ADDR"), &cfg.RuntimeAddr)
	s.setString("credentials-dir", os.Getenv("PANOBRIDGE_CREDENTIALS_DIR"), &cfg.CredentialsDir)

	s.setStringsFromString("runtime-cmd", os.Getenv("PANOBRIDGE_RUNTIME_CMD"), &cfg.RuntimeCmd)

	if err := s.setDuration("ready-timeout", os.Getenv("PANOBRIDGE_READY_TIMEOUT"), &cfg.ReadyTimeout); err != nil {
		return err
	}
	if err := s.setDuration("call-timeout", os.Getenv("PANOBRIDGE_CALL_TIMEOUT"), &cfg.CallTimeout); err != nil {
		return err
	}

	s.setBoolFromString("map-point", os.Getenv("PANOBRIDGE_MAP_POINT_VISIBLE"), &cfg.MapPointVisible)

	return nil
}
