package cliconfig

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"PANOBRIDGE_API_KEY":       "env-key",
				"PANOBRIDGE_LOCALE":        "nl",
				"PANOBRIDGE_READY_TIMEOUT": "45s",
				"PANOBRIDGE_RUNTIME_CMD":   "chromium --headless",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				APIKey:       "env-key",
				Locale:       "nl",
				ReadyTimeout: 45 * time.Second,
				RuntimeCmd:   []string{"chromium", "--headless"},
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"PANOBRIDGE_API_KEY": "env-key",
				"PANOBRIDGE_LOCALE":  "nl",
			},
			changed: map[string]bool{"api-key": true},
			initial: Config{
				APIKey: "flag-key",
			},
			expected: Config{
				APIKey: "flag-key",
				Locale: "nl",
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"PANOBRIDGE_READY_TIMEOUT": "not-a-duration",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name: "handles bool '1' as true",
			envVars: map[string]string{
				"PANOBRIDGE_MAP_POINT_VISIBLE": "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				MapPointVisible: true,
			},
			wantErr: false,
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"PANOBRIDGE_MAP_POINT_VISIBLE": "false",
			},
			changed: map[string]bool{},
			initial: Config{MapPointVisible: true},
			expected: Config{
				MapPointVisible: false,
			},
			wantErr: false,
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"PANOBRIDGE_API_KEY":           "key",
				"PANOBRIDGE_USERNAME":          "alice",
				"PANOBRIDGE_PASSWORD":          "s3cret",
				"PANOBRIDGE_SCRIPT_URL":        "https://example.com/api.js",
				"PANOBRIDGE_SRS":               "EPSG:28992",
				"PANOBRIDGE_LOCALE":            "nl",
				"PANOBRIDGE_IMAGE_ID":          "img-1",
				"PANOBRIDGE_LISTEN_ADDR":       "127.0.0.1:9000",
				"PANOBRIDGE_RUNTIME_ADDR":      "127.0.0.1:9001",
				"PANOBRIDGE_RUNTIME_CMD":       "viewer-host --kiosk",
				"PANOBRIDGE_CREDENTIALS_DIR":   "/creds",
				"PANOBRIDGE_READY_TIMEOUT":     "1m",
				"PANOBRIDGE_CALL_TIMEOUT":      "30s",
				"PANOBRIDGE_MAP_POINT_VISIBLE": "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				APIKey:          "key",
				Username:        "alice",
				Password:        "s3cret",
				ScriptURL:       "https://example.com/api.js",
				SRS:             "EPSG:28992",
				Locale:          "nl",
				ImageID:         "img-1",
				ListenAddr:      "127.0.0.1:9000",
				RuntimeAddr:     "127.0.0.1:9001",
				RuntimeCmd:      []string{"viewer-host", "--kiosk"},
				CredentialsDir:  "/creds",
				ReadyTimeout:    1 * time.Minute,
				CallTimeout:     30 * time.Second,
				MapPointVisible: true,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			// Clean up after test
			defer func() {
				for k := range tt.envVars {
					os.Unsetenv(k)
				}
			}()

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	// Setup file config
	fileConf := FileConfig{
		APIKey:  "file-key",
		Locale:  "nl",
		ImageID: "file-img",
	}

	// Setup env vars
	os.Setenv("PANOBRIDGE_API_KEY", "env-key")
	os.Setenv("PANOBRIDGE_LOCALE", "de")
	defer func() {
		os.Unsetenv("PANOBRIDGE_API_KEY")
		os.Unsetenv("PANOBRIDGE_LOCALE")
	}()

	// Simulate CLI flags
	changed := map[string]bool{
		"api-key": true, // CLI flag was set for the key
	}

	cfg := Config{
		APIKey: "cli-key", // This should remain (CLI wins)
	}

	// Apply file config
	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}

	// Apply env config
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	// Verify precedence: CLI > Env > File
	if cfg.APIKey != "cli-key" {
		t.Errorf("APIKey = %v, want cli-key (CLI should win)", cfg.APIKey)
	}
	if cfg.Locale != "de" {
		t.Errorf("Locale = %v, want de (env should override file)", cfg.Locale)
	}
	if cfg.ImageID != "file-img" {
		t.Errorf("ImageID = %v, want file-img (file should set)", cfg.ImageID)
	}
}
