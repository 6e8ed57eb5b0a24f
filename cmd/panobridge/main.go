package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/meridian-labs/panobridge/internal/cliconfig"
	liblog "github.com/meridian-labs/panobridge/pkg/log"
	"github.com/meridian-labs/panobridge/pkg/panobridge"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
	"github.com/meridian-labs/panobridge/plugins/credwatcher"
)

const helpBanner = `
██████╗  █████╗ ███╗   ██╗ ██████╗ ██████╗ ██████╗ ██╗██████╗  ██████╗ ███████╗
██╔══██╗██╔══██╗████╗  ██║██╔═══██╗██╔══██╗██╔══██╗██║██╔══██╗██╔════╝ ██╔════╝
██████╔╝███████║██╔██╗ ██║██║   ██║██████╔╝██████╔╝██║██║  ██║██║  ███╗█████╗
██╔═══╝ ██╔══██║██║╚██╗██║██║   ██║██╔══██╗██╔══██╗██║██║  ██║██║   ██║██╔══╝
██║     ██║  ██║██║ ╚████║╚██████╔╝██████╔╝██║  ██║██║██████╔╝╚██████╔╝███████╗
╚═╝     ╚═╝  ╚═╝╚═╝  ╚═══╝ ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚═╝╚═════╝  ╚═════╝ ╚══════╝
`

const helpDescription = `
Embed Cyclomedia Street Smart panoramas beside your map without running the viewer in-process.

Highlights:
  - Supervises an isolated viewer host and remounts it when it stalls.
  - Watches the credential file so sign-ins from other tools apply live.
  - Serves a loopback control API for status, location and reload.
  - Safe defaults; configure via file, env, or flags.

Docs: https://docs.meridian-labs.dev/panobridge
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  panobridge --api-key <api-key> --runtime-cmd chromium,--app
  panobridge --config $HOME/.panobridge/config.toml --image-id 5D4KX5SM
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "panobridge",
		Short:   "Embed Cyclomedia Street Smart panoramas beside your map without running the viewer in-process",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.panobridge/config.toml), then apply flag overrides
			// Determine config path
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Apply environment variables (PANOBRIDGE_*)
			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			// Validate and set derived defaults
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Log configuration (masking secrets)
			logCfg := cfg
			if len(logCfg.APIKey) > 0 {
				logCfg.APIKey = "*****"
			}
			if len(logCfg.Password) > 0 {
				logCfg.Password = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			// Convert cliconfig.Config to panobridge.Config
			libCfg := panobridge.Config{
				APIKey:            cfg.APIKey,
				ScriptURL:         cfg.ScriptURL,
				SRS:               cfg.SRS,
				Locale:            cfg.Locale,
				MapPointVisible:   cfg.MapPointVisible,
				RuntimeCommand:    cfg.RuntimeCmd,
				RuntimeListenAddr: cfg.RuntimeAddr,
				CredentialsDir:    cfg.CredentialsDir,
				ReadyTimeout:      cfg.ReadyTimeout,
				CallTimeout:       cfg.CallTimeout,
			}
			if cfg.ImageID != "" {
				loc := panobridge.Location{}.WithImageID(cfg.ImageID)
				libCfg.Location = &loc
			}

			apiCfg := panobridge.DefaultControlAPIConfig()
			apiCfg.Enabled = true
			apiCfg.Addr = cfg.ListenAddr

			wdCfg := panobridge.DefaultReadyWatchdogConfig()
			wdCfg.Timeout = cfg.ReadyTimeout

			// Create zerolog adapter for the library
			zerologAdapter := liblog.NewZerologAdapterWithLogger(log)

			// Create panobridge instance with features enabled by default
			b, err := panobridge.New(libCfg,
				panobridge.WithLogger(zerologAdapter),
				// Enable credential watcher plugin
				credwatcher.WithDefaultCredentialWatcher(),
				// Enable loopback control API on the configured address
				panobridge.WithControlAPI(apiCfg),
				// Enable ready watchdog (remounts the viewer host when it stalls)
				panobridge.WithReadyWatchdog(wdCfg),
			)
			if err != nil {
				return fmt.Errorf("create panobridge: %w", err)
			}

			// Setup signal handling for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// Start panobridge
			if err := b.Start(ctx); err != nil {
				return fmt.Errorf("start panobridge: %w", err)
			}

			// Push config-supplied credentials once the run is up; stored
			// credentials are loaded by the run itself
			if cfg.Username != "" {
				creds := panobridge.Credentials{Username: cfg.Username, Password: cfg.Password}
				if err := b.SetCredentials(ctx, creds); err != nil {
					_ = b.Stop()
					return fmt.Errorf("apply credentials: %w", err)
				}
			}

			if len(cfg.RuntimeCmd) == 0 {
				log.Info().Str("url", b.BootstrapURL()).Msg("no viewer host command configured, open the bootstrap page to attach a host")
			}
			if addr := b.ControlAPIAddr(); addr != "" {
				log.Info().Str("addr", addr).Msg("control API listening")
			}

			// Wait for signal
			<-sigCh
			log.Info().Msg("received signal, stopping...")

			// Graceful shutdown
			if err := b.Stop(); err != nil {
				return fmt.Errorf("stop panobridge: %w", err)
			}
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.panobridge/config.toml)")
	root.Flags().StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Street Smart API key")
	root.Flags().StringVar(&cfg.Username, "username", cfg.Username, "Street Smart username (stored credentials apply otherwise)")
	root.Flags().StringVar(&cfg.Password, "password", cfg.Password, "Street Smart password")

	root.Flags().StringVar(&cfg.ScriptURL, "script-url", cfg.ScriptURL, fmt.Sprintf("viewer API script URL (defaults to %s; override only for vendor testing)", streetsmart.DefaultScriptURL))
	if err := root.Flags().MarkHidden("script-url"); err != nil {
		log.Info().Err(err).Msg("failed to hide script-url flag")
	}
	root.Flags().StringVar(&cfg.SRS, "srs", cfg.SRS, "spatial reference system for coordinates")
	root.Flags().StringVar(&cfg.Locale, "locale", cfg.Locale, "viewer language")
	root.Flags().StringVar(&cfg.ImageID, "image-id", cfg.ImageID, "panorama image to open on startup")

	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "control API listen address")
	root.Flags().StringVar(&cfg.RuntimeAddr, "runtime-addr", cfg.RuntimeAddr, "viewer host bootstrap listen address (defaults to an ephemeral loopback port)")
	if err := root.Flags().MarkHidden("runtime-addr"); err != nil {
		log.Info().Err(err).Msg("failed to hide runtime-addr flag")
	}
	root.Flags().StringSliceVar(&cfg.RuntimeCmd, "runtime-cmd", cfg.RuntimeCmd, "viewer host command; the bootstrap URL is appended as the last argument")
	root.Flags().StringVar(&cfg.CredentialsDir, "credentials-dir", cfg.CredentialsDir, "directory for persisted credentials")
	root.Flags().BoolVar(&cfg.MapPointVisible, "map-point", cfg.MapPointVisible, "whether the host map point starts visible")

	root.Flags().DurationVar(&cfg.ReadyTimeout, "ready-timeout", cfg.ReadyTimeout, "stalled viewer boundary tolerance before a forced remount")
	root.Flags().DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "timeout for a single viewer API call")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("panobridge")
		os.Exit(1)
	}
}
