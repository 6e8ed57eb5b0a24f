package cliconfig

import (
	"context"
	"fmt"

	liblog "github.com/meridian-labs/panobridge/pkg/log"
	"github.com/meridian-labs/panobridge/pkg/panobridge"
	"github.com/meridian-labs/panobridge/plugins/credwatcher"
)

// Run starts a viewer instance with the default feature set and blocks
// until the context is cancelled. The credential watcher, control API
// and ready watchdog are all enabled.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

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

	b, err := panobridge.New(libCfg,
		panobridge.WithLogger(liblog.NewZerologAdapterWithLogger(Logger())),
		credwatcher.WithDefaultCredentialWatcher(),
		panobridge.WithControlAPI(apiCfg),
		panobridge.WithReadyWatchdog(wdCfg),
	)
	if err != nil {
		return fmt.Errorf("create viewer: %w", err)
	}

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start viewer: %w", err)
	}

	if cfg.Username != "" {
		creds := panobridge.Credentials{Username: cfg.Username, Password: cfg.Password}
		if err := b.SetCredentials(ctx, creds); err != nil {
			_ = b.Stop()
			return fmt.Errorf("apply credentials: %w", err)
		}
	}

	if len(cfg.RuntimeCmd) == 0 {
		lg := Logger()
		lg.Info().Str("url", b.BootstrapURL()).Msg("no viewer host command configured, open the bootstrap page to attach a host")
	}

	<-ctx.Done()
	return b.Stop()
}
