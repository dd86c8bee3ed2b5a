// Package app wires configuration, logging, observability and the API client
// into one ready-to-use instance.
package app

import (
	"context"
	"fmt"

	"github.com/gaborage/apiclient/config"
	"github.com/gaborage/apiclient/httpclient"
	"github.com/gaborage/apiclient/logger"
	"github.com/gaborage/apiclient/observability"
	"github.com/gaborage/apiclient/presenter"
)

// App owns the client and the telemetry pipeline behind it.
type App struct {
	cfg           *config.Config
	log           logger.Logger
	observability observability.Provider
	client        *httpclient.Client
	presenter     *presenter.Presenter
}

// New loads configuration and builds an App.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(config.Options{
		File:    opts.ConfigFile,
		YAML:    opts.ConfigYAML,
		Environ: opts.Environ,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, opts)
}

// NewWithConfig builds an App from an already loaded configuration.
func NewWithConfig(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, config.ErrNotConfigured
	}

	b := newAppBootstrap(cfg, &opts)
	log := b.logger()

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Str("version", cfg.App.Version).
		Str("base_url", cfg.Client.BaseURL).
		Msg("Starting API client")

	provider, err := b.observability(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	client, err := b.client(log, provider)
	if err != nil {
		_ = observability.Shutdown(context.Background(), provider, observability.DefaultShutdownTimeout)
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return &App{
		cfg:           cfg,
		log:           log,
		observability: provider,
		client:        client,
		presenter:     presenter.New(opts.Catalog),
	}, nil
}

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Logger() logger.Logger { return a.log }

func (a *App) Client() *httpclient.Client { return a.client }

func (a *App) Observability() observability.Provider { return a.observability }

func (a *App) Presenter() *presenter.Presenter { return a.presenter }

// Report logs err at its presentation severity and returns what to show the user.
func (a *App) Report(err error) presenter.Presentation {
	return a.presenter.Log(a.log, err)
}

// Shutdown flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	if err := observability.Shutdown(ctx, a.observability, observability.DefaultShutdownTimeout); err != nil {
		a.log.Error().Err(err).Msg("Failed to shutdown observability")
		return err
	}
	a.log.Info().Msg("API client shutdown complete")
	return nil
}
