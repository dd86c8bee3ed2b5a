package app

import (
	"fmt"

	"github.com/gaborage/apiclient/config"
	"github.com/gaborage/apiclient/httpclient"
	"github.com/gaborage/apiclient/logger"
	"github.com/gaborage/apiclient/observability"
)

// appBootstrap runs the initialization sequence: logger, observability, client.
type appBootstrap struct {
	cfg  *config.Config
	opts *Options
}

func newAppBootstrap(cfg *config.Config, opts *Options) *appBootstrap {
	return &appBootstrap{cfg: cfg, opts: opts}
}

func (b *appBootstrap) logger() logger.Logger {
	if b.opts.LogWriter != nil {
		return logger.NewWithWriter(b.cfg.Log.Level, b.opts.LogWriter, nil)
	}
	return logger.New(b.cfg.Log.Level, b.cfg.Log.Pretty)
}

// observability decodes the "observability" section and builds the provider.
// Service identity defaults to the app section.
func (b *appBootstrap) observability(log logger.Logger) (observability.Provider, error) {
	var obsCfg observability.Config
	if err := b.cfg.Unmarshal("observability", &obsCfg); err != nil {
		return nil, fmt.Errorf("failed to decode observability config: %w", err)
	}
	if obsCfg.Service.Name == "" {
		obsCfg.Service.Name = b.cfg.App.Name
	}
	if obsCfg.Service.Version == "" {
		obsCfg.Service.Version = b.cfg.App.Version
	}
	if obsCfg.Environment == "" {
		obsCfg.Environment = b.cfg.App.Env
	}
	obsCfg.Writer = b.opts.TelemetryWriter

	return observability.NewProvider(&obsCfg, log)
}

func (b *appBootstrap) client(log logger.Logger, provider observability.Provider) (*httpclient.Client, error) {
	cfg := ClientConfig(b.cfg.Client)
	cfg.Logger = log
	cfg.Transport = b.opts.Transport
	cfg.OnUnauthorized = b.opts.OnUnauthorized
	cfg.RequestInterceptors = b.opts.RequestInterceptors
	cfg.TracerProvider = provider.TracerProvider()
	cfg.MeterProvider = provider.MeterProvider()
	cfg.Propagator = provider.Propagator()
	return httpclient.New(cfg)
}

// ClientConfig maps the client config section onto httpclient.Config. Empty
// business codes keep the built-in set.
func ClientConfig(cc config.ClientConfig) httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.BaseURL = cc.BaseURL
	cfg.Timeout = cc.Timeout
	cfg.Retry = httpclient.RetryPolicy{
		MaxAttempts:       cc.Retry.MaxAttempts,
		BaseDelay:         cc.Retry.BaseDelay,
		RetryServerErrors: httpclient.Bool(cc.Retry.ServerErrors),
	}
	cfg.AntiForgeryCookie = cc.AntiForgery.Cookie
	cfg.AntiForgeryHeader = cc.AntiForgery.Header
	cfg.CorrelationHeader = cc.CorrelationHeader
	if len(cc.BusinessCodes) > 0 {
		cfg.BusinessCodes = append([]string(nil), cc.BusinessCodes...)
	}
	cfg.StrictBusinessCodes = cc.StrictBusinessCodes
	for k, v := range cc.Headers {
		cfg.DefaultHeaders[k] = v
	}
	cfg.LogPayloads = cc.LogPayloads
	cfg.MaxPayloadLogBytes = cc.MaxPayloadLogBytes
	return cfg
}
