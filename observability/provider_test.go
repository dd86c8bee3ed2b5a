package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"

	"github.com/gaborage/apiclient/logger"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{Enabled: true, Service: ServiceConfig{Name: "voting-web"}}
	cfg.ApplyDefaults()

	assert.Equal(t, "unknown", cfg.Service.Version)
	assert.Equal(t, EnvironmentDevelopment, cfg.Environment)
	assert.Equal(t, EndpointStdout, cfg.Trace.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Trace.Protocol)
	assert.Equal(t, 1.0, *cfg.Trace.SampleRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Trace.BatchTimeout)
	assert.True(t, *cfg.Trace.Enabled)
	assert.True(t, *cfg.Metrics.Enabled)
	assert.Equal(t, EndpointStdout, cfg.Metrics.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Metrics.Interval)
}

func TestConfigApplyDefaultsKeepsExplicitDisable(t *testing.T) {
	cfg := Config{
		Enabled: true,
		Trace:   TraceConfig{Enabled: BoolPtr(false), Endpoint: "collector:4317"},
		Metrics: MetricsConfig{Enabled: BoolPtr(false)},
	}
	cfg.ApplyDefaults()

	assert.False(t, *cfg.Trace.Enabled)
	assert.False(t, *cfg.Metrics.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Trace.BatchTimeout)
	assert.Equal(t, "collector:4317", cfg.Metrics.Endpoint)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "disabled", cfg: Config{}},
		{name: "missing_service", cfg: Config{Enabled: true}, wantErr: ErrMissingServiceName},
		{
			name:    "sample_rate_out_of_range",
			cfg:     Config{Enabled: true, Service: ServiceConfig{Name: "svc"}, Trace: TraceConfig{SampleRate: Float64Ptr(1.5)}},
			wantErr: ErrInvalidSampleRate,
		},
		{
			name:    "http_without_scheme",
			cfg:     Config{Enabled: true, Service: ServiceConfig{Name: "svc"}, Trace: TraceConfig{Endpoint: "collector:4318", Protocol: ProtocolHTTP}},
			wantErr: ErrInvalidEndpointFormat,
		},
		{
			name:    "grpc_with_scheme",
			cfg:     Config{Enabled: true, Service: ServiceConfig{Name: "svc"}, Trace: TraceConfig{Endpoint: "http://collector:4317", Protocol: ProtocolGRPC}},
			wantErr: ErrInvalidEndpointFormat,
		},
		{
			name:    "unknown_protocol",
			cfg:     Config{Enabled: true, Service: ServiceConfig{Name: "svc"}, Trace: TraceConfig{Endpoint: "collector:4317", Protocol: "udp"}},
			wantErr: ErrInvalidProtocol,
		},
		{
			name: "grpc_host_port",
			cfg:  Config{Enabled: true, Service: ServiceConfig{Name: "svc"}, Trace: TraceConfig{Endpoint: "collector:4317", Protocol: ProtocolGRPC}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(&Config{}, nil)
	require.NoError(t, err)

	_, isNoop := p.(*noopProvider)
	assert.True(t, isNoop)
	assert.NotNil(t, p.TracerProvider())
	assert.NotNil(t, p.MeterProvider())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderInvalidConfig(t *testing.T) {
	_, err := NewProvider(&Config{Enabled: true}, logger.Nop())
	assert.ErrorIs(t, err, ErrMissingServiceName)

	_, err = NewProvider(nil, logger.Nop())
	assert.ErrorIs(t, err, ErrNilConfig)

	assert.Panics(t, func() { MustNewProvider(&Config{Enabled: true}, nil) })
}

func TestNewProviderDoesNotMutateCaller(t *testing.T) {
	cfg := &Config{Enabled: true, Service: ServiceConfig{Name: "svc"}, Writer: &bytes.Buffer{}}
	p, err := NewProvider(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.Empty(t, cfg.Trace.Endpoint)
	assert.Nil(t, cfg.Trace.SampleRate)
}

func TestStdoutProviderExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(&Config{
		Enabled: true,
		Service: ServiceConfig{Name: "voting-web", Version: "1.2.3"},
		Metrics: MetricsConfig{Enabled: BoolPtr(false)},
		Writer:  &buf,
	}, logger.Nop())
	require.NoError(t, err)

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "apiclient.request")
	span.End()

	require.NoError(t, p.ForceFlush(context.Background()))
	require.NoError(t, Shutdown(context.Background(), p, time.Second))

	out := buf.String()
	assert.Contains(t, out, "apiclient.request")
	assert.Contains(t, out, "voting-web")
}

func TestProviderPropagatorInjectsTraceparent(t *testing.T) {
	p, err := NewProvider(&Config{
		Enabled: true,
		Service: ServiceConfig{Name: "svc"},
		Metrics: MetricsConfig{Enabled: BoolPtr(false)},
		Writer:  &bytes.Buffer{},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	ctx, span := p.TracerProvider().Tracer("test").Start(context.Background(), "op")
	defer span.End()

	carrier := propagation.MapCarrier{}
	p.Propagator().Inject(ctx, carrier)
	assert.NotEmpty(t, carrier.Get("traceparent"))
}

type failingProvider struct{ *noopProvider }

func (failingProvider) Shutdown(context.Context) error { return errors.New("exporter unreachable") }

func TestShutdownHelper(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Shutdown(ctx, nil, 0))
	assert.NoError(t, Shutdown(ctx, newNoopProvider(), 0))

	var p Provider = failingProvider{newNoopProvider()}
	err := Shutdown(ctx, p, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observability shutdown failed")
	assert.Contains(t, err.Error(), "exporter unreachable")
}
