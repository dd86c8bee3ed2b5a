package observability

import (
	"io"
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"
)

// BoolPtr returns a pointer to the provided bool value.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config defines the configuration for tracing and metrics export. It decodes
// from the "observability" config section.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, all observability operations become no-ops.
	Enabled bool `koanf:"enabled"`

	Service     ServiceConfig `koanf:"service"`
	Environment string        `koanf:"environment"`
	Trace       TraceConfig   `koanf:"trace"`
	Metrics     MetricsConfig `koanf:"metrics"`

	// Writer receives stdout exporter output (default: os.Stdout)
	Writer io.Writer `koanf:"-"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	// Name is required when observability is enabled.
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// TraceConfig defines configuration for distributed tracing.
type TraceConfig struct {
	// Enabled: nil = default (true when observability is enabled), false = explicitly disabled.
	Enabled *bool `koanf:"enabled"`

	// Endpoint is "stdout" or an OTLP endpoint: "http://localhost:4318" for HTTP,
	// "localhost:4317" for gRPC.
	Endpoint string `koanf:"endpoint"`

	// Protocol is "http" or "grpc"; ignored for stdout.
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS for OTLP endpoints.
	Insecure bool `koanf:"insecure"`

	// Headers are sent with every export, e.g. for authentication.
	Headers map[string]string `koanf:"headers"`

	// SampleRate is the fraction of traces recorded; nil = 1.0.
	SampleRate *float64 `koanf:"sample_rate"`

	// BatchTimeout bounds how long spans wait before export.
	BatchTimeout time.Duration `koanf:"batch_timeout"`
}

// MetricsConfig defines configuration for metrics collection.
type MetricsConfig struct {
	// Enabled: nil = default (true when observability is enabled), false = explicitly disabled.
	Enabled *bool `koanf:"enabled"`

	// Endpoint defaults to the trace endpoint. Metrics share the trace protocol,
	// TLS setting and headers.
	Endpoint string `koanf:"endpoint"`

	// Interval specifies how often to export metrics.
	Interval time.Duration `koanf:"interval"`
}

// ApplyDefaults sets default values for any config fields that are not specified.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.SampleRate == nil {
		c.Trace.SampleRate = Float64Ptr(1.0)
	}
	if c.Trace.BatchTimeout == 0 {
		if c.Trace.Endpoint == EndpointStdout {
			c.Trace.BatchTimeout = 500 * time.Millisecond
		} else {
			c.Trace.BatchTimeout = 5 * time.Second
		}
	}

	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = c.Trace.Endpoint
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 10 * time.Second
	}
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if rate := c.Trace.SampleRate; rate != nil && (*rate < 0 || *rate > 1) {
		return ErrInvalidSampleRate
	}
	if c.Trace.Endpoint == EndpointStdout {
		return nil
	}

	switch c.Trace.Protocol {
	case ProtocolHTTP:
		if !hasScheme(c.Trace.Endpoint) {
			return ErrInvalidEndpointFormat
		}
	case ProtocolGRPC:
		if hasScheme(c.Trace.Endpoint) {
			return ErrInvalidEndpointFormat
		}
	default:
		return ErrInvalidProtocol
	}
	return nil
}

func hasScheme(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

func enabled(b *bool) bool {
	return b != nil && *b
}
