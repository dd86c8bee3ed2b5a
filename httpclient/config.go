package httpclient

import (
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/apiclient/logger"
	gotrace "github.com/gaborage/apiclient/trace"
)

const (
	// DefaultTimeout is the per-attempt transport timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxAttempts is the number of attempts per call, first one included
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the backoff base delay
	DefaultBaseDelay = 1 * time.Second
	// DefaultAntiForgeryCookie is the cookie the anti-forgery token is read from
	DefaultAntiForgeryCookie = "csrftoken"
	// DefaultAntiForgeryHeader carries the anti-forgery token on unsafe methods
	DefaultAntiForgeryHeader = "X-CSRFToken"
	// DefaultMaxPayloadLogBytes caps logged body bytes when payload logging is on
	DefaultMaxPayloadLogBytes = 4096
)

// DefaultBusinessCodes are the application codes recognized as business failures.
var DefaultBusinessCodes = []string{
	"LOGIN_RATE_LIMITED",
	"RATE_LIMITED",
	"INVALID_CREDENTIALS",
	"INVALID_FORM_TOKEN",
	"CSRF_FAILED",
	"ACCOUNT_LOCKED",
	"EMAIL_NOT_VERIFIED",
	"MFA_REQUIRED",
	"VALIDATION_ERROR",
	"ALREADY_VOTED",
	"POLL_CLOSED",
	"TENANT_SUSPENDED",
}

// RetryPolicy is the client-wide retry behavior. Zero fields take the values of
// DefaultRetryPolicy, so a nil RetryServerErrors keeps 5xx retries enabled.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	RetryServerErrors *bool
}

func (p RetryPolicy) retriesServerErrors() bool {
	return p.RetryServerErrors == nil || *p.RetryServerErrors
}

// DefaultRetryPolicy returns 3 attempts, 1s base delay, server errors retried.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       DefaultMaxAttempts,
		BaseDelay:         DefaultBaseDelay,
		RetryServerErrors: Bool(true),
	}
}

// Config holds the client configuration. Several clients with different
// configurations may coexist.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   RetryPolicy

	AntiForgeryCookie string
	AntiForgeryHeader string
	// CorrelationHeader carries the correlation id (default: X-Request-Id)
	CorrelationHeader string

	// BusinessCodes is the recognized code set (default: DefaultBusinessCodes)
	BusinessCodes []string
	// StrictBusinessCodes limits business classification to BusinessCodes plus the
	// per-call TreatAsBusiness list. When false, any code on a 400/401/403/409/429
	// response is treated as a business failure.
	StrictBusinessCodes bool

	DefaultHeaders      map[string]string
	RequestInterceptors []RequestInterceptor
	OnUnauthorized      UnauthorizedHandler

	// Jar stores cookies between calls; a fresh jar is created when nil
	Jar nethttp.CookieJar
	// CookieSource overrides where the anti-forgery token is read from (default: Jar)
	CookieSource CookieSource
	// Transport overrides the HTTP transport (default: http.DefaultTransport)
	Transport nethttp.RoundTripper

	Logger logger.Logger
	// LogPayloads enables debug-level logging of request and response bodies
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	// Propagator injects trace context into outbound headers (default: W3C traceparent)
	Propagator propagation.TextMapPropagator
}

// DefaultConfig returns a configuration with every default applied except BaseURL.
func DefaultConfig() Config {
	return Config{
		Timeout:            DefaultTimeout,
		Retry:              DefaultRetryPolicy(),
		AntiForgeryCookie:  DefaultAntiForgeryCookie,
		AntiForgeryHeader:  DefaultAntiForgeryHeader,
		CorrelationHeader:  gotrace.HeaderXRequestID,
		BusinessCodes:      append([]string(nil), DefaultBusinessCodes...),
		DefaultHeaders:     make(map[string]string),
		MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = DefaultBaseDelay
	}
	if cfg.Retry.RetryServerErrors == nil {
		cfg.Retry.RetryServerErrors = Bool(true)
	}
	if cfg.AntiForgeryCookie == "" {
		cfg.AntiForgeryCookie = DefaultAntiForgeryCookie
	}
	if cfg.AntiForgeryHeader == "" {
		cfg.AntiForgeryHeader = DefaultAntiForgeryHeader
	}
	if cfg.CorrelationHeader == "" {
		cfg.CorrelationHeader = gotrace.HeaderXRequestID
	}
	if cfg.BusinessCodes == nil {
		cfg.BusinessCodes = append([]string(nil), DefaultBusinessCodes...)
	}
	if cfg.MaxPayloadLogBytes <= 0 {
		cfg.MaxPayloadLogBytes = DefaultMaxPayloadLogBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = propagation.TraceContext{}
	}
	return cfg
}

// Builder provides a fluent interface for configuring the client
type Builder struct {
	config Config
}

// NewBuilder creates a new client builder starting from DefaultConfig
func NewBuilder(log logger.Logger) *Builder {
	cfg := DefaultConfig()
	cfg.Logger = log
	return &Builder{config: cfg}
}

// WithBaseURL sets the API origin every path is resolved against
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-attempt transport timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries sets the attempt budget and backoff base delay
func (b *Builder) WithRetries(maxAttempts int, baseDelay time.Duration) *Builder {
	b.config.Retry.MaxAttempts = maxAttempts
	b.config.Retry.BaseDelay = baseDelay
	return b
}

// WithServerErrorRetries toggles retrying 5xx responses
func (b *Builder) WithServerErrorRetries(enabled bool) *Builder {
	b.config.Retry.RetryServerErrors = Bool(enabled)
	return b
}

// WithAntiForgery sets the cookie the token is read from and the header it is sent in
func (b *Builder) WithAntiForgery(cookieName, headerName string) *Builder {
	b.config.AntiForgeryCookie = cookieName
	b.config.AntiForgeryHeader = headerName
	return b
}

// WithCorrelationHeader sets the header carrying the correlation id
func (b *Builder) WithCorrelationHeader(header string) *Builder {
	b.config.CorrelationHeader = header
	return b
}

// WithBusinessCodes replaces the recognized business codes. strict disables the
// permissive any-code rule.
func (b *Builder) WithBusinessCodes(strict bool, codes ...string) *Builder {
	b.config.BusinessCodes = codes
	b.config.StrictBusinessCodes = strict
	return b
}

// WithDefaultHeader adds a header sent with every request
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithUnauthorizedHandler registers the collaborator notified of 401 outcomes
func (b *Builder) WithUnauthorizedHandler(h UnauthorizedHandler) *Builder {
	b.config.OnUnauthorized = h
	return b
}

// WithCookieJar sets the cookie jar shared with the login flow
func (b *Builder) WithCookieJar(jar nethttp.CookieJar) *Builder {
	b.config.Jar = jar
	return b
}

// WithCookieSource overrides where the anti-forgery token is read from
func (b *Builder) WithCookieSource(src CookieSource) *Builder {
	b.config.CookieSource = src
	return b
}

// WithTransport overrides the HTTP transport
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.config.Transport = rt
	return b
}

// WithPayloadLogging enables debug logging of bodies up to maxBytes
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	b.config.MaxPayloadLogBytes = maxBytes
	return b
}

// WithTelemetry sets the tracer and meter providers
func (b *Builder) WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *Builder {
	b.config.TracerProvider = tp
	b.config.MeterProvider = mp
	return b
}

// Config returns a copy of the accumulated configuration
func (b *Builder) Config() Config {
	return b.config
}

// Build creates the client with the configured options
func (b *Builder) Build() (*Client, error) {
	return New(b.config)
}
