// Package fakeapi is an in-process backend for exercising the API client. It
// serves every error body shape the client understands: the nested
// {"error": {...}} envelope, validation maps, flat detail/message fields and
// legacy flat codes. It also rate limits logins, checks the anti-forgery token
// and fails on demand.
package fakeapi

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/apiclient/logger"
)

const (
	// ServiceName names the server spans
	ServiceName = "fakeapi"

	CSRFCookie    = "csrftoken"
	CSRFHeader    = "X-CSRFToken"
	SessionCookie = "sessionid"

	ValidUsername = "voter"
	ValidPassword = "correct-horse"

	RateLimitCleanup = 3 * time.Minute
)

// Application error codes emitted by the fake backend
const (
	CodeLoginRateLimited   = "LOGIN_RATE_LIMITED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeCSRFFailed         = "CSRF_FAILED"
	CodeAlreadyVoted       = "ALREADY_VOTED"
	CodeUnrecognized       = "TEAPOT_OVERFLOW"
)

// Options configures a Server. The zero value is usable.
type Options struct {
	// TracerProvider enables server spans when set
	TracerProvider trace.TracerProvider
	// Propagator extracts inbound trace context (default: W3C traceparent)
	Propagator propagation.TextMapPropagator
	// LoginRate limits POST /auth/login per client IP; zero disables the limit
	LoginRate  rate.Limit
	LoginBurst int
	Logger     logger.Logger
}

// Recorded is one request as the server received it.
type Recorded struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Server is a running fake backend.
type Server struct {
	URL string

	echo *echo.Echo
	srv  *httptest.Server
	log  logger.Logger

	mu       sync.Mutex
	requests []Recorded
	flaky    map[string]int
	votes    map[string]struct{}
}

// New starts a Server on a loopback port. Call Close when done.
func New(opts Options) *Server {
	s := newServer(opts)
	s.srv = httptest.NewServer(s.echo)
	s.URL = s.srv.URL
	return s
}

func newServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Propagator == nil {
		opts.Propagator = propagation.TraceContext{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:  e,
		log:   opts.Logger,
		flaky: make(map[string]int),
		votes: make(map[string]struct{}),
	}

	e.Use(middleware.RequestID())
	if opts.TracerProvider != nil {
		e.Use(otelecho.Middleware(ServiceName,
			otelecho.WithTracerProvider(opts.TracerProvider),
			otelecho.WithPropagators(opts.Propagator),
		))
	}
	e.Use(s.record)
	e.Use(middleware.Recover())

	s.routes(opts)
	return s
}

// Handler exposes the server's routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Close shuts the listener down.
func (s *Server) Close() {
	if s.srv != nil {
		s.srv.Close()
	}
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// RequestsTo returns the recorded requests whose path equals path.
func (s *Server) RequestsTo(path string) []Recorded {
	var out []Recorded
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method: req.Method,
			Path:   req.URL.Path,
			Header: req.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		s.log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("request_id", req.Header.Get(echo.HeaderXRequestID)).
			Msg("fakeapi request")

		return next(c)
	}
}

// loginRateLimit keys the limiter on the client IP.
func loginRateLimit(limit rate.Limit, burst int) echo.MiddlewareFunc {
	if limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if burst <= 0 {
		burst = 1
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      limit,
				Burst:     burst,
				ExpiresIn: RateLimitCleanup,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return envelope(c, http.StatusTooManyRequests, CodeLoginRateLimited, "Rate limit exceeded")
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return envelope(c, http.StatusTooManyRequests, CodeLoginRateLimited, "Too many login attempts, try again later")
		},
	})
}
