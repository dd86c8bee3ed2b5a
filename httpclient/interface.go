package httpclient

import (
	"context"
	nethttp "net/http"
	"strings"
	"time"
)

// Method is an HTTP verb accepted by the client.
type Method string

// Supported request methods
const (
	MethodGet     Method = nethttp.MethodGet
	MethodHead    Method = nethttp.MethodHead
	MethodOptions Method = nethttp.MethodOptions
	MethodPost    Method = nethttp.MethodPost
	MethodPut     Method = nethttp.MethodPut
	MethodPatch   Method = nethttp.MethodPatch
	MethodDelete  Method = nethttp.MethodDelete
)

func (m Method) normalize() Method {
	if m == "" {
		return MethodGet
	}
	return Method(strings.ToUpper(string(m)))
}

func (m Method) valid() bool {
	switch m {
	case MethodGet, MethodHead, MethodOptions, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

// IsSafe reports whether m never changes server state and therefore never
// carries the anti-forgery token.
func (m Method) IsSafe() bool {
	switch m.normalize() {
	case MethodGet, MethodHead, MethodOptions:
		return true
	}
	return false
}

// Options describes one logical call. A fresh value is expected per call; the
// client never mutates it.
type Options struct {
	// Method defaults to GET
	Method Method
	// Body is serialized as JSON when non-nil
	Body any
	// Headers are applied after the client's own headers and override them
	Headers map[string]string
	// TreatAsBusiness lists extra application codes to surface as business failures
	TreatAsBusiness []string
	// SkipAuthClear suppresses Config.OnUnauthorized for this call
	SkipAuthClear bool
	// Retry overrides the client's retry policy field by field
	Retry *RetryOptions
	// NoRetry limits the call to a single attempt
	NoRetry bool
}

// RetryOptions are per-call retry overrides. Zero fields inherit the client policy.
type RetryOptions struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	RetryServerErrors *bool
}

// Bool returns a pointer to v, for the RetryServerErrors fields.
func Bool(v bool) *bool { return &v }

// BusinessError is a recognized, non-exceptional failure reported by the API,
// such as invalid credentials or rate limiting.
type BusinessError struct {
	Code    string
	Message string
	Details any
}

// Response is the raw outcome of a successful or business-failed call.
type Response struct {
	Status        int
	Body          []byte
	Headers       nethttp.Header
	Duration      time.Duration
	CorrelationID string
	Attempts      int
	// Business is set when the call ended in a business failure
	Business *BusinessError
}

// OK reports whether the call succeeded.
func (r *Response) OK() bool { return r.Business == nil }

// Result is the typed outcome returned by RequestResult. Exactly one of Data
// (when OK) or Error (when !OK) is meaningful.
type Result[T any] struct {
	OK            bool
	Status        int
	Data          T
	Error         *BusinessError
	Headers       nethttp.Header
	Duration      time.Duration
	CorrelationID string
	Attempts      int
}

// DurationMs returns the elapsed call time in milliseconds.
func (r *Result[T]) DurationMs() int64 { return r.Duration.Milliseconds() }

// RequestInterceptor is called on every attempt after the standard headers are set
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// UnauthorizedHandler is notified of 401 outcomes, typically to clear local
// session state.
type UnauthorizedHandler func(ctx context.Context, err *Error)
