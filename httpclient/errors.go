package httpclient

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a fatal error so callers can branch without inspecting
// transport details.
type Kind string

// Fatal error kinds
const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindServer       Kind = "server"
	KindUnknown      Kind = "unknown"
)

// Kinds lists every Kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindNetwork, KindUnauthorized, KindForbidden, KindNotFound, KindServer, KindUnknown}
}

// KindForStatus maps an HTTP status to the Kind used when it ends a call.
func KindForStatus(status int) Kind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status == 403:
		return KindForbidden
	case status == 404:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

var (
	// ErrInvalidRequest is returned before any attempt when the call cannot be built
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidConfig is returned by New for unusable configuration
	ErrInvalidConfig = errors.New("invalid client configuration")
)

// Error is the fatal outcome of a call.
type Error struct {
	Message       string
	Kind          Kind
	Status        int // 0 when no response was obtained
	Code          string
	CorrelationID string
	Details       any
	Attempts      int
	Cause         error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error: %s", e.Kind, e.Message)

	var meta []string
	if e.Status != 0 {
		meta = append(meta, fmt.Sprintf("status: %d", e.Status))
	}
	if e.Code != "" {
		meta = append(meta, "code: "+e.Code)
	}
	if e.CorrelationID != "" {
		meta = append(meta, "request_id: "+e.CorrelationID)
	}
	if len(meta) > 0 {
		b.WriteString(" (" + strings.Join(meta, ", ") + ")")
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind checks if an error is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == kind
}

// IsStatus checks if an error is an *Error carrying the given HTTP status
func IsStatus(err error, status int) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Status == status
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
