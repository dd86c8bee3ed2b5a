// Package trace generates and carries correlation identifiers for outbound API calls.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// correlationIDKey is the context key for caller-supplied correlation ids
	correlationIDKey contextKey = "correlation_id"
	// HeaderXRequestID is the header carrying the correlation id on every request
	HeaderXRequestID = "X-Request-Id"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
)

// newRandomUUID is swapped in tests to simulate an unavailable secure random source.
var newRandomUUID = uuid.NewRandom

// NewCorrelationID returns an identifier for one logical call. It never fails: when
// the secure random source is unavailable it falls back to a timestamp plus a
// pseudo-random suffix.
func NewCorrelationID() string {
	id, err := newRandomUUID()
	if err == nil {
		return id.String()
	}
	return fallbackID(time.Now())
}

func fallbackID(now time.Time) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 10)
	for i := range suffix {
		suffix[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + string(suffix)
}

// WithTraceID stores a caller-chosen correlation id in the context. The client reuses
// it instead of generating a new one.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// IDFromContext returns the correlation id from context if present
func IDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureTraceID returns an existing correlation id from context or generates a new one
func EnsureTraceID(ctx context.Context) string {
	if id, ok := IDFromContext(ctx); ok {
		return id
	}
	return NewCorrelationID()
}

// GenerateTraceParent creates a minimal W3C traceparent header value.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2), e.g., "00-<32>-<16>-01"
func GenerateTraceParent() string {
	traceID := make([]byte, 16)
	spanID := make([]byte, 8)
	if _, err := crand.Read(traceID); err != nil {
		traceID = make([]byte, 16)
	}
	if _, err := crand.Read(spanID); err != nil {
		spanID = make([]byte, 8)
	}
	if allZero(traceID) {
		traceID[len(traceID)-1] = 0x01
	}
	if allZero(spanID) {
		spanID[len(spanID)-1] = 0x01
	}
	return "00-" + strings.ToLower(hex.EncodeToString(traceID)) + "-" + strings.ToLower(hex.EncodeToString(spanID)) + "-01"
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
