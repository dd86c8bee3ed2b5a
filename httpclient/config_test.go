package httpclient

import (
	"context"
	nethttp "net/http"
	"net/http/cookiejar"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/apiclient/logger"
)

func TestBuilder(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	interceptor := func(context.Context, *nethttp.Request) error { return nil }

	b := NewBuilder(logger.Nop()).
		WithBaseURL("https://api.example.com").
		WithTimeout(5*time.Second).
		WithRetries(4, 250*time.Millisecond).
		WithServerErrorRetries(false).
		WithAntiForgery("XSRF-TOKEN", "X-XSRF-TOKEN").
		WithCorrelationHeader("X-Correlation-Id").
		WithBusinessCodes(true, "SEAT_TAKEN").
		WithDefaultHeader("X-Client", "cli").
		WithRequestInterceptor(interceptor).
		WithCookieJar(jar).
		WithPayloadLogging(128)

	cfg := b.Config()
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, RetryPolicy{MaxAttempts: 4, BaseDelay: 250 * time.Millisecond, RetryServerErrors: Bool(false)}, cfg.Retry)
	assert.Equal(t, "XSRF-TOKEN", cfg.AntiForgeryCookie)
	assert.Equal(t, "X-XSRF-TOKEN", cfg.AntiForgeryHeader)
	assert.Equal(t, "X-Correlation-Id", cfg.CorrelationHeader)
	assert.Equal(t, []string{"SEAT_TAKEN"}, cfg.BusinessCodes)
	assert.True(t, cfg.StrictBusinessCodes)
	assert.Equal(t, "cli", cfg.DefaultHeaders["X-Client"])
	assert.Len(t, cfg.RequestInterceptors, 1)
	assert.Same(t, jar, cfg.Jar)
	assert.True(t, cfg.LogPayloads)
	assert.Equal(t, 128, cfg.MaxPayloadLogBytes)

	c, err := b.Build()
	require.NoError(t, err)
	assert.False(t, *c.Config().Retry.RetryServerErrors)
}

func TestBuilderRejectsMissingBaseURL(t *testing.T) {
	_, err := NewBuilder(logger.Nop()).Build()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		BaseURL:           "https://api.example.com",
		Retry:             RetryPolicy{MaxAttempts: 1, RetryServerErrors: Bool(false)},
		CorrelationHeader: "X-Trace",
		BusinessCodes:     []string{},
	}.withDefaults()

	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
	assert.Equal(t, DefaultBaseDelay, cfg.Retry.BaseDelay)
	assert.False(t, *cfg.Retry.RetryServerErrors)
	assert.Equal(t, "X-Trace", cfg.CorrelationHeader)
	assert.Empty(t, cfg.BusinessCodes)
	assert.NotNil(t, cfg.Propagator)
}

func TestPartialRetryPolicyKeepsServerErrorRetries(t *testing.T) {
	cfg := Config{
		BaseURL: "https://api.example.com",
		Retry:   RetryPolicy{MaxAttempts: 5},
	}.withDefaults()

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, DefaultBaseDelay, cfg.Retry.BaseDelay)
	require.NotNil(t, cfg.Retry.RetryServerErrors)
	assert.True(t, *cfg.Retry.RetryServerErrors)
	assert.True(t, cfg.Retry.retriesServerErrors())
}

func TestDefaultConfigIsIndependent(t *testing.T) {
	a := DefaultConfig()
	a.BusinessCodes[0] = "CHANGED"
	a.DefaultHeaders["X"] = "y"

	b := DefaultConfig()
	assert.Equal(t, "LOGIN_RATE_LIMITED", b.BusinessCodes[0])
	assert.Empty(t, b.DefaultHeaders)
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{
		Message:       "Not found.",
		Kind:          KindNotFound,
		Status:        404,
		Code:          "MISSING",
		CorrelationID: "req-1",
	}
	assert.Equal(t, "not_found error: Not found. (status: 404, code: MISSING, request_id: req-1)", err.Error())

	netErr := &Error{Message: "network request failed", Kind: KindNetwork, Cause: context.DeadlineExceeded}
	assert.Equal(t, "network error: network request failed: context deadline exceeded", netErr.Error())
	assert.ErrorIs(t, netErr, context.DeadlineExceeded)
}

func TestKindForStatus(t *testing.T) {
	assert.Equal(t, KindUnauthorized, KindForStatus(401))
	assert.Equal(t, KindForbidden, KindForStatus(403))
	assert.Equal(t, KindNotFound, KindForStatus(404))
	assert.Equal(t, KindServer, KindForStatus(500))
	assert.Equal(t, KindServer, KindForStatus(599))
	assert.Equal(t, KindUnknown, KindForStatus(409))
	assert.Len(t, Kinds(), 6)
}
