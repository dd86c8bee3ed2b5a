package httpclient

import (
	"context"
	"encoding/json"
	"maps"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/apiclient/logger"
	"github.com/gaborage/apiclient/testing/mocks"
)

const (
	testRequestMsg  = "API client request"
	testResponseMsg = "API client response"
	testRetryMsg    = "API client retry"
	testFailureMsg  = "API client request failed"
)

// fakeLogEvent implements logger.LogEvent for testing
type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()
	e.logger.events = append(e.logger.events, loggedEvent{
		level:   e.level,
		fields:  maps.Clone(e.fields),
		message: msg,
	})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) {
	e.Msg(format)
}

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.fields["error"] = err
	return e
}

func (e *fakeLogEvent) Str(key, value string) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int64(key string, value int64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Bool(key string, value bool) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	e.fields[key] = d
	return e
}

func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent {
	e.fields[key] = i
	return e
}

func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent {
	e.fields[key] = val
	return e
}

// fakeLogger implements logger.Logger for testing
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

type loggedEvent struct {
	level   string
	fields  map[string]any
	message string
}

func (l *fakeLogger) newEvent(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent  { return l.newEvent("info") }
func (l *fakeLogger) Error() logger.LogEvent { return l.newEvent("error") }
func (l *fakeLogger) Debug() logger.LogEvent { return l.newEvent("debug") }
func (l *fakeLogger) Warn() logger.LogEvent  { return l.newEvent("warn") }

func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger {
	return l
}

func (l *fakeLogger) eventsByMessage(msg string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []loggedEvent
	for _, ev := range l.events {
		if ev.message == msg {
			out = append(out, ev)
		}
	}
	return out
}

// sleepRecorder replaces Client.sleep so retries run instantly.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// refusingTransport fails every attempt before a response is obtained
func refusingTransport() *mocks.MockRoundTripper {
	rt := &mocks.MockRoundTripper{}
	rt.On("RoundTrip", mock.Anything).Return(nil, mocks.ErrConnectionRefused)
	return rt
}

// cookieSource serves name=value to the client and nothing else
func cookieSource(name, value string) *mocks.MockCookieSource {
	cookies := &mocks.MockCookieSource{}
	cookies.On("Cookie", name).Return(value, value != "")
	return cookies
}

type testClient struct {
	*Client
	log    *fakeLogger
	sleeps *sleepRecorder
}

func newTestClient(t *testing.T, baseURL string, mutate func(*Config)) *testClient {
	t.Helper()

	log := &fakeLogger{}
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Logger = log
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg)
	require.NoError(t, err)

	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	return &testClient{Client: c, log: log, sleeps: rec}
}

// jsonHandler writes body as JSON with the given status
func jsonHandler(status int, body any) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, status, body)
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func newServer(t *testing.T, h nethttp.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}
