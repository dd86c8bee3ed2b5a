package mocks

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/stretchr/testify/mock"
)

// ErrConnectionRefused is a ready-made transport failure for "no response" cases.
var ErrConnectionRefused = errors.New("dial tcp: connection refused")

// MockRoundTripper provides a testify-based mock implementation of http.RoundTripper.
// Request bodies are captured before the mock is consulted so assertions can
// inspect them after the call.
//
// Example usage:
//
//	rt := &mocks.MockRoundTripper{}
//	rt.On("RoundTrip", mock.Anything).Return(nil, mocks.ErrConnectionRefused).Twice()
//	rt.On("RoundTrip", mock.Anything).Return(mocks.JSONResponse(200, `{"ok":true}`), nil)
//
//	client, _ := httpclient.New(httpclient.Config{BaseURL: "http://api.test", Transport: rt})
type MockRoundTripper struct {
	mock.Mock

	mu     sync.Mutex
	bodies [][]byte
}

// RoundTrip implements http.RoundTripper
func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	m.mu.Lock()
	m.bodies = append(m.bodies, body)
	m.mu.Unlock()

	arguments := m.Called(req)

	var resp *http.Response
	if r := arguments.Get(0); r != nil {
		resp = r.(*http.Response)
		if resp.Request == nil {
			resp.Request = req
		}
	}
	return resp, arguments.Error(1)
}

// Bodies returns the request bodies seen so far, in call order.
func (m *MockRoundTripper) Bodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.bodies...)
}

// JSONResponse builds a response with a JSON content type. Each call returns a
// fresh body, so it must be evaluated once per expected attempt.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// MockCookieSource provides a testify-based mock of the client's cookie source.
//
// Example usage:
//
//	cookies := &mocks.MockCookieSource{}
//	cookies.On("Cookie", "csrftoken").Return("token-123", true)
type MockCookieSource struct {
	mock.Mock
}

// Cookie implements httpclient.CookieSource
func (m *MockCookieSource) Cookie(name string) (string, bool) {
	arguments := m.Called(name)
	return arguments.String(0), arguments.Bool(1)
}
