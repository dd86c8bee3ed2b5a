package mocks_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/apiclient/httpclient"
	"github.com/gaborage/apiclient/testing/mocks"
)

const testBaseURL = "http://api.test"

func newClient(t *testing.T, rt http.RoundTripper, cookies httpclient.CookieSource) *httpclient.Client {
	t.Helper()
	c, err := httpclient.New(httpclient.Config{
		BaseURL:      testBaseURL,
		Transport:    rt,
		CookieSource: cookies,
		Retry:        httpclient.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, RetryServerErrors: httpclient.Bool(true)},
	})
	require.NoError(t, err)
	return c
}

func TestRoundTripperNetworkThenSuccess(t *testing.T) {
	rt := &mocks.MockRoundTripper{}
	rt.On("RoundTrip", mock.Anything).Return(nil, mocks.ErrConnectionRefused).Twice()
	rt.On("RoundTrip", mock.Anything).Return(mocks.JSONResponse(http.StatusOK, `{"id":"p1"}`), nil).Once()

	c := newClient(t, rt, nil)
	resp, err := c.Get(context.Background(), "/polls/p1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 3, resp.Attempts)
	rt.AssertNumberOfCalls(t, "RoundTrip", 3)
}

func TestRoundTripperExhaustsRetries(t *testing.T) {
	rt := &mocks.MockRoundTripper{}
	rt.On("RoundTrip", mock.Anything).Return(nil, mocks.ErrConnectionRefused)

	c := newClient(t, rt, nil)
	_, err := c.Get(context.Background(), "/polls")

	assert.True(t, httpclient.IsKind(err, httpclient.KindNetwork))
	assert.ErrorIs(t, err, mocks.ErrConnectionRefused)
	rt.AssertNumberOfCalls(t, "RoundTrip", 3)
}

func TestRoundTripperReplaysBodyOnRetry(t *testing.T) {
	rt := &mocks.MockRoundTripper{}
	rt.On("RoundTrip", mock.Anything).Return(mocks.JSONResponse(http.StatusBadGateway, `{}`), nil).Once()
	rt.On("RoundTrip", mock.Anything).Return(mocks.JSONResponse(http.StatusCreated, `{"poll_id":"p1"}`), nil).Once()

	c := newClient(t, rt, nil)
	_, err := c.Post(context.Background(), "/voting/votes", map[string]string{"poll_id": "p1"})
	require.NoError(t, err)

	bodies := rt.Bodies()
	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"poll_id":"p1"}`, string(bodies[0]))
	assert.Equal(t, bodies[0], bodies[1])
}

func TestCookieSourceOnlyConsultedForUnsafeMethods(t *testing.T) {
	cookies := &mocks.MockCookieSource{}
	cookies.On("Cookie", httpclient.DefaultAntiForgeryCookie).Return("token-123", true)

	rt := &mocks.MockRoundTripper{}
	rt.On("RoundTrip", mock.MatchedBy(func(r *http.Request) bool { return r.Method == http.MethodGet })).
		Return(mocks.JSONResponse(http.StatusOK, `[]`), nil).Once()
	rt.On("RoundTrip", mock.MatchedBy(func(r *http.Request) bool {
		return r.Method == http.MethodPost && r.Header.Get(httpclient.DefaultAntiForgeryHeader) == "token-123"
	})).Return(mocks.JSONResponse(http.StatusCreated, `{}`), nil).Once()

	c := newClient(t, rt, cookies)

	_, err := c.Get(context.Background(), "/polls")
	require.NoError(t, err)
	cookies.AssertNotCalled(t, "Cookie", mock.Anything)

	_, err = c.Post(context.Background(), "/voting/votes", map[string]string{"poll_id": "p1"})
	require.NoError(t, err)
	cookies.AssertNumberOfCalls(t, "Cookie", 1)
	rt.AssertExpectations(t)
}

func TestCookieSourceMissingToken(t *testing.T) {
	cookies := &mocks.MockCookieSource{}
	cookies.On("Cookie", mock.Anything).Return("", false)

	rt := &mocks.MockRoundTripper{}
	rt.On("RoundTrip", mock.MatchedBy(func(r *http.Request) bool {
		return r.Header.Get(httpclient.DefaultAntiForgeryHeader) == ""
	})).Return(mocks.JSONResponse(http.StatusNoContent, ``), nil).Once()

	c := newClient(t, rt, cookies)
	_, err := c.Delete(context.Background(), "/voting/votes/v1")
	require.NoError(t, err)
	rt.AssertExpectations(t)
}
