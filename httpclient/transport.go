package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	nethttp "net/http"

	"go.opentelemetry.io/otel/propagation"
)

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	mimeJSON          = "application/json"
)

// buildRequest constructs one attempt's *http.Request, applies headers and runs
// request interceptors. The body is rebuilt from bytes on each attempt.
func (c *Client) buildRequest(ctx context.Context, cl *call) (*nethttp.Request, error) {
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, string(cl.method), cl.url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	c.applyHeaders(ctx, httpReq, cl)

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, fmt.Errorf("request interceptor failed: %w", err)
		}
	}
	return httpReq, nil
}

// applyHeaders sets client defaults, the JSON content headers, the correlation id,
// the anti-forgery token and the trace context, then the caller's headers, which win.
func (c *Client) applyHeaders(ctx context.Context, httpReq *nethttp.Request, cl *call) {
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}

	httpReq.Header.Set(headerContentType, mimeJSON)
	httpReq.Header.Set(headerAccept, mimeJSON)
	httpReq.Header.Set(c.config.CorrelationHeader, cl.correlationID)

	if token, ok := c.TokenFor(cl.method); ok {
		httpReq.Header.Set(c.config.AntiForgeryHeader, token)
	}
	c.config.Propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	for key, value := range cl.headers {
		httpReq.Header.Set(key, value)
	}
}

// invoke performs one network call. A nil response with a non-nil error means no
// response was obtained; any status code is a transport-level success. A body
// that cannot be read in full is kept as far as it arrived, unless the caller's
// context ended.
func (c *Client) invoke(httpReq *nethttp.Request) (*rawResponse, error) {
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil && httpReq.Context().Err() != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &rawResponse{
		status:  httpResp.StatusCode,
		body:    respBody,
		headers: httpResp.Header,
	}, nil
}
