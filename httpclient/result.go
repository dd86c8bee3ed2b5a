package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
)

// RequestResult performs a call and decodes the body into T. Business failures
// come back as a Result with OK=false; every other failure is a fatal *Error.
func RequestResult[T any](ctx context.Context, c *Client, path string, opts *Options) (*Result[T], error) {
	var data T
	resp, err := c.do(ctx, path, opts, func(resp *Response) *Error {
		var decodeErr *Error
		data, decodeErr = decode[T](resp)
		return decodeErr
	})
	if err != nil {
		return nil, err
	}

	result := &Result[T]{
		OK:            resp.OK(),
		Status:        resp.Status,
		Headers:       resp.Headers,
		Duration:      resp.Duration,
		CorrelationID: resp.CorrelationID,
		Attempts:      resp.Attempts,
	}
	if !resp.OK() {
		result.Error = resp.Business
		return result, nil
	}

	result.Data = data
	return result, nil
}

// Request performs a call and returns the decoded payload. Business failures are
// converted to an *Error whose Kind follows the response status.
func Request[T any](ctx context.Context, c *Client, path string, opts *Options) (T, error) {
	var zero T
	result, err := RequestResult[T](ctx, c, path, opts)
	if err != nil {
		return zero, err
	}
	if !result.OK {
		return zero, businessToError(result.Status, result.CorrelationID, result.Error)
	}
	return result.Data, nil
}

// decode yields the zero value for 204 and empty bodies.
func decode[T any](resp *Response) (T, *Error) {
	var out T
	if resp.Status == nethttp.StatusNoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		var zero T
		return zero, &Error{
			Message:       "failed to decode response body",
			Kind:          KindUnknown,
			Status:        resp.Status,
			CorrelationID: resp.CorrelationID,
			Attempts:      resp.Attempts,
			Cause:         err,
		}
	}
	return out, nil
}

func businessToError(status int, correlationID string, be *BusinessError) *Error {
	err := &Error{
		Kind:          KindForStatus(status),
		Status:        status,
		CorrelationID: correlationID,
	}
	if be != nil {
		err.Message = be.Message
		err.Code = be.Code
		err.Details = be.Details
	}
	return err
}
