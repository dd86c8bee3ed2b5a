package httpclient

import (
	"time"
)

// logRequest logs one outbound attempt
func (c *Client) logRequest(cl *call, attempt int) {
	logEvent := c.config.Logger.Info().
		Str("direction", "outbound").
		Str("method", string(cl.method)).
		Str("url", cl.url).
		Str("request_id", cl.correlationID).
		Int("attempt", attempt+1).
		Int("body_size", len(cl.body))

	if len(cl.headers) > 0 {
		logEvent.Interface("headers", cl.headers)
	}

	logEvent.Msg("API client request")
	c.logPayload("request", cl, cl.body)
}

// logRetry logs the decision to wait and try again
func (c *Client) logRetry(cl *call, attempt int, delay time.Duration, v verdict, raw *rawResponse, cause error) {
	logEvent := c.config.Logger.Warn().
		Str("method", string(cl.method)).
		Str("url", cl.url).
		Str("request_id", cl.correlationID).
		Int("attempt", attempt+1).
		Int("max_attempts", cl.policy.MaxAttempts).
		Dur("backoff", delay).
		Str("reason", v.String())

	if raw != nil {
		logEvent.Int("status", raw.status)
	}
	if cause != nil {
		logEvent.Err(cause)
	}

	logEvent.Msg("API client retry")
}

// logResponse logs the terminal response of a successful or business-failed call
func (c *Client) logResponse(cl *call, resp *Response) {
	logEvent := c.config.Logger.Info()
	if !resp.OK() {
		logEvent = c.config.Logger.Warn()
	}

	logEvent.
		Str("direction", "inbound").
		Str("method", string(cl.method)).
		Str("url", cl.url).
		Str("request_id", resp.CorrelationID).
		Int("status", resp.Status).
		Int("attempts", resp.Attempts).
		Dur("elapsed", resp.Duration)

	if resp.Business != nil {
		logEvent.Str("code", resp.Business.Code).Str("business_message", resp.Business.Message)
	}

	logEvent.Msg("API client response")
	c.logPayload("response", cl, resp.Body)
}

// logFailure logs a fatal outcome
func (c *Client) logFailure(cl *call, err *Error) {
	logEvent := c.config.Logger.Error().
		Str("method", string(cl.method)).
		Str("url", cl.url).
		Str("request_id", err.CorrelationID).
		Str("kind", string(err.Kind)).
		Int("attempts", err.Attempts)

	if err.Status != 0 {
		logEvent.Int("status", err.Status)
	}
	if err.Code != "" {
		logEvent.Str("code", err.Code)
	}
	if err.Cause != nil {
		logEvent.Err(err.Cause)
	}

	logEvent.Msg("API client request failed")
}

func (c *Client) logPayload(direction string, cl *call, body []byte) {
	if !c.config.LogPayloads || len(body) == 0 {
		return
	}

	truncated := false
	if len(body) > c.config.MaxPayloadLogBytes {
		body = body[:c.config.MaxPayloadLogBytes]
		truncated = true
	}

	c.config.Logger.Debug().
		Str("direction", direction).
		Str("request_id", cl.correlationID).
		Bytes("body", body).
		Bool("truncated", truncated).
		Msg("API client payload")
}
