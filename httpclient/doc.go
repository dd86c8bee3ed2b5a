// Package httpclient is the single transport every feature module uses to talk to
// the backend API. It builds outbound JSON requests, retries transient failures,
// and classifies each call into exactly one outcome.
//
// Outcomes
//   - Success: a 2xx response. 204 yields the zero value of the requested type.
//   - Business failure: a 400/401/403/409/429 response carrying an application
//     error code. RequestResult returns it as data; Request turns it into *Error.
//   - Fatal: everything else, returned as *Error with a Kind from the closed set
//     network, unauthorized, forbidden, not_found, server, unknown.
//
// Retries
//   - Transport failures (no response) and 5xx responses are retried while
//     attempts remain. Business and other 4xx outcomes are never retried.
//   - Default policy: 3 attempts, 1s base delay, server errors retried.
//   - Options.NoRetry limits a call to a single attempt.
//
// Backoff Strategy
//   - delay = baseDelay * 2^attempt + jitter, jitter uniform in [0, 200ms).
//   - Delay is capped at 10 seconds.
//   - The first attempt is never delayed.
//
// Request headers
//   - Content-Type and Accept are application/json.
//   - The correlation id (X-Request-Id by default) is stable across retries.
//   - Unsafe methods carry the anti-forgery token read from the configured cookie.
//   - Caller headers are applied last and always win.
//
// Cancellation
//   - The context is checked before each attempt and during backoff waits. A
//     cancelled call returns a network *Error wrapping ctx.Err().
package httpclient
