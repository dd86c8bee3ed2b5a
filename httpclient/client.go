package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	gotrace "github.com/gaborage/apiclient/trace"
)

// Client issues API calls. It holds no per-call state and is safe for concurrent use.
type Client struct {
	config        Config
	baseURL       string
	httpClient    *nethttp.Client
	cookies       CookieSource
	businessCodes map[string]struct{}
	telemetry     *telemetry

	// sleep waits out a backoff delay; replaced in tests to record delays
	sleep func(ctx context.Context, d time.Duration) error
}

// New validates cfg, applies defaults and creates a client.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	cfg.Retry.RetryServerErrors = Bool(*cfg.Retry.RetryServerErrors)

	origin, err := url.Parse(cfg.BaseURL)
	if err != nil || (origin.Scheme != "http" && origin.Scheme != "https") || origin.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrInvalidConfig, cfg.BaseURL)
	}

	if cfg.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: cookie jar: %w", ErrInvalidConfig, err)
		}
		cfg.Jar = jar
	}

	cookies := cfg.CookieSource
	if cookies == nil {
		cookies = jarCookieSource{jar: cfg.Jar, origin: origin}
	}

	codes := make(map[string]struct{}, len(cfg.BusinessCodes))
	for _, code := range cfg.BusinessCodes {
		codes[code] = struct{}{}
	}

	return &Client{
		config:  cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &nethttp.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			Jar:       cfg.Jar,
		},
		cookies:       cookies,
		businessCodes: codes,
		telemetry:     newTelemetry(cfg.TracerProvider, cfg.MeterProvider, cfg.Logger),
		sleep:         sleepContext,
	}, nil
}

// Config returns the effective configuration, defaults included.
func (c *Client) Config() Config {
	return c.config
}

// call is one logical request: immutable once prepared and private to its loop.
type call struct {
	method          Method
	path            string
	url             string
	body            []byte
	headers         map[string]string
	correlationID   string
	policy          RetryPolicy
	treatAsBusiness []string
	skipAuthClear   bool
}

func (c *Client) prepare(ctx context.Context, path string, opts *Options) (*call, error) {
	if opts == nil {
		opts = &Options{}
	}

	method := opts.Method.normalize()
	if !method.valid() {
		return nil, fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, opts.Method)
	}

	normalized := "/" + strings.TrimLeft(path, "/")

	var body []byte
	if opts.Body != nil {
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %w", ErrInvalidRequest, err)
		}
		body = encoded
	}

	return &call{
		method:          method,
		path:            normalized,
		url:             c.baseURL + normalized,
		body:            body,
		headers:         opts.Headers,
		correlationID:   gotrace.EnsureTraceID(ctx),
		policy:          c.effectivePolicy(opts),
		treatAsBusiness: opts.TreatAsBusiness,
		skipAuthClear:   opts.SkipAuthClear,
	}, nil
}

func (c *Client) effectivePolicy(opts *Options) RetryPolicy {
	p := c.config.Retry
	if r := opts.Retry; r != nil {
		if r.MaxAttempts > 0 {
			p.MaxAttempts = r.MaxAttempts
		}
		if r.BaseDelay > 0 {
			p.BaseDelay = r.BaseDelay
		}
		if r.RetryServerErrors != nil {
			p.RetryServerErrors = r.RetryServerErrors
		}
	}
	if opts.NoRetry || p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// Do runs the attempt loop for one call. It returns a Response for success and
// business failures, and an *Error for everything else; ErrInvalidRequest is
// returned unwrapped when the call cannot be prepared.
func (c *Client) Do(ctx context.Context, path string, opts *Options) (*Response, error) {
	return c.do(ctx, path, opts, nil)
}

// do is Do with an optional decoder for successful bodies. A decode failure
// becomes the call's outcome before it is logged and recorded.
func (c *Client) do(ctx context.Context, path string, opts *Options, decodeBody func(*Response) *Error) (*Response, error) {
	cl, err := c.prepare(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := c.telemetry.start(ctx, cl)
	resp, err := c.run(ctx, cl)
	if err == nil && decodeBody != nil && resp.OK() {
		if decodeErr := decodeBody(resp); decodeErr != nil {
			resp, err = nil, c.fail(cl, decodeErr)
		}
	}
	c.telemetry.finish(ctx, span, cl, time.Since(start), resp, err)
	c.notifyUnauthorized(ctx, cl, resp, err)
	return resp, err
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, path, &Options{Method: MethodGet})
}

// Post performs a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, path, &Options{Method: MethodPost, Body: body})
}

// Put performs a PUT request with a JSON body
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, path, &Options{Method: MethodPut, Body: body})
}

// Patch performs a PATCH request with a JSON body
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, path, &Options{Method: MethodPatch, Body: body})
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, path, &Options{Method: MethodDelete})
}

// run drives attempts until a terminal outcome. Attempts are strictly sequential.
func (c *Client) run(ctx context.Context, cl *call) (*Response, error) {
	start := time.Now()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, c.canceled(cl, attempt, err)
		}

		c.logRequest(cl, attempt)

		httpReq, err := c.buildRequest(ctx, cl)
		if err != nil {
			return nil, c.fail(cl, &Error{
				Message:       "failed to build request",
				Kind:          KindUnknown,
				CorrelationID: cl.correlationID,
				Attempts:      attempt + 1,
				Cause:         err,
			})
		}

		raw, transportErr := c.invoke(httpReq)
		if transportErr != nil && ctx.Err() != nil {
			return nil, c.canceled(cl, attempt+1, ctx.Err())
		}

		attemptsRemain := attempt+1 < cl.policy.MaxAttempts
		cls := c.classify(classifyInput{
			resp:              raw,
			attemptsRemain:    attemptsRemain,
			retryServerErrors: cl.policy.retriesServerErrors(),
			treatAsBusiness:   cl.treatAsBusiness,
			localID:           cl.correlationID,
		})

		switch cls.verdict {
		case verdictSuccess:
			resp := c.envelope(cl, raw, cls, start, attempt+1)
			c.logResponse(cl, resp)
			return resp, nil

		case verdictBusiness:
			resp := c.envelope(cl, raw, cls, start, attempt+1)
			resp.Business = &BusinessError{
				Code:    cls.info.code,
				Message: cls.info.message,
				Details: cls.info.details,
			}
			c.logResponse(cl, resp)
			return resp, nil

		case verdictRetryNetwork, verdictRetryServer:
			if !attemptsRemain {
				return nil, c.fail(cl, c.exhausted(raw, transportErr, cls, attempt+1))
			}
			delay := BackoffDelay(attempt, cl.policy.BaseDelay)
			c.logRetry(cl, attempt, delay, cls.verdict, raw, transportErr)
			c.telemetry.retry(ctx, cl, attempt, delay)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, c.canceled(cl, attempt+1, err)
			}

		default:
			return nil, c.fail(cl, &Error{
				Message:       cls.info.message,
				Kind:          cls.kind,
				Status:        raw.status,
				Code:          cls.info.code,
				CorrelationID: cls.info.correlationID,
				Details:       cls.info.details,
				Attempts:      attempt + 1,
			})
		}
	}
}

func (c *Client) envelope(cl *call, raw *rawResponse, cls classification, start time.Time, attempts int) *Response {
	return &Response{
		Status:        raw.status,
		Body:          raw.body,
		Headers:       raw.headers,
		Duration:      time.Since(start),
		CorrelationID: cls.info.correlationID,
		Attempts:      attempts,
	}
}

// exhausted builds the error for a retryable outcome with no attempts left.
func (c *Client) exhausted(raw *rawResponse, transportErr error, cls classification, attempts int) *Error {
	if raw == nil {
		return &Error{
			Message:       "network request failed",
			Kind:          KindNetwork,
			CorrelationID: cls.info.correlationID,
			Attempts:      attempts,
			Cause:         transportErr,
		}
	}
	info := withFallbackMessage(cls.info, raw.status)
	return &Error{
		Message:       info.message,
		Kind:          KindServer,
		Status:        raw.status,
		Code:          info.code,
		CorrelationID: info.correlationID,
		Details:       info.details,
		Attempts:      attempts,
	}
}

func (c *Client) canceled(cl *call, attempts int, cause error) *Error {
	return c.fail(cl, &Error{
		Message:       "request canceled",
		Kind:          KindNetwork,
		CorrelationID: cl.correlationID,
		Attempts:      attempts,
		Cause:         cause,
	})
}

func (c *Client) fail(cl *call, err *Error) *Error {
	c.logFailure(cl, err)
	return err
}

func (c *Client) notifyUnauthorized(ctx context.Context, cl *call, resp *Response, err error) {
	if c.config.OnUnauthorized == nil || cl.skipAuthClear {
		return
	}
	if resp != nil && resp.Status == nethttp.StatusUnauthorized {
		c.config.OnUnauthorized(ctx, businessToError(resp.Status, resp.CorrelationID, resp.Business))
		return
	}
	if apiErr, ok := AsError(err); ok && apiErr.Status == nethttp.StatusUnauthorized {
		c.config.OnUnauthorized(ctx, apiErr)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
