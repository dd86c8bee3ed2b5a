package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaborage/apiclient/app"
	"github.com/gaborage/apiclient/config"
	"github.com/gaborage/apiclient/httpclient"
)

// ErrBusinessFailure is returned when the call ended in a business failure.
var ErrBusinessFailure = errors.New("business failure")

// RequestOptions holds options for the request command
type RequestOptions struct {
	ConfigFile      string
	BaseURL         string
	Method          string
	Data            string
	Headers         []string
	TreatAsBusiness []string
	NoRetry         bool
	MaxAttempts     int
	SkipAuthClear   bool
	Timeout         time.Duration
	Verbose         bool
}

// NewRequestCommand creates the request command
func NewRequestCommand(environ func() []string) *cobra.Command {
	opts := &RequestOptions{}

	cmd := &cobra.Command{
		Use:   "request <path>",
		Short: "Send one request and print its outcome",
		Long: `Sends one logical call through the API client and prints the outcome:
success, business failure, or a fatal error with its kind and reference.

Exit status is non-zero for business failures and fatal errors.`,
		Example: `  # List polls
  apiclient request /polls --base-url https://api.example.com

  # Cast a vote without retries
  apiclient request /voting/votes -X POST -d '{"poll_id":"p1","option_id":"o1"}' --no-retry`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), environ, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "API base URL (overrides config)")
	cmd.Flags().StringVarP(&opts.Method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	cmd.Flags().StringSliceVar(&opts.TreatAsBusiness, "treat-as-business", nil, "Extra application codes to treat as business failures")
	cmd.Flags().BoolVar(&opts.NoRetry, "no-retry", false, "Make a single attempt")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", 0, "Override the number of attempts")
	cmd.Flags().BoolVar(&opts.SkipAuthClear, "skip-auth-clear", false, "Do not run the unauthorized hook")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Overall deadline for the call")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log every attempt to stderr")

	return cmd
}

func runRequest(ctx context.Context, stdout, stderr io.Writer, environ func() []string, path string, opts *RequestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	callOpts, err := opts.callOptions()
	if err != nil {
		return err
	}

	a, err := app.New(app.Options{
		ConfigFile: opts.ConfigFile,
		Environ:    withOverrides(environ, opts.envOverrides()),
		LogWriter:  stderr,
		OnUnauthorized: func(_ context.Context, apiErr *httpclient.Error) {
			fmt.Fprintf(stderr, "session rejected (request_id=%s)\n", apiErr.CorrelationID)
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Shutdown(context.Background()) }()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	resp, err := a.Client().Do(ctx, path, callOpts)
	if err != nil {
		if errors.Is(err, httpclient.ErrInvalidRequest) {
			return err
		}
		pres := a.Report(err)
		fmt.Fprintf(stdout, "%s [%s]\n%s\n", pres.Title, pres.Kind, pres.Description)
		return err
	}

	if !resp.OK() {
		fmt.Fprintf(stdout, "HTTP %d business failure %s: %s (attempts=%d, request_id=%s)\n",
			resp.Status, resp.Business.Code, resp.Business.Message, resp.Attempts, resp.CorrelationID)
		return fmt.Errorf("%w: %s", ErrBusinessFailure, resp.Business.Code)
	}

	fmt.Fprintf(stdout, "HTTP %d (attempts=%d, request_id=%s, duration=%s)\n",
		resp.Status, resp.Attempts, resp.CorrelationID, resp.Duration.Round(time.Millisecond))
	writeBody(stdout, resp.Body)
	return nil
}

func (o *RequestOptions) callOptions() (*httpclient.Options, error) {
	callOpts := &httpclient.Options{
		Method:          httpclient.Method(o.Method),
		TreatAsBusiness: o.TreatAsBusiness,
		NoRetry:         o.NoRetry,
		SkipAuthClear:   o.SkipAuthClear,
	}

	if o.Data != "" {
		if !json.Valid([]byte(o.Data)) {
			return nil, fmt.Errorf("%w: --data is not valid JSON", httpclient.ErrInvalidRequest)
		}
		callOpts.Body = json.RawMessage(o.Data)
	}

	if len(o.Headers) > 0 {
		callOpts.Headers = make(map[string]string, len(o.Headers))
		for _, h := range o.Headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("%w: header %q must be 'Name: value'", httpclient.ErrInvalidRequest, h)
			}
			callOpts.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}

	if o.MaxAttempts > 0 {
		callOpts.Retry = &httpclient.RetryOptions{MaxAttempts: o.MaxAttempts}
	}
	return callOpts, nil
}

func (o *RequestOptions) envOverrides() []string {
	var overrides []string
	if o.BaseURL != "" {
		overrides = append(overrides, config.EnvVar("client.base_url")+"="+o.BaseURL)
	}
	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	overrides = append(overrides, config.EnvVar("log.level")+"="+level)
	return overrides
}

// withOverrides appends overrides after the base environment so they win.
func withOverrides(environ func() []string, overrides []string) func() []string {
	return func() []string {
		return append(append([]string(nil), environ()...), overrides...)
	}
}

func writeBody(w io.Writer, body []byte) {
	if len(bytes.TrimSpace(body)) == 0 {
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Fprintln(w, strconv.Quote(string(body)))
		return
	}
	fmt.Fprintln(w, pretty.String())
}
