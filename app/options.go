package app

import (
	"io"
	nethttp "net/http"

	"github.com/gaborage/apiclient/httpclient"
	"github.com/gaborage/apiclient/presenter"
)

// Options customizes application bootstrap. The zero value loads configuration
// from the environment only and logs to stdout.
type Options struct {
	// ConfigFile is an optional YAML config file
	ConfigFile string
	// ConfigYAML is an inline YAML document layered over ConfigFile
	ConfigYAML []byte
	// Environ replaces os.Environ when loading configuration
	Environ func() []string

	// LogWriter receives JSON log lines instead of stdout
	LogWriter io.Writer
	// TelemetryWriter receives stdout exporter output when observability exports to stdout
	TelemetryWriter io.Writer

	// Transport overrides the client's HTTP transport
	Transport nethttp.RoundTripper
	// OnUnauthorized is installed on the client
	OnUnauthorized httpclient.UnauthorizedHandler
	// RequestInterceptors run on every attempt
	RequestInterceptors []httpclient.RequestInterceptor
	// Catalog overrides presenter copy per error kind
	Catalog presenter.Catalog
}
