// Package config loads the API client configuration from defaults, an optional
// YAML document and APICLIENT_ environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load. Nested keys are
// separated by a double underscore: APICLIENT_CLIENT__RETRY__MAX_ATTEMPTS.
const EnvPrefix = "APICLIENT_"

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Options selects the sources Load reads besides defaults and the environment.
type Options struct {
	// File is a YAML file path; empty skips it
	File string
	// YAML is an inline YAML document loaded after File
	YAML []byte
	// Environ replaces os.Environ, mainly for tests
	Environ func() []string
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. Inline YAML, then the YAML file beneath it
// 3. Default values (lowest priority)
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, NewNotFoundFileError(opts.File)
			}
			return nil, fmt.Errorf("failed to load %s: %w", opts.File, err)
		}
	}

	if len(opts.YAML) > 0 {
		if err := k.Load(rawbytes.Provider(opts.YAML), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse inline yaml: %w", err)
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// envKey converts APICLIENT_CLIENT__BASE_URL to client.base_url.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", "."), value
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "apiclient",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"client.timeout":               "30s",
		"client.retry.max_attempts":    3,
		"client.retry.base_delay":      "1s",
		"client.retry.server_errors":   true,
		"client.anti_forgery.cookie":   "csrftoken",
		"client.anti_forgery.header":   "X-CSRFToken",
		"client.correlation_header":    "X-Request-Id",
		"client.strict_business_codes": false,
		"client.log_payloads":          false,
		"client.max_payload_log_bytes": 4096,

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// Unmarshal decodes the section at path into out, for sections owned by other
// packages such as observability.
func (c *Config) Unmarshal(path string, out any) error {
	if c == nil || c.k == nil {
		return ErrNotConfigured
	}
	return c.k.Unmarshal(path, out)
}

// Exists reports whether a key is set by any source.
func (c *Config) Exists(key string) bool {
	return c != nil && c.k != nil && c.k.Exists(key)
}

// GetString retrieves a string value from the configuration or the provided default.
func (c *Config) GetString(key string, defaultVal ...string) string {
	if !c.Exists(key) {
		if len(defaultVal) > 0 {
			return defaultVal[0]
		}
		return ""
	}
	return c.k.String(key)
}
