package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURLEnv = "APICLIENT_CLIENT__BASE_URL=https://api.example.com"

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{Environ: environ(testBaseURLEnv)})
	require.NoError(t, err)

	assert.Equal(t, "apiclient", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, "https://api.example.com", cfg.Client.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 3, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Client.Retry.BaseDelay)
	assert.True(t, cfg.Client.Retry.ServerErrors)
	assert.Equal(t, "csrftoken", cfg.Client.AntiForgery.Cookie)
	assert.Equal(t, "X-CSRFToken", cfg.Client.AntiForgery.Header)
	assert.Equal(t, "X-Request-Id", cfg.Client.CorrelationHeader)
	assert.False(t, cfg.Client.StrictBusinessCodes)
	assert.Equal(t, 4096, cfg.Client.MaxPayloadLogBytes)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
client:
  base_url: https://file.example.com
  timeout: 5s
  retry:
    max_attempts: 2
  business_codes: [SEAT_TAKEN]
log:
  level: debug
`), 0o600))

	cfg, err := Load(Options{
		File: path,
		YAML: []byte("client:\n  retry:\n    max_attempts: 4\n"),
		Environ: environ(
			"APICLIENT_CLIENT__TIMEOUT=7s",
			"APICLIENT_CLIENT__STRICT_BUSINESS_CODES=true",
			"APICLIENT_LOG__LEVEL=warn",
			"UNRELATED_CLIENT__TIMEOUT=1s",
		),
	})
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.Client.BaseURL)
	assert.Equal(t, 7*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 4, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, []string{"SEAT_TAKEN"}, cfg.Client.BusinessCodes)
	assert.True(t, cfg.Client.StrictBusinessCodes)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "absent.yaml"), Environ: environ()})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "not_found", cfgErr.Category)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name     string
		env      []string
		field    string
		category string
	}{
		{name: "missing_base_url", env: nil, field: "client.base_url", category: "missing"},
		{name: "relative_base_url", env: []string{"APICLIENT_CLIENT__BASE_URL=/api"}, field: "client.base_url", category: "invalid"},
		{name: "too_many_attempts", env: []string{testBaseURLEnv, "APICLIENT_CLIENT__RETRY__MAX_ATTEMPTS=50"}, field: "client.retry.max_attempts", category: "invalid"},
		{name: "zero_attempts", env: []string{testBaseURLEnv, "APICLIENT_CLIENT__RETRY__MAX_ATTEMPTS=0"}, field: "client.retry.max_attempts", category: "invalid"},
		{name: "bad_log_level", env: []string{testBaseURLEnv, "APICLIENT_LOG__LEVEL=loud"}, field: "log.level", category: "invalid"},
		{name: "bad_env", env: []string{testBaseURLEnv, "APICLIENT_APP__ENV=qa"}, field: "app.env", category: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Options{Environ: environ(tt.env...)})
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Equal(t, tt.category, cfgErr.Category)
		})
	}
}

func TestUnmarshalSection(t *testing.T) {
	cfg, err := Load(Options{
		YAML:    []byte("observability:\n  enabled: true\n  service:\n    name: voting-web\n"),
		Environ: environ(testBaseURLEnv),
	})
	require.NoError(t, err)

	var section struct {
		Enabled bool `koanf:"enabled"`
		Service struct {
			Name string `koanf:"name"`
		} `koanf:"service"`
	}
	require.NoError(t, cfg.Unmarshal("observability", &section))
	assert.True(t, section.Enabled)
	assert.Equal(t, "voting-web", section.Service.Name)

	assert.True(t, cfg.Exists("observability.service.name"))
	assert.Equal(t, "voting-web", cfg.GetString("observability.service.name"))
	assert.Equal(t, "fallback", cfg.GetString("missing.key", "fallback"))

	var nilCfg *Config
	assert.True(t, IsNotConfigured(nilCfg.Unmarshal("x", &section)))
}

func TestConfigErrorFormatting(t *testing.T) {
	err := NewMissingFieldError("client.base_url")
	assert.Equal(t,
		"config_missing: client.base_url required set APICLIENT_CLIENT__BASE_URL env var or add client.base_url to the config file",
		err.Error())

	invalid := NewInvalidFieldError("log.level", "invalid value \"loud\"", []string{"info", "warn"})
	assert.Equal(t, "config_invalid: log.level invalid value \"loud\" must be one of: info, warn", invalid.Error())
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "APICLIENT_CLIENT__RETRY__MAX_ATTEMPTS", EnvVar("client.retry.max_attempts"))

	key, value := envKey("APICLIENT_CLIENT__RETRY__BASE_DELAY", "2s")
	assert.Equal(t, "client.retry.base_delay", key)
	assert.Equal(t, "2s", value)
}
