package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the application configuration for the API client and its tooling.
// Sections not modeled here stay reachable through Unmarshal.
type Config struct {
	App    AppConfig    `koanf:"app" json:"app" yaml:"app"`
	Client ClientConfig `koanf:"client" json:"client" yaml:"client"`
	Log    LogConfig    `koanf:"log" json:"log" yaml:"log"`

	// k holds the underlying Koanf instance for sections decoded elsewhere
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig identifies the running program.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" validate:"oneof=development staging production"`
}

// ClientConfig holds the API client settings.
type ClientConfig struct {
	BaseURL string        `koanf:"base_url" json:"base_url" yaml:"base_url" validate:"required,http_url"`
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	Retry   RetryConfig   `koanf:"retry" json:"retry" yaml:"retry"`

	AntiForgery       AntiForgeryConfig `koanf:"anti_forgery" json:"anti_forgery" yaml:"anti_forgery"`
	CorrelationHeader string            `koanf:"correlation_header" json:"correlation_header" yaml:"correlation_header" validate:"required"`

	// BusinessCodes replaces the built-in recognized codes when non-empty
	BusinessCodes       []string `koanf:"business_codes" json:"business_codes" yaml:"business_codes"`
	StrictBusinessCodes bool     `koanf:"strict_business_codes" json:"strict_business_codes" yaml:"strict_business_codes"`

	Headers map[string]string `koanf:"headers" json:"headers" yaml:"headers"`

	LogPayloads        bool `koanf:"log_payloads" json:"log_payloads" yaml:"log_payloads"`
	MaxPayloadLogBytes int  `koanf:"max_payload_log_bytes" json:"max_payload_log_bytes" yaml:"max_payload_log_bytes" validate:"gte=0"`
}

// RetryConfig holds the client-wide retry policy.
type RetryConfig struct {
	MaxAttempts  int           `koanf:"max_attempts" json:"max_attempts" yaml:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelay    time.Duration `koanf:"base_delay" json:"base_delay" yaml:"base_delay" validate:"gte=0"`
	ServerErrors bool          `koanf:"server_errors" json:"server_errors" yaml:"server_errors"`
}

// AntiForgeryConfig names the cookie the token is read from and the header it is sent in.
type AntiForgeryConfig struct {
	Cookie string `koanf:"cookie" json:"cookie" yaml:"cookie" validate:"required"`
	Header string `koanf:"header" json:"header" yaml:"header" validate:"required"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}
