package logger

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultMaskValue replaces sensitive values in log output
	DefaultMaskValue = "***"
	// DefaultMaxDepth bounds recursion into nested maps and slices
	DefaultMaxDepth = 8
)

// FilterConfig defines which field names are considered sensitive.
type FilterConfig struct {
	// SensitiveFields are matched case-insensitively as substrings of the key
	SensitiveFields []string
	// MaskValue is the replacement for sensitive data (default: "***")
	MaskValue string
}

// DefaultFilterConfig masks credentials, anti-forgery tokens and cookies.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "secret",
			"token", "csrf", "xsrf",
			"cookie", "authorization", "api_key", "apikey",
			"credential",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values before they reach a log event.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a filter; a nil config selects DefaultFilterConfig.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive. URLs keep their structure and
// only lose the password part of the user info.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if !f.isSensitiveField(key) || value == "" {
		return value
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		if masked, ok := f.maskURL(value); ok {
			return masked
		}
	}
	return f.config.MaskValue
}

// FilterValue masks value when key is sensitive and descends into maps, header
// sets and slices otherwise.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	return f.filter(key, value, DefaultMaxDepth)
}

// FilterFields filters a map of fields for sensitive data
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	filtered := make(map[string]any, len(fields))
	for key, value := range fields {
		filtered[key] = f.FilterValue(key, value)
	}
	return filtered
}

func (f *SensitiveDataFilter) filter(key string, value any, depth int) any {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	if value == nil || depth <= 0 {
		return value
	}

	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = f.filter(k, inner, depth-1)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, inner := range v {
			if f.isSensitiveField(k) {
				out[k] = f.config.MaskValue
				continue
			}
			out[k] = inner
		}
		return out
	case http.Header:
		out := make(map[string]string, len(v))
		for k := range v {
			if f.isSensitiveField(k) {
				out[k] = f.config.MaskValue
				continue
			}
			out[k] = v.Get(k)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = f.filter(key, inner, depth-1)
		}
		return out
	default:
		return value
	}
}

func (f *SensitiveDataFilter) isSensitiveField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, sensitive := range f.config.SensitiveFields {
		if strings.Contains(lower, strings.ToLower(sensitive)) {
			return true
		}
	}
	return false
}

func (f *SensitiveDataFilter) maskURL(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return "", false
	}
	if _, hasPassword := parsed.User.Password(); !hasPassword {
		return "", false
	}
	username := parsed.User.Username()
	parsed.User = nil
	rest := strings.TrimPrefix(parsed.String(), parsed.Scheme+"://")
	return parsed.Scheme + "://" + username + ":" + f.config.MaskValue + "@" + rest, true
}
