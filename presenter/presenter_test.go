package presenter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/apiclient/httpclient"
	"github.com/gaborage/apiclient/logger"
)

func TestPresentKinds(t *testing.T) {
	tests := []struct {
		kind     httpclient.Kind
		title    string
		severity Severity
	}{
		{httpclient.KindNetwork, "Connection problem", SeverityError},
		{httpclient.KindUnauthorized, "Session expired", SeverityWarn},
		{httpclient.KindForbidden, "Access denied", SeverityWarn},
		{httpclient.KindNotFound, "Not found", SeverityInfo},
		{httpclient.KindServer, "Server error", SeverityCritical},
		{httpclient.KindUnknown, "Unexpected error", SeverityError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p := Present(&httpclient.Error{Kind: tt.kind, Message: "raw message"})
			assert.Equal(t, tt.title, p.Title)
			assert.Equal(t, tt.severity, p.Severity)
			assert.Equal(t, tt.kind, p.Kind)
			assert.NotEmpty(t, p.Description)
		})
	}
}

func TestPresentCoversEveryKind(t *testing.T) {
	catalog := DefaultCatalog()
	for _, kind := range httpclient.Kinds() {
		assert.Contains(t, catalog, kind)
		assert.Contains(t, severities, kind)
	}
}

func TestPresentAppendsReference(t *testing.T) {
	p := Present(&httpclient.Error{Kind: httpclient.KindServer, Status: 503, CorrelationID: "req-42"})
	assert.Equal(t, "Something went wrong on our side. Please try again later. Reference: req-42", p.Description)
	assert.Equal(t, "req-42", p.CorrelationID)
	assert.Equal(t, 503, p.Status)
}

func TestPresentPrefersServerMessage(t *testing.T) {
	unknown := Present(&httpclient.Error{Kind: httpclient.KindUnknown, Status: 418, Message: "Teapots cannot vote"})
	assert.Equal(t, "Teapots cannot vote", unknown.Description)

	business := Present(&httpclient.Error{
		Kind:    httpclient.KindUnknown,
		Status:  429,
		Code:    "LOGIN_RATE_LIMITED",
		Message: "Too many login attempts",
	})
	assert.Equal(t, "Too many login attempts", business.Description)
	assert.Equal(t, "LOGIN_RATE_LIMITED", business.Code)

	notFound := Present(&httpclient.Error{Kind: httpclient.KindNotFound, Message: "Not Found"})
	assert.Equal(t, "The requested resource does not exist or was removed.", notFound.Description)
}

func TestPresentWrappedAndForeignErrors(t *testing.T) {
	wrapped := fmt.Errorf("load polls: %w", &httpclient.Error{Kind: httpclient.KindForbidden})
	assert.Equal(t, httpclient.KindForbidden, Present(wrapped).Kind)

	foreign := Present(errors.New("boom"))
	assert.Equal(t, httpclient.KindUnknown, foreign.Kind)
	assert.Equal(t, "boom", foreign.Description)

	assert.Equal(t, Presentation{}, Present(nil))
}

func TestCatalogOverrides(t *testing.T) {
	p := New(Catalog{
		httpclient.KindUnauthorized: {Title: "Please log in"},
	})

	pres := p.Present(&httpclient.Error{Kind: httpclient.KindUnauthorized})
	assert.Equal(t, "Please log in", pres.Title)
	assert.Equal(t, "Please sign in again to continue.", pres.Description)

	assert.Equal(t, "Session expired", Present(&httpclient.Error{Kind: httpclient.KindUnauthorized}).Title)
}

func TestSeverityForUnrecognizedKind(t *testing.T) {
	assert.Equal(t, SeverityError, SeverityFor("teapot"))
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		kind     httpclient.Kind
		level    string
		severity string
	}{
		{httpclient.KindNetwork, "error", "error"},
		{httpclient.KindUnauthorized, "warn", "warn"},
		{httpclient.KindForbidden, "warn", "warn"},
		{httpclient.KindNotFound, "info", "info"},
		{httpclient.KindServer, "error", "critical"},
		{httpclient.KindUnknown, "error", "error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.NewWithWriter("debug", &buf, nil)

			Log(log, &httpclient.Error{Kind: tt.kind, Status: 500, Code: "X", CorrelationID: "req-1"})

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.severity, entry["severity"])
			assert.Equal(t, string(tt.kind), entry["kind"])
			assert.Equal(t, "req-1", entry["request_id"])
			assert.EqualValues(t, 500, entry["status"])
		})
	}
}

func TestLogNilInputs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("debug", &buf, nil)

	assert.Equal(t, Presentation{}, Log(log, nil))
	assert.Empty(t, buf.String())

	pres := Log(nil, &httpclient.Error{Kind: httpclient.KindNetwork})
	assert.Equal(t, SeverityError, pres.Severity)
}
