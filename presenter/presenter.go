// Package presenter turns API client failures into user-facing text and a log
// severity. It consumes *httpclient.Error values and never takes part in the
// retry decision.
package presenter

import (
	"errors"
	"strings"

	"github.com/gaborage/apiclient/httpclient"
	"github.com/gaborage/apiclient/logger"
)

// Severity is the log severity attached to a presented failure.
type Severity string

// Severities in increasing order of urgency
const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Text is the user-facing copy for one error kind.
type Text struct {
	Title       string
	Description string
}

// Catalog maps error kinds to user-facing copy.
type Catalog map[httpclient.Kind]Text

// Presentation is what a UI shows for a failed call.
type Presentation struct {
	Title         string
	Description   string
	Severity      Severity
	Kind          httpclient.Kind
	Status        int
	Code          string
	CorrelationID string
}

// DefaultCatalog returns the built-in copy for every kind.
func DefaultCatalog() Catalog {
	return Catalog{
		httpclient.KindNetwork: {
			Title:       "Connection problem",
			Description: "We could not reach the server. Check your connection and try again.",
		},
		httpclient.KindUnauthorized: {
			Title:       "Session expired",
			Description: "Please sign in again to continue.",
		},
		httpclient.KindForbidden: {
			Title:       "Access denied",
			Description: "You do not have permission to perform this action.",
		},
		httpclient.KindNotFound: {
			Title:       "Not found",
			Description: "The requested resource does not exist or was removed.",
		},
		httpclient.KindServer: {
			Title:       "Server error",
			Description: "Something went wrong on our side. Please try again later.",
		},
		httpclient.KindUnknown: {
			Title:       "Unexpected error",
			Description: "The request could not be completed.",
		},
	}
}

var severities = map[httpclient.Kind]Severity{
	httpclient.KindNetwork:      SeverityError,
	httpclient.KindUnauthorized: SeverityWarn,
	httpclient.KindForbidden:    SeverityWarn,
	httpclient.KindNotFound:     SeverityInfo,
	httpclient.KindServer:       SeverityCritical,
	httpclient.KindUnknown:      SeverityError,
}

// SeverityFor returns the log severity of kind. Unrecognized kinds are errors.
func SeverityFor(kind httpclient.Kind) Severity {
	if s, ok := severities[kind]; ok {
		return s
	}
	return SeverityError
}

// Presenter renders errors using a catalog.
type Presenter struct {
	catalog Catalog
}

// New creates a Presenter. Non-empty fields in overrides replace the default
// copy for their kind.
func New(overrides Catalog) *Presenter {
	catalog := DefaultCatalog()
	for kind, text := range overrides {
		base := catalog[kind]
		if text.Title != "" {
			base.Title = text.Title
		}
		if text.Description != "" {
			base.Description = text.Description
		}
		catalog[kind] = base
	}
	return &Presenter{catalog: catalog}
}

var defaultPresenter = New(nil)

// Present renders err with the default catalog.
func Present(err error) Presentation {
	return defaultPresenter.Present(err)
}

// Log logs err with the default catalog.
func Log(log logger.Logger, err error) Presentation {
	return defaultPresenter.Log(log, err)
}

// Present renders err. Errors that are not *httpclient.Error are presented as
// kind unknown.
func (p *Presenter) Present(err error) Presentation {
	if err == nil {
		return Presentation{}
	}

	apiErr, ok := httpclient.AsError(err)
	if !ok {
		apiErr = &httpclient.Error{Kind: httpclient.KindUnknown, Message: err.Error(), Cause: err}
	}

	text, ok := p.catalog[apiErr.Kind]
	if !ok {
		text = p.catalog[httpclient.KindUnknown]
	}

	description := text.Description
	// server wording replaces generic copy for unknown and business failures
	if msg := strings.TrimSpace(apiErr.Message); msg != "" && (apiErr.Kind == httpclient.KindUnknown || apiErr.Code != "") {
		description = msg
	}
	if apiErr.CorrelationID != "" {
		description += " Reference: " + apiErr.CorrelationID
	}

	return Presentation{
		Title:         text.Title,
		Description:   description,
		Severity:      SeverityFor(apiErr.Kind),
		Kind:          apiErr.Kind,
		Status:        apiErr.Status,
		Code:          apiErr.Code,
		CorrelationID: apiErr.CorrelationID,
	}
}

// Log writes err at the level matching its severity and returns its presentation.
// Critical failures log at error level with severity=critical.
func (p *Presenter) Log(log logger.Logger, err error) Presentation {
	pres := p.Present(err)
	if err == nil || log == nil {
		return pres
	}

	var event logger.LogEvent
	switch pres.Severity {
	case SeverityInfo:
		event = log.Info()
	case SeverityWarn:
		event = log.Warn()
	default:
		event = log.Error()
	}

	event = event.
		Err(err).
		Str("kind", string(pres.Kind)).
		Str("severity", string(pres.Severity))
	if pres.Status != 0 {
		event = event.Int("status", pres.Status)
	}
	if pres.Code != "" {
		event = event.Str("code", pres.Code)
	}
	if pres.CorrelationID != "" {
		event = event.Str("request_id", pres.CorrelationID)
	}
	if errors.Is(err, httpclient.ErrInvalidRequest) {
		event = event.Bool("invalid_request", true)
	}
	event.Msg(pres.Title)
	return pres
}
