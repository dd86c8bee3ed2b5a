package httpclient

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"slices"
	"strconv"
)

// payload is an error response body decoded as a JSON object; nil when the body
// is empty or not an object.
type payload map[string]any

func parsePayload(body []byte) payload {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var p payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil
	}
	return p
}

// envelope returns the nested {"error": {...}} object when present.
func (p payload) envelope() payload {
	if m, ok := p["error"].(map[string]any); ok {
		return m
	}
	return nil
}

// extractor pulls one candidate value out of a payload; "" means not found.
type extractor func(p payload) string

// Ordered by priority: the first non-empty result wins.
var (
	messageExtractors = []extractor{
		func(p payload) string { return scalar(p.envelope()["message"]) },
		func(p payload) string { return firstMessage(p["fields"]) },
		func(p payload) string { return firstMessage(p["errors"]) },
		func(p payload) string { return firstMessage(p["detail"]) },
		func(p payload) string { return scalar(p["message"]) },
	}
	codeExtractors = []extractor{
		func(p payload) string { return scalar(p.envelope()["code"]) },
		func(p payload) string { return scalar(p["code"]) },
	}
	correlationExtractors = []extractor{
		func(p payload) string { return scalar(p.envelope()["request_id"]) },
		func(p payload) string { return scalar(p["request_id"]) },
	}
)

func firstOf(p payload, extractors []extractor) string {
	if p == nil {
		return ""
	}
	for _, ex := range extractors {
		if v := ex(p); v != "" {
			return v
		}
	}
	return ""
}

// extraction is everything the classifier needs from a response.
type extraction struct {
	message       string
	code          string
	correlationID string
	details       any
}

// extract reads message, code, correlation id and details from a response. The
// correlation id falls back to the response header, then to localID.
func extract(p payload, headers nethttp.Header, correlationHeader, localID string) extraction {
	out := extraction{
		message:       firstOf(p, messageExtractors),
		code:          firstOf(p, codeExtractors),
		correlationID: firstOf(p, correlationExtractors),
		details:       details(p),
	}
	if out.correlationID == "" && headers != nil {
		out.correlationID = headers.Get(correlationHeader)
	}
	if out.correlationID == "" {
		out.correlationID = localID
	}
	return out
}

func details(p payload) any {
	if p == nil {
		return nil
	}
	if d, ok := p.envelope()["details"]; ok && d != nil {
		return d
	}
	for _, key := range []string{"fields", "errors"} {
		if d, ok := p[key]; ok && d != nil {
			return d
		}
	}
	return nil
}

// firstMessage finds the first human-readable text in a validation structure:
// a string, a list of strings or {message} objects, or a field map of either.
// Field maps are walked in key order so the result is deterministic.
func firstMessage(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s := firstMessage(item); s != "" {
				return s
			}
		}
	case map[string]any:
		for _, key := range []string{"message", "msg"} {
			if s, ok := t[key].(string); ok && s != "" {
				return s
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if s := firstMessage(t[k]); s != "" {
				return s
			}
		}
	}
	return ""
}

// scalar renders strings and numbers; anything else is "".
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}
