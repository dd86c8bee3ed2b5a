package httpclient

import (
	"fmt"
	nethttp "net/http"
	"slices"
)

// verdict is the classifier's decision for one attempt.
type verdict int

const (
	verdictSuccess verdict = iota
	verdictRetryNetwork
	verdictRetryServer
	verdictBusiness
	verdictFatal
)

func (v verdict) String() string {
	switch v {
	case verdictSuccess:
		return "success"
	case verdictRetryNetwork:
		return "retryable_network"
	case verdictRetryServer:
		return "retryable_server"
	case verdictBusiness:
		return "business_failure"
	default:
		return "fatal"
	}
}

// businessStatuses are the only statuses eligible for business classification.
var businessStatuses = []int{
	nethttp.StatusBadRequest,
	nethttp.StatusUnauthorized,
	nethttp.StatusForbidden,
	nethttp.StatusConflict,
	nethttp.StatusTooManyRequests,
}

// rawResponse is a response whose body has been fully read.
type rawResponse struct {
	status  int
	body    []byte
	headers nethttp.Header
}

type classifyInput struct {
	resp              *rawResponse // nil when the transport failed
	attemptsRemain    bool
	retryServerErrors bool
	treatAsBusiness   []string
	localID           string
}

type classification struct {
	verdict verdict
	info    extraction
	kind    Kind // set for verdictFatal
}

// classify decides what one attempt means for the call.
func (c *Client) classify(in classifyInput) classification {
	if in.resp == nil {
		return classification{
			verdict: verdictRetryNetwork,
			info:    extraction{correlationID: in.localID},
			kind:    KindNetwork,
		}
	}

	status := in.resp.status
	info := extract(parsePayload(in.resp.body), in.resp.headers, c.config.CorrelationHeader, in.localID)

	switch {
	case IsSuccessStatus(status):
		return classification{verdict: verdictSuccess, info: info}
	case status >= 500 && in.retryServerErrors && in.attemptsRemain:
		return classification{verdict: verdictRetryServer, info: info, kind: KindServer}
	case c.businessEligible(status, info.code, in.treatAsBusiness):
		return classification{verdict: verdictBusiness, info: withFallbackMessage(info, status)}
	default:
		return classification{verdict: verdictFatal, info: withFallbackMessage(info, status), kind: KindForStatus(status)}
	}
}

// businessEligible applies the business rule: an eligible status and a code that is
// recognized, allow-listed for this call, or (permissive mode) merely present.
func (c *Client) businessEligible(status int, code string, treatAsBusiness []string) bool {
	if !slices.Contains(businessStatuses, status) || code == "" {
		return false
	}
	if _, ok := c.businessCodes[code]; ok {
		return true
	}
	if slices.Contains(treatAsBusiness, code) {
		return true
	}
	return !c.config.StrictBusinessCodes
}

func withFallbackMessage(info extraction, status int) extraction {
	if info.message == "" {
		info.message = fmt.Sprintf("request failed with status %d", status)
	}
	return info
}
