package client

import (
	"net/http"
)

// ErrorClass represents a classification of upstream errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and 403 responses with an exhausted budget.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents requests that obtained no response.
	ErrorClassNetwork ErrorClass = "network"
)

// ClassifyError categorizes a failed request for metrics and logs.
// It returns "" for successful responses.
func ClassifyError(resp *http.Response, err error) ErrorClass {
	if err != nil || resp == nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
