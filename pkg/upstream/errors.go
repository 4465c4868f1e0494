// Package upstream defines the local error taxonomy for failures of the
// upstream directory API and translates raw upstream outcomes into it.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies an upstream failure.
type Kind string

const (
	// KindNotFound means the requested named resource does not exist upstream.
	KindNotFound Kind = "not_found"

	// KindUnavailable means the upstream signaled service unavailability
	// or could not be reached in time.
	KindUnavailable Kind = "upstream_unavailable"

	// KindUpstream covers every other non-success status.
	KindUpstream Kind = "upstream_error"

	// KindMalformed means the upstream answered 200 with a body that could not be decoded.
	KindMalformed Kind = "malformed_upstream_response"
)

// Upstream codes attached to translated errors.
const (
	CodeUnknown     = "unknown"
	CodeBadRequest  = "ERR_BAD_REQUEST"
	CodeBadResponse = "ERR_BAD_RESPONSE"
	CodeTimeout     = "ECONNABORTED"
	CodeNetwork     = "ERR_NETWORK"
)

// ErrMalformedResponse is wrapped by errors of KindMalformed.
var ErrMalformedResponse = errors.New("malformed upstream response")

// Subject names what a request was about, for human-readable descriptions.
type Subject struct {
	// Noun is the resource type, e.g. "Organization".
	Noun string
	// Name is the requested resource name, e.g. "trifork".
	Name string
	// Route is the upstream route that was called.
	Route string
}

// Error is an upstream failure translated into the local taxonomy.
type Error struct {
	Status      int
	Code        string
	Kind        Kind
	Description string
	Err         error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("upstream %s (status %d, code %s)", e.Kind, e.Status, e.Code)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Translate maps an upstream status and code into an *Error.
// It never fails: an empty code becomes CodeUnknown.
func Translate(status int, code string, subject Subject) *Error {
	if code == "" {
		code = CodeUnknown
	}

	switch status {
	case http.StatusNotFound:
		return &Error{
			Status:      status,
			Code:        code,
			Kind:        KindNotFound,
			Description: notFoundDescription(subject),
		}
	case http.StatusServiceUnavailable:
		return &Error{
			Status:      status,
			Code:        code,
			Kind:        KindUnavailable,
			Description: fmt.Sprintf("GithubAPI route '%s' unavailable", subject.Route),
		}
	default:
		return &Error{
			Status: status,
			Code:   code,
			Kind:   KindUpstream,
		}
	}
}

// FromTransport translates a failure to obtain any response at all (timeout,
// refused connection, reset) into an unavailability error.
func FromTransport(err error, subject Subject) *Error {
	return &Error{
		Status:      http.StatusServiceUnavailable,
		Code:        TransportCode(err),
		Kind:        KindUnavailable,
		Description: fmt.Sprintf("GithubAPI route '%s' unavailable", subject.Route),
		Err:         err,
	}
}

// Malformed reports a 200 response whose body could not be used.
func Malformed(err error, subject Subject) *Error {
	if !errors.Is(err, ErrMalformedResponse) {
		err = fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &Error{
		Status:      http.StatusBadGateway,
		Code:        CodeBadResponse,
		Kind:        KindMalformed,
		Description: fmt.Sprintf("GithubAPI route '%s' returned an unreadable response", subject.Route),
		Err:         err,
	}
}

// CodeForStatus returns the code used for an upstream status without its own code.
func CodeForStatus(status int) string {
	switch {
	case status >= 400 && status < 500:
		return CodeBadRequest
	case status >= 500:
		return CodeBadResponse
	default:
		return CodeUnknown
	}
}

// TransportCode classifies a transport error.
func TransportCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	return CodeNetwork
}

func notFoundDescription(subject Subject) string {
	noun := subject.Noun
	if noun == "" {
		noun = "Resource"
	}
	if subject.Name == "" {
		return fmt.Sprintf("%s not found.", noun)
	}
	return fmt.Sprintf("%s '%s' not found.", noun, subject.Name)
}
