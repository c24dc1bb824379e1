package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEndpointUnusable marks a first-page failure of a candidate endpoint.
// The fallback chain matches it with errors.Is and moves to the next
// candidate; any other error aborts the chain.
var ErrEndpointUnusable = errors.New("endpoint unusable")

// FailureReason classifies why an endpoint or page failed.
type FailureReason string

const (
	ReasonNetwork      FailureReason = "network"
	ReasonUnauthorized FailureReason = "unauthorized"
	ReasonNotFound     FailureReason = "not_found"
	ReasonHTTPStatus   FailureReason = "http_status"
	ReasonMalformed    FailureReason = "malformed_body"
)

// UnusableError wraps ErrEndpointUnusable with the endpoint and a reason.
type UnusableError struct {
	Endpoint string
	Reason   FailureReason
	Detail   string
}

func (e *UnusableError) Error() string {
	return fmt.Sprintf("endpoint unusable: %s (%s: %s)", e.Endpoint, e.Reason, e.Detail)
}

func (e *UnusableError) Unwrap() error { return ErrEndpointUnusable }

// UnsupportedPlatformError is returned when an origin answers none of the
// known platform probes. The harvest does not proceed.
type UnsupportedPlatformError struct {
	Origin string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %s matches no known storefront API", e.Origin)
}

// EndpointAttempt records one failed candidate inside an exhausted chain.
type EndpointAttempt struct {
	Endpoint string        `json:"endpoint"`
	Reason   FailureReason `json:"reason"`
	Detail   string        `json:"detail"`
}

// EndpointExhaustedError is returned when every candidate endpoint for a
// (platform, kind) pair failed on its first page.
type EndpointExhaustedError struct {
	Platform Platform
	Kind     Kind
	Attempts []EndpointAttempt
}

func (e *EndpointExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Endpoint, a.Reason))
	}
	return fmt.Sprintf("all %s %s endpoints exhausted: %s",
		e.Platform, e.Kind, strings.Join(parts, ", "))
}
