// Path: internal/client/types.go
package client

import (
	"fmt"
	"time"
)

// ErrorKind classifies transport-level probe failures.
type ErrorKind string

const (
	ErrKindTimeout    ErrorKind = "timeout"
	ErrKindConnection ErrorKind = "connection"
	ErrKindNetwork    ErrorKind = "network"
)

// ProbeRequest describes a single HTTP probe against a provider endpoint.
type ProbeRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    any
	Timeout time.Duration
}

// ProbeResponse is the outcome of a probe that produced an HTTP response.
// Every status code lands here; classifying 4xx/5xx is the caller's business.
type ProbeResponse struct {
	StatusCode int
	Body       string
	Duration   time.Duration
}

// ProbeError is a transport-level failure: the request never produced an
// HTTP response.
type ProbeError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s error: %v", e.Kind, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from a typed provider-API call. It exposes
// the status code so callers can branch on specific cases (401, 404) without
// parsing text messages.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
