package booking

import (
	"errors"
	"fmt"
)

var ErrInvalidRequest = errors.New("invalid search request")

// NetworkError is a transport failure or timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: executing request: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx answer from the backend. It is never retried
// within an invocation.
type UpstreamError struct {
	Op         string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d", e.Op, e.StatusCode)
}

// SchemaDriftError means the backend answered but not in any shape we know.
// Callers treat it as "no data", never as a crash.
type SchemaDriftError struct {
	Op     string
	Detail string
	Err    error
}

func (e *SchemaDriftError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func (e *SchemaDriftError) Unwrap() error { return e.Err }
