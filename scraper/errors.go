package scraper

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrServer indicates a 5xx response.
type ErrServer struct {
	StatusCode int
	Err        error
}

func (e ErrServer) Error() string {
	return fmt.Errorf("server_error %d: %w", e.StatusCode, e.Err).Error()
}

func (e ErrServer) Unwrap() error {
	return e.Err
}

// ClientError wraps any 4xx response. It is never retried.
type ClientError struct {
	StatusCode int
	Err        error
}

func (e ClientError) Error() string {
	return fmt.Errorf("client_error %d: %w", e.StatusCode, e.Err).Error()
}

func (e ClientError) Unwrap() error {
	return e.Err
}

// TransientFetchFailure is returned once every attempt for a retryable
// condition has failed.
type TransientFetchFailure struct {
	URL      string
	Attempts int
	Err      error
}

func (e TransientFetchFailure) Error() string {
	return fmt.Errorf("transient failure for %s after %d attempts: %w", e.URL, e.Attempts, e.Err).Error()
}

func (e TransientFetchFailure) Unwrap() error {
	return e.Err
}

// ExtractionMiss indicates an expected field was absent or unparsable on an
// otherwise successful fetch.
type ExtractionMiss struct {
	URL   string
	Field string
	Err   error
}

func (e ExtractionMiss) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction miss for %s (%s): %v", e.URL, e.Field, e.Err)
	}
	return fmt.Sprintf("extraction miss for %s (%s)", e.URL, e.Field)
}

func (e ExtractionMiss) Unwrap() error {
	return e.Err
}

// PageStructureMiss indicates a list page lacked its expected structure.
type PageStructureMiss struct {
	URL     string
	Missing string
}

func (e PageStructureMiss) Error() string {
	return fmt.Sprintf("page structure miss for %s: %s not found", e.URL, e.Missing)
}

// IsTransient reports whether err is an exhausted retryable failure.
func IsTransient(err error) bool {
	var transient TransientFetchFailure
	return errors.As(err, &transient)
}

// ErrorLabel returns the metrics/log category for err.
func ErrorLabel(err error) string {
	return errorTypeLabel(err)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var server ErrServer
	if errors.As(err, &server) {
		return "server_error"
	}
	var client ClientError
	if errors.As(err, &client) {
		return "client_error"
	}
	var miss ExtractionMiss
	if errors.As(err, &miss) {
		return "extraction_miss"
	}
	var structure PageStructureMiss
	if errors.As(err, &structure) {
		return "page_structure_miss"
	}
	return "other"
}
