package domain

import (
	"errors"
	"fmt"
)

// ValidationError indicates bad or missing input from the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError creates a validation error
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates that a record or variant does not exist.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

// UpstreamError indicates a non-2xx response from an external platform.
// It carries the upstream status code and response body.
type UpstreamError struct {
	Platform string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s request failed: status %d", e.Platform, e.Status)
	}
	return fmt.Sprintf("%s request failed: status %d: %s", e.Platform, e.Status, e.Body)
}

// RateLimitedError indicates a 429 from an external provider. Retryable.
type RateLimitedError struct {
	Platform string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s rate limited", e.Platform)
}

// TransientError indicates a server-side failure at an external provider.
// Retryable.
type TransientError struct {
	Platform string
	Status   int
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s transient error: status %d", e.Platform, e.Status)
}

// IsRetryable reports whether the error is a provider condition worth
// retrying: a rate limit or a server-side failure.
func IsRetryable(err error) bool {
	var rl *RateLimitedError
	var tr *TransientError
	return errors.As(err, &rl) || errors.As(err, &tr)
}

// ExhaustedRetriesError indicates that the rate-limit retry budget ran out.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}
