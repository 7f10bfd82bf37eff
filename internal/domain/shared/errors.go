// Package shared contains common domain types, errors, and value objects
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base errors for the data-access layer. Callers classify failures with
// errors.Is() against these sentinels; everything else is wrapped context.
var (
	// ErrAuthentication - the Sponte API rejected the configured credentials.
	// Non-retriable; surfaced to the user as "check credentials".
	ErrAuthentication = errors.New("authentication failed")

	// ErrUnavailable - network failure or 5xx that survived the retry budget.
	// Surfaced as "service unavailable, try again".
	ErrUnavailable = errors.New("service unavailable")

	// ErrBadRequest - the remote API rejected the request with a 4xx other
	// than auth. Not retried.
	ErrBadRequest = errors.New("invalid request")

	// ErrTimeout - the overall deadline (retries plus backoff) elapsed.
	ErrTimeout = errors.New("operation timeout")

	// ErrInvalidInput - caller-supplied filter values failed validation.
	// Raised before any API call is issued.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - an entity referenced by the caller does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConfiguration - required configuration is missing or malformed.
	ErrConfiguration = errors.New("configuration error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "sponte", "cache", "query"
	Op      string // Operation that failed, e.g., "ListClasses"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}
