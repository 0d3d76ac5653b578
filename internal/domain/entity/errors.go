package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad or missing input the operator can correct
	ErrValidation = errors.New("validation failed")

	// ErrIO marks a staged upload that could not be read from local storage
	ErrIO = errors.New("local file unavailable")

	// ErrDecode marks a token or encrypted parameter that is malformed,
	// forged, or sealed under a different key
	ErrDecode = errors.New("invalid or tampered token")

	// ErrRemote marks a storage provider failure (network, auth, conflict, not found)
	ErrRemote = errors.New("remote storage request failed")
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RemoteError carries the provider's response for a failed storage call.
// StatusCode is zero when the request never got a response.
type RemoteError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d %s: %s", e.Op, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRemote}
	}
	return []error{ErrRemote, e.Err}
}

// IsNotFound reports whether the provider answered 404
func (e *RemoteError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsPreconditionFailed reports whether an If-Match eTag no longer matched
func (e *RemoteError) IsPreconditionFailed() bool {
	return e.StatusCode == 412
}
