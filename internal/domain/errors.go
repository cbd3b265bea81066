package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during a report run.
var (
	// ErrMissingImages indicates that an eye was submitted without images.
	ErrMissingImages = errors.New("missing images")

	// ErrInvalidExamType indicates that a run named no exam type or a
	// malformed one.
	ErrInvalidExamType = errors.New("invalid exam type")

	// ErrNoDescriptions indicates that every analysis task for an eye
	// failed, leaving nothing to synthesize.
	ErrNoDescriptions = errors.New("no image descriptions available")

	// ErrMalformedReport indicates that the synthesis output was not a
	// valid report object.
	ErrMalformedReport = errors.New("malformed report")
)

// ValidationError represents an error that occurred while validating a run
// request. It is fatal to the run and raised before any remote call.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Kind is the sentinel classifying the failure, e.g. ErrMissingImages.
	Kind error

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns the classifying sentinel.
func (e *ValidationError) Unwrap() error { return e.Kind }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string, kind error) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Kind:   kind,
		Errors: make([]string, 0),
	}
}

// RemoteServiceError represents a failed or timed-out inference call. It is
// isolated to the task that issued the call.
type RemoteServiceError struct {
	// Operation is the inference operation, "describe_image" or "synthesize".
	Operation string

	// Model is the model specification the call was routed to.
	Model string

	// Err is the underlying provider or transport error.
	Err error
}

// Error implements the error interface for RemoteServiceError.
func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("remote service error: operation=%s, model=%s, err=%v", e.Operation, e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *RemoteServiceError) Unwrap() error { return e.Err }

// IsRetryable reports whether the wrapped error is marked transient.
func (e *RemoteServiceError) IsRetryable() bool {
	var r interface{ IsRetryable() bool }
	if errors.As(e.Err, &r) {
		return r.IsRetryable()
	}
	return false
}

// NewRemoteServiceError creates a new RemoteServiceError.
func NewRemoteServiceError(operation, model string, err error) *RemoteServiceError {
	return &RemoteServiceError{Operation: operation, Model: model, Err: err}
}

// EncodingError represents an image that could not be read.
type EncodingError struct {
	// Filename is the declared name of the unreadable image.
	Filename string

	// Err is the underlying I/O error.
	Err error
}

// Error implements the error interface for EncodingError.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: file=%s, err=%v", e.Filename, e.Err)
}

// Unwrap returns the underlying error.
func (e *EncodingError) Unwrap() error { return e.Err }

// NewEncodingError creates a new EncodingError.
func NewEncodingError(filename string, err error) *EncodingError {
	return &EncodingError{Filename: filename, Err: err}
}
