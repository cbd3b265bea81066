package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrLayoutNotFound indicates that no layout exists for an exam type.
	ErrLayoutNotFound = errors.New("layout not found")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrInvalidConfig indicates that configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LayoutError represents a failed layout lookup.
type LayoutError struct {
	// ExamType is the exam type that was looked up.
	ExamType string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for LayoutError.
func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout error: exam_type=%s, err=%v", e.ExamType, e.Err)
}

// Unwrap returns the underlying error.
func (e *LayoutError) Unwrap() error { return e.Err }

// NewLayoutError creates a new LayoutError with the given details.
func NewLayoutError(examType string, err error) *LayoutError {
	return &LayoutError{ExamType: examType, Err: err}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
