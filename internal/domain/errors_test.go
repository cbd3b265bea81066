package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type retryableErr struct{ retry bool }

func (e retryableErr) Error() string     { return "provider failure" }
func (e retryableErr) IsRetryable() bool { return e.retry }

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("RunRequest", ErrMissingImages)
		err.AddError("left eye has no images")

		assert.Equal(t, "validation error for RunRequest: left eye has no images", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.True(t, errors.Is(err, ErrMissingImages), "Should unwrap to its kind")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("RunRequest", ErrMissingImages)
		err.AddError("right eye has no images")
		err.AddError("left eye has no images")

		assert.Contains(t, err.Error(), "validation errors for RunRequest")
		assert.Len(t, err.Errors, 2, "Should have two errors")
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("RunRequest", nil)

		assert.False(t, err.HasErrors(), "Should not have errors")
		assert.Nil(t, errors.Unwrap(err), "Nil kind should unwrap to nil")
	})
}

func TestRemoteServiceError(t *testing.T) {
	base := retryableErr{retry: true}
	err := NewRemoteServiceError("describe_image", "openai/gpt-4o", base)

	assert.Equal(t,
		"remote service error: operation=describe_image, model=openai/gpt-4o, err=provider failure",
		err.Error())
	assert.True(t, errors.Is(err, base), "Should unwrap to underlying error")
	assert.True(t, err.IsRetryable(), "Should report retryable from wrapped error")

	plain := NewRemoteServiceError("synthesize", "openai/gpt-4o", errors.New("boom"))
	assert.False(t, plain.IsRetryable(), "Plain errors are not retryable")
}

func TestEncodingError(t *testing.T) {
	base := errors.New("read failed")
	err := NewEncodingError("od.png", base)

	assert.Equal(t, "encoding error: file=od.png, err=read failed", err.Error())
	assert.True(t, errors.Is(err, base))

	var target *EncodingError
	assert.True(t, errors.As(error(err), &target))
	assert.Equal(t, "od.png", target.Filename)
}

func TestCommonDomainErrors(t *testing.T) {
	tests := []struct {
		err     error
		message string
	}{
		{ErrMissingImages, "missing images"},
		{ErrInvalidExamType, "invalid exam type"},
		{ErrNoDescriptions, "no image descriptions available"},
		{ErrMalformedReport, "malformed report"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error(), "Error message mismatch")
		})
	}
}
