package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassifier_ClassifyHTTPError(t *testing.T) {
	ec := &ErrorClassifier{Provider: "openai"}
	tests := []struct {
		status int
		want   ErrorType
	}{
		{401, ErrorTypeAuthentication},
		{403, ErrorTypeAuthentication},
		{404, ErrorTypeNotFound},
		{408, ErrorTypeTimeout},
		{422, ErrorTypeBadRequest},
		{429, ErrorTypeRateLimit},
		{502, ErrorTypeServerError},
		{504, ErrorTypeTimeout},
		{200, ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, ec.ClassifyHTTPError(tt.status, "m", nil).Type)
		})
	}
}

func TestErrorClassifier_ClassifyContextError(t *testing.T) {
	ec := &ErrorClassifier{Provider: "google"}

	pe := ec.ClassifyContextError(context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeTimeout, pe.Type)
	assert.ErrorIs(t, pe, context.DeadlineExceeded)

	pe = ec.ClassifyContextError(context.Canceled)
	assert.Equal(t, ErrorTypeNetwork, pe.Type)
}

func TestProviderError_Error(t *testing.T) {
	pe := NewProviderError("anthropic", ErrorTypeRateLimit, 429, "slow down", errors.New("inner"))
	assert.Equal(t, "anthropic error (HTTP 429) [rate_limit]: slow down: inner", pe.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrCircuitOpen))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.True(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsRetryable(NewProviderError("x", ErrorTypeServerError, 500, "", nil)))
	assert.False(t, IsRetryable(NewProviderError("x", ErrorTypeContentPolicy, 400, "", nil)))
}
