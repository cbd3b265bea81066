package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-eyereport/internal/ports"
)

// timeoutLLM bounds each request with a deadline.
type timeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that enforces request timeouts.
// A request that outlives its deadline fails with a ProviderError of type
// ErrorTypeTimeout even if the provider returned a bare context error.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &timeoutLLM{
			next:    next,
			timeout: timeout,
		}
	}
}

// DoRequest executes the request with a timeout context.
func (t *timeoutLLM) DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	if t.timeout <= 0 {
		return t.next.DoRequest(ctx, req)
	}

	tctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.next.DoRequest(tctx, req)
	if err == nil {
		return resp, nil
	}

	var pe *ProviderError
	if !errors.As(err, &pe) && errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return ports.ChatResponse{}, NewProviderError("llm", ErrorTypeTimeout, 0, "request timed out after "+t.timeout.String(), err)
	}
	return ports.ChatResponse{}, err
}

// GetModel returns the model name from the wrapped implementation.
func (t *timeoutLLM) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *timeoutLLM) SetModel(m string) { t.next.SetModel(m) }
