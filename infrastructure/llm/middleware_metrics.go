package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ahrav/go-eyereport/internal/ports"
)

// metricsLLM records latency, request counts and token usage per call.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that collects request metrics.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{
			next:      next,
			collector: collector,
		}
	}
}

// DoRequest executes the request while collecting metrics. Token counters
// are split into prompt, cached and completion series.
func (m *metricsLLM) DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	start := time.Now()
	resp, err := m.next.DoRequest(ctx, req)
	if m.collector == nil {
		return resp, err
	}

	model := req.Model
	if model == "" {
		model = m.next.GetModel()
	}
	labels := map[string]string{
		"provider": providerForModel(model),
		"model":    model,
		"status":   requestStatus(err),
	}

	m.collector.RecordHistogram("llm_latency_seconds", time.Since(start).Seconds(), labels)
	m.collector.RecordCounter("llm_requests_total", 1, labels)

	if err == nil {
		for tokenType, n := range map[string]int64{
			"prompt":     resp.Usage.PromptTokens,
			"cached":     resp.Usage.CachedTokens,
			"completion": resp.Usage.CompletionTokens,
		} {
			m.collector.RecordCounter("llm_tokens_total", float64(n), map[string]string{
				"provider":   labels["provider"],
				"model":      model,
				"token_type": tokenType,
			})
		}
	}

	return resp, err
}

func requestStatus(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &pe):
		return pe.Type.String()
	default:
		return "error"
	}
}

// providerForModel guesses the provider from well-known model name prefixes.
func providerForModel(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return "openai"
	case strings.HasPrefix(model, "claude"):
		return "anthropic"
	case strings.HasPrefix(model, "gemini"):
		return "google"
	default:
		return "unknown"
	}
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
