package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// recordingTracer captures spans started through it.
type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*recordingSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &recordingSpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	for _, kv := range cfg.Attributes() {
		span.attrs[kv.Key] = kv.Value
	}
	r.mu.Lock()
	r.spans = append(r.spans, span)
	r.mu.Unlock()
	return trace.ContextWithSpan(ctx, span), span
}

type recordingSpan struct {
	noop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	errs   []error
	status codes.Code
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }
func (s *recordingSpan) SetStatus(code codes.Code, _ string)           { s.status = code }
func (s *recordingSpan) End(...trace.SpanEndOption)                    { s.ended = true }

func TestTracingMiddleware_RecordsSpan(t *testing.T) {
	tracer := &recordingTracer{}
	mock := NewMockCoreLLM()
	mock.Model = "gpt-4o"
	mock.Usage = domain.TokenUsage{PromptTokens: 1000, CachedTokens: 0, CompletionTokens: 100}
	wrapped := TracingMiddlewareWithTracer("eyereport", tracer)(mock)

	req := ports.ChatRequest{Messages: []ports.ChatMessage{{
		Role:  ports.RoleUser,
		Parts: []ports.ContentPart{ports.ImagePart(domain.InlineImageData{MIMEType: "image/png", Base64: "AA=="})},
	}}}
	_, err := wrapped.DoRequest(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, tracer.spans, 1)
	span := tracer.spans[0]
	assert.Equal(t, "llm.request", span.name)
	assert.True(t, span.ended)
	assert.Equal(t, "eyereport", span.attrs["service.name"].AsString())
	assert.Equal(t, "gpt-4o", span.attrs["llm.model"].AsString())
	assert.Equal(t, int64(1), span.attrs["llm.images"].AsInt64())
	assert.Equal(t, int64(1000), span.attrs["llm.tokens.prompt"].AsInt64())
	assert.Equal(t, int64(100), span.attrs["llm.tokens.completion"].AsInt64())

	assert.Same(t, span, trace.SpanFromContext(mock.Contexts[0]))
}

func TestTracingMiddleware_RecordsError(t *testing.T) {
	tracer := &recordingTracer{}
	mock := NewMockCoreLLM()
	mock.Error = errors.New("boom")
	wrapped := TracingMiddlewareWithTracer("eyereport", tracer)(mock)

	_, err := wrapped.DoRequest(context.Background(), userRequest("x"))
	require.Error(t, err)

	span := tracer.spans[0]
	assert.Equal(t, codes.Error, span.status)
	require.Len(t, span.errs, 1)
	assert.EqualError(t, span.errs[0], "boom")
	assert.True(t, span.ended)
}

func TestTracingMiddleware_GlobalTracer(t *testing.T) {
	wrapped := TracingMiddleware("eyereport")(NewMockCoreLLM())
	resp, err := wrapped.DoRequest(context.Background(), userRequest("x"))
	require.NoError(t, err)
	assert.Equal(t, "test response", resp.Text)
}
