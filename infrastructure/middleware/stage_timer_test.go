package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type spyTracer struct {
	noop.Tracer
	spans []*spySpan
}

func (s *spyTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &spySpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	for _, kv := range cfg.Attributes() {
		span.attrs[kv.Key] = kv.Value
	}
	s.spans = append(s.spans, span)
	return trace.ContextWithSpan(ctx, span), span
}

type spySpan struct {
	noop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	errs   []error
	status codes.Code
	ended  bool
}

func (s *spySpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}
func (s *spySpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }
func (s *spySpan) SetStatus(code codes.Code, _ string)           { s.status = code }
func (s *spySpan) End(...trace.SpanEndOption)                    { s.ended = true }

type latencyRecord struct {
	operation string
	duration  time.Duration
	labels    map[string]string
}

type spyMetrics struct {
	mu        sync.Mutex
	latencies []latencyRecord
}

func (m *spyMetrics) RecordLatency(op string, d time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, latencyRecord{op, d, labels})
}
func (m *spyMetrics) RecordCounter(string, float64, map[string]string)   {}
func (m *spyMetrics) RecordGauge(string, float64, map[string]string)     {}
func (m *spyMetrics) RecordHistogram(string, float64, map[string]string) {}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := time.Unix(0, 0)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

func TestStageTimer_Success(t *testing.T) {
	tracer := &spyTracer{}
	metrics := &spyMetrics{}
	timer := NewStageTimer(metrics, WithTracer(tracer))
	timer.now = steppingClock(150 * time.Millisecond)

	calls := 0
	err := timer.Time(context.Background(), "analysis", func(ctx context.Context) error {
		calls++
		assert.Same(t, tracer.spans[0], trace.SpanFromContext(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	require.Len(t, tracer.spans, 1)
	span := tracer.spans[0]
	assert.Equal(t, "stage.analysis", span.name)
	assert.Equal(t, "analysis", span.attrs["stage.name"].AsString())
	assert.Equal(t, int64(150), span.attrs["stage.duration_ms"].AsInt64())
	assert.Equal(t, codes.Ok, span.status)
	assert.True(t, span.ended)

	require.Len(t, metrics.latencies, 1)
	assert.Equal(t, "analysis", metrics.latencies[0].operation)
	assert.Equal(t, 150*time.Millisecond, metrics.latencies[0].duration)
	assert.Equal(t, "success", metrics.latencies[0].labels["status"])
}

func TestStageTimer_ErrorPassthrough(t *testing.T) {
	tracer := &spyTracer{}
	metrics := &spyMetrics{}
	timer := NewStageTimer(metrics, WithTracer(tracer))

	boom := errors.New("layout missing")
	err := timer.Time(context.Background(), "layout", func(context.Context) error { return boom })
	assert.Same(t, boom, err)

	span := tracer.spans[0]
	assert.Equal(t, codes.Error, span.status)
	assert.Equal(t, []error{boom}, span.errs)
	assert.Equal(t, "error", metrics.latencies[0].labels["status"])
}

func TestStageTimer_NilMetricsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	timer := NewStageTimer(nil, WithTracer(&spyTracer{}), WithLogger(logger))

	require.NoError(t, timer.Time(context.Background(), "synthesis", func(context.Context) error { return nil }))
	assert.Contains(t, buf.String(), "stage finished")
	assert.Contains(t, buf.String(), "stage=synthesis")
}

func TestStageTimer_WithNilLoggerKeepsDefault(t *testing.T) {
	timer := NewStageTimer(nil, WithLogger(nil))
	require.NotNil(t, timer.logger)
	assert.NoError(t, timer.Time(context.Background(), "x", func(context.Context) error { return nil }))
}
