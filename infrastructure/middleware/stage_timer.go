package middleware

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-eyereport/internal/ports"
)

var _ ports.StageTimer = (*StageTimer)(nil)

// StageTimer wraps pipeline stages in an OpenTelemetry span, records their
// duration with a MetricsCollector and logs completion at debug level.
type StageTimer struct {
	tracer  trace.Tracer
	metrics ports.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time
}

// StageTimerOption configures a StageTimer.
type StageTimerOption func(*StageTimer)

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) StageTimerOption {
	return func(t *StageTimer) { t.tracer = tracer }
}

// WithLogger sets the logger used for stage completion records.
func WithLogger(logger *slog.Logger) StageTimerOption {
	return func(t *StageTimer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewStageTimer creates a StageTimer. metrics may be nil.
func NewStageTimer(metrics ports.MetricsCollector, opts ...StageTimerOption) *StageTimer {
	t := &StageTimer{
		tracer:  otel.Tracer("eyereport"),
		metrics: metrics,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Time runs fn inside a span named "stage.<stage>". fn receives the span's
// context. The error from fn is returned unchanged.
func (t *StageTimer) Time(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, "stage."+stage, trace.WithAttributes(
		attribute.String("stage.name", stage),
	))
	defer span.End()

	start := t.now()
	err := fn(ctx)
	elapsed := t.now().Sub(start)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.Int64("stage.duration_ms", elapsed.Milliseconds()))

	if t.metrics != nil {
		t.metrics.RecordLatency(stage, elapsed, map[string]string{
			"stage":  stage,
			"status": status,
		})
	}

	t.logger.DebugContext(ctx, "stage finished",
		slog.String("stage", stage),
		slog.Duration("duration", elapsed),
		slog.String("status", status),
	)
	return err
}
