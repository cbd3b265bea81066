// Package ports declares the boundaries between the report pipeline and its
// collaborators: the inference service, image encoding, the layout store
// and observability.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-eyereport/internal/domain"
)

// LayoutStore resolves the report layout template for an exam type.
// The template is opaque to the pipeline and is never parsed.
type LayoutStore interface {
	// GetLayout returns the template for examType, or an error wrapping
	// ErrLayoutNotFound.
	GetLayout(ctx context.Context, examType domain.ExamType) (string, error)

	// ExamTypes lists the exam types the store has layouts for.
	ExamTypes(ctx context.Context) ([]domain.ExamType, error)
}

// ImageEncoder renders an uploaded image as an inline payload. It reads
// the image content exactly once.
type ImageEncoder interface {
	Encode(img domain.UploadedImage) (domain.InlineImageData, error)
}

// StageTimer measures a named pipeline stage. Implementations must call fn
// exactly once and return its error unchanged.
type StageTimer interface {
	Time(ctx context.Context, stage string, fn func(ctx context.Context) error) error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus,
// OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
