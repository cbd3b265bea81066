package application

import (
	"context"
	"log/slog"

	"github.com/ahrav/go-eyereport/internal/ports"
)

// Metric names emitted by the pipeline.
const (
	metricStageTasks = "stage_tasks_total"
	metricRunCost    = "run_cost"
	metricRuns       = "runs_total"
)

// Option configures stages and the Orchestrator.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	metrics        ports.MetricsCollector
	timer          ports.StageTimer
	maxConcurrency int
}

// WithLogger sets the logger. A nil logger discards records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics ports.MetricsCollector) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithStageTimer wraps each orchestrator stage in timer.
func WithStageTimer(timer ports.StageTimer) Option {
	return func(o *options) { o.timer = timer }
}

// WithMaxConcurrency caps the analysis fan-out. Zero or less runs every
// image at once.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = discardLogger()
	}
	if o.timer == nil {
		o.timer = untimed{}
	}
	return o
}

func (o options) recordTask(stage string, side string, err error) {
	if o.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	o.metrics.RecordCounter(metricStageTasks, 1, map[string]string{
		"stage":  stage,
		"side":   side,
		"status": status,
	})
}

// untimed runs the stage without measuring it.
type untimed struct{}

func (untimed) Time(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
