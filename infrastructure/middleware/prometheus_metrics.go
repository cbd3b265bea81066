// Package middleware provides cross-cutting concerns for the report
// pipeline: Prometheus metrics and stage timing.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-eyereport/internal/ports"
)

// Metric names routed to dedicated Prometheus vectors. Anything else falls
// through to the generic operation counter or state gauge.
const (
	MetricLLMLatency    = "llm_latency_seconds"
	MetricLLMRequests   = "llm_requests_total"
	MetricLLMTokens     = "llm_tokens_total"
	MetricStageTasks    = "stage_tasks_total"
	MetricRunCost       = "run_cost"
	MetricRunsCompleted = "runs_total"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It covers LLM request latency and token usage, per-stage
// durations and task outcomes, and the cost of the last run.
type PrometheusMetrics struct {
	llmLatency   *prometheus.HistogramVec
	llmRequests  *prometheus.CounterVec
	llmTokens    *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	stageTasks   *prometheus.CounterVec
	runCost      *prometheus.GaugeVec
	runs         *prometheus.CounterVec
	operations   *prometheus.CounterVec
	stateGauges  *prometheus.GaugeVec
	observations *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the metric vectors and registers them with
// reg. A nil reg uses the global Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eyereport_llm_request_duration_seconds",
				Help:    "Latency of language-model requests.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"provider", "model", "status"},
		),
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eyereport_llm_requests_total",
				Help: "Language-model requests by outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eyereport_llm_tokens_total",
				Help: "Tokens reported by the language-model service.",
			},
			[]string{"provider", "model", "token_type"},
		),
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eyereport_stage_duration_seconds",
				Help:    "Wall-clock duration of pipeline stages.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage", "status"},
		),
		stageTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eyereport_stage_tasks_total",
				Help: "Per-image and per-eye tasks by outcome.",
			},
			[]string{"stage", "side", "status"},
		),
		runCost: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eyereport_run_cost",
				Help: "Cost of the most recent run, per component.",
			},
			[]string{"component", "currency"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eyereport_runs_total",
				Help: "Completed runs by exam type and outcome.",
			},
			[]string{"exam_type", "status"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eyereport_operations_total",
				Help: "Counters without a dedicated metric.",
			},
			[]string{"metric"},
		),
		stateGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eyereport_state",
				Help: "Gauges without a dedicated metric.",
			},
			[]string{"metric"},
		),
		observations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eyereport_observations",
				Help:    "Histograms without a dedicated metric.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface. The operation
// is the stage name.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.stageLatency.WithLabelValues(operation, labelOr(labels, "status", "success")).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricLLMRequests:
		pm.llmRequests.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case MetricLLMTokens:
		pm.llmTokens.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "token_type", "unknown"),
		).Add(value)
	case MetricStageTasks:
		pm.stageTasks.WithLabelValues(
			labelOr(labels, "stage", "unknown"),
			labelOr(labels, "side", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case MetricRunsCompleted:
		pm.runs.WithLabelValues(
			labelOr(labels, "exam_type", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	default:
		pm.operations.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricRunCost:
		pm.runCost.WithLabelValues(
			labelOr(labels, "component", "total"),
			labelOr(labels, "currency", "USD"),
		).Set(value)
	default:
		pm.stateGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricLLMLatency:
		pm.llmLatency.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Observe(value)
	default:
		pm.observations.WithLabelValues(metric).Observe(value)
	}
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
