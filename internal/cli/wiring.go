package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-eyereport/infrastructure/imaging"
	"github.com/ahrav/go-eyereport/infrastructure/inference"
	"github.com/ahrav/go-eyereport/infrastructure/layouts"
	"github.com/ahrav/go-eyereport/infrastructure/llm"
	"github.com/ahrav/go-eyereport/infrastructure/middleware"
	"github.com/ahrav/go-eyereport/internal/application"
	"github.com/ahrav/go-eyereport/internal/ports"
)

const serviceName = "eyereport"

// newInferenceClient routes both stages through a provider registry.
// Middleware order, outermost first: tracing, metrics, retry, circuit
// breaker, rate limit, timeout. Each retry attempt therefore passes the
// breaker and waits for a rate token on its own.
func newInferenceClient(cfg application.Config, metrics ports.MetricsCollector) (ports.InferenceClient, error) {
	mw := []llm.Middleware{
		llm.TracingMiddleware(serviceName),
		llm.MetricsMiddleware(metrics),
	}
	if r := cfg.LLM.Retry; r.MaxRetries > 0 {
		mw = append(mw, llm.RetryMiddleware(r.MaxRetries, r.BaseDelay, r.MaxDelay))
	}
	if cb := cfg.LLM.CircuitBreaker; cb.MaxFailures > 0 {
		mw = append(mw, llm.CircuitBreakerMiddleware(cb.MaxFailures, cb.Cooldown))
	}
	if rl := cfg.LLM.RateLimit; rl.RequestsPerSecond > 0 {
		mw = append(mw, llm.RateLimitMiddleware(rate.Limit(rl.RequestsPerSecond), max(rl.Burst, 1)))
	}
	if cfg.LLM.Timeout > 0 {
		mw = append(mw, llm.TimeoutMiddleware(cfg.LLM.Timeout))
	}

	registry, err := llm.NewRegistry(llm.RegistryConfig{
		Providers:         llm.DefaultProviders,
		DefaultProvider:   providerOf(cfg.Models.Description),
		DefaultTimeout:    cfg.LLM.Timeout,
		DefaultMiddleware: mw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider registry: %w", err)
	}

	for _, spec := range []string{cfg.Models.Description, cfg.Models.Reasoning} {
		if err := registry.ValidateSpec(spec); err != nil {
			return nil, fmt.Errorf("invalid model %q: %w", spec, err)
		}
	}

	return inference.NewClient(registry, inference.Params{
		MaxTokens:        cfg.Sampling.MaxTokens,
		Temperature:      cfg.Sampling.Temperature,
		TopP:             cfg.Sampling.TopP,
		FrequencyPenalty: cfg.Sampling.FrequencyPenalty,
		PresencePenalty:  cfg.Sampling.PresencePenalty,
	}), nil
}

func providerOf(spec string) string {
	provider, _, _ := strings.Cut(spec, "/")
	return provider
}

// newLayoutStore serves the configured layouts file, or the built-in
// layouts when none is configured.
func newLayoutStore(cfg application.Config) (ports.LayoutStore, error) {
	if cfg.LayoutsFile == "" {
		return layouts.NewDefaultStore(), nil
	}
	store, err := layouts.NewFileStore(cfg.LayoutsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open layouts file: %w", err)
	}
	return store, nil
}

// newOrchestrator assembles the pipeline for one invocation.
func (a *app) newOrchestrator() (*application.Orchestrator, error) {
	metrics := middleware.NewPrometheusMetrics(a.registry)

	client, err := a.newInference(a.cfg, metrics)
	if err != nil {
		return nil, err
	}
	store, err := newLayoutStore(a.cfg)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("pipeline assembled",
		slog.String("layouts_file", a.cfg.LayoutsFile),
		slog.Int("max_analysis", a.cfg.Concurrency.MaxAnalysis),
	)

	return application.NewOrchestrator(client, imaging.NewEncoder(), store, a.cfg,
		application.WithLogger(a.logger),
		application.WithMetrics(metrics),
		application.WithStageTimer(middleware.NewStageTimer(metrics, middleware.WithLogger(a.logger))),
	), nil
}
