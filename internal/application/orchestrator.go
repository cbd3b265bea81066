package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-eyereport/infrastructure/inference"
	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// Stage names passed to the StageTimer.
const (
	StageLayout    = "layout"
	StageAnalysis  = "analysis"
	StageSynthesis = "synthesis"
)

// RunRequest is one dual-eye submission. Empty prompts, models and exam
// type fall back to the orchestrator's configuration.
type RunRequest struct {
	Right            []domain.UploadedImage
	Left             []domain.UploadedImage
	ExamType         domain.ExamType
	RightPrompt      string
	LeftPrompt       string
	SynthesisPrompt  string
	DescriptionModel string
	ReasoningModel   string
}

// EyeResult is everything produced for one eye.
type EyeResult struct {
	Descriptions domain.DescriptionSet `json:"descriptions"`
	Report       domain.EyeReport      `json:"report"`
}

// RunResult is the outcome of a run. It may be degraded: failed images and
// eyes are present with their errors.
type RunResult struct {
	RunID    string               `json:"run_id"`
	ExamType domain.ExamType      `json:"exam_type"`
	Right    EyeResult            `json:"right"`
	Left     EyeResult            `json:"left"`
	Cost     domain.AggregateCost `json:"cost"`
	Currency string               `json:"currency"`
	Duration time.Duration        `json:"duration_ns"`
}

// Degraded reports whether any image analysis or eye synthesis failed, or
// a report could not be parsed.
func (r *RunResult) Degraded() bool {
	for _, eye := range []EyeResult{r.Right, r.Left} {
		if len(eye.Descriptions.Failed()) > 0 || eye.Report.Failed() || eye.Report.Result.IsError() {
			return true
		}
	}
	return false
}

// CostSummary renders the aggregate cost with currency-labelled keys.
func (r *RunResult) CostSummary() map[string]string {
	return r.Cost.Summary(r.Currency)
}

// Orchestrator validates a request, resolves its layout, and runs analysis
// then synthesis with a barrier in between.
type Orchestrator struct {
	cfg       Config
	layouts   ports.LayoutStore
	analysis  *AnalysisStage
	synthesis *SynthesisStage
	opts      options
	now       func() time.Time
}

// NewOrchestrator wires both stages around client and encoder. cfg supplies
// default models, prompts, exam type, rates and the analysis concurrency
// cap; WithMaxConcurrency overrides the latter.
func NewOrchestrator(
	client ports.InferenceClient,
	encoder ports.ImageEncoder,
	layouts ports.LayoutStore,
	cfg Config,
	opts ...Option,
) *Orchestrator {
	all := append([]Option{WithMaxConcurrency(cfg.Concurrency.MaxAnalysis)}, opts...)
	o := buildOptions(all)

	return &Orchestrator{
		cfg:       cfg,
		layouts:   layouts,
		analysis:  NewAnalysisStage(client, encoder, cfg.Rates, all...),
		synthesis: NewSynthesisStage(client, cfg.Rates, all...),
		opts:      o,
		now:       time.Now,
	}
}

// Run executes one report run. It returns an error only when the request
// is invalid or the layout cannot be resolved; both happen before any
// remote call. Remote and parse failures are recorded in the result.
func (o *Orchestrator) Run(ctx context.Context, session Session, req RunRequest) (*RunResult, error) {
	if session.RunID == "" {
		session.RunID = uuid.NewString()
	}
	logger := o.opts.logger.With(session.logAttrs())

	req = o.withDefaults(req)
	if err := validateRequest(req); err != nil {
		logger.WarnContext(ctx, "run rejected", slog.Any("error", err))
		return nil, err
	}

	start := o.now()
	logger.InfoContext(ctx, "run started",
		slog.String("exam_type", req.ExamType.String()),
		slog.Int("right_images", len(req.Right)),
		slog.Int("left_images", len(req.Left)),
		slog.String("description_model", req.DescriptionModel),
		slog.String("reasoning_model", req.ReasoningModel),
	)

	var layout string
	err := o.opts.timer.Time(ctx, StageLayout, func(ctx context.Context) error {
		var err error
		layout, err = o.layouts.GetLayout(ctx, req.ExamType)
		return err
	})
	if err != nil {
		logger.ErrorContext(ctx, "layout lookup failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to resolve layout: %w", err)
	}

	var analysis AnalysisOutput
	_ = o.opts.timer.Time(ctx, StageAnalysis, func(ctx context.Context) error {
		analysis = o.analysis.Run(ctx, AnalysisInput{
			Right:       req.Right,
			Left:        req.Left,
			RightPrompt: req.RightPrompt,
			LeftPrompt:  req.LeftPrompt,
			ExamType:    req.ExamType,
			Model:       req.DescriptionModel,
		})
		return nil
	})

	var synthesis SynthesisOutput
	_ = o.opts.timer.Time(ctx, StageSynthesis, func(ctx context.Context) error {
		synthesis = o.synthesis.Run(ctx, SynthesisInput{
			Right:    analysis.Right,
			Left:     analysis.Left,
			ExamType: req.ExamType,
			Prompt:   req.SynthesisPrompt,
			Layout:   layout,
			Model:    req.ReasoningModel,
		})
		return nil
	})

	result := &RunResult{
		RunID:    session.RunID,
		ExamType: req.ExamType,
		Right:    EyeResult{Descriptions: analysis.Right, Report: synthesis.Right},
		Left:     EyeResult{Descriptions: analysis.Left, Report: synthesis.Left},
		Cost:     analysis.Cost.Merge(synthesis.Cost),
		Currency: o.currency(),
		Duration: o.now().Sub(start),
	}

	o.recordRun(result)
	logger.InfoContext(ctx, "run finished",
		slog.Bool("degraded", result.Degraded()),
		slog.Int("calls", result.Cost.Calls),
		slog.Int("estimated_calls", result.Cost.EstimatedCalls),
		slog.Float64("total_cost", result.Cost.TotalCost),
		slog.String("currency", result.Currency),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func (o *Orchestrator) withDefaults(req RunRequest) RunRequest {
	if req.ExamType == "" {
		req.ExamType = o.cfg.DefaultExamType
	}
	req.RightPrompt = firstNonEmpty(req.RightPrompt, o.cfg.Prompts.Right, inference.DefaultEyePrompt)
	req.LeftPrompt = firstNonEmpty(req.LeftPrompt, o.cfg.Prompts.Left, inference.DefaultEyePrompt)
	req.SynthesisPrompt = firstNonEmpty(req.SynthesisPrompt, o.cfg.Prompts.Synthesis, inference.DefaultSynthesisPrompt)
	req.DescriptionModel = firstNonEmpty(req.DescriptionModel, o.cfg.Models.Description, DefaultModel)
	req.ReasoningModel = firstNonEmpty(req.ReasoningModel, o.cfg.Models.Reasoning, DefaultModel)
	return req
}

// validateRequest rejects a request before any work is started.
func validateRequest(req RunRequest) error {
	missing := domain.NewValidationError("RunRequest", domain.ErrMissingImages)
	if len(req.Right) == 0 {
		missing.AddError("right eye has no images")
	}
	if len(req.Left) == 0 {
		missing.AddError("left eye has no images")
	}
	if missing.HasErrors() {
		return missing
	}

	if !req.ExamType.WellFormed() {
		invalid := domain.NewValidationError("RunRequest", domain.ErrInvalidExamType)
		invalid.AddError(fmt.Sprintf("exam type %q is not a lowercase tag", req.ExamType))
		return invalid
	}
	return nil
}

func (o *Orchestrator) currency() string {
	if o.cfg.Rates.Currency == "" {
		return domain.DefaultCurrency
	}
	return o.cfg.Rates.Currency
}

func (o *Orchestrator) recordRun(r *RunResult) {
	if o.opts.metrics == nil {
		return
	}
	status := "success"
	if r.Degraded() {
		status = "degraded"
	}
	o.opts.metrics.RecordCounter(metricRuns, 1, map[string]string{
		"exam_type": r.ExamType.String(),
		"status":    status,
	})
	for component, value := range map[string]float64{
		"input":        r.Cost.InputCost,
		"cached_input": r.Cost.CachedInputCost,
		"output":       r.Cost.OutputCost,
		"total":        r.Cost.TotalCost,
	} {
		o.opts.metrics.RecordGauge(metricRunCost, value, map[string]string{
			"component": component,
			"currency":  r.Currency,
		})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
