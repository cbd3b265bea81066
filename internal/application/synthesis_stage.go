package application

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// SynthesisInput is the per-eye work of one run.
type SynthesisInput struct {
	Right    domain.DescriptionSet
	Left     domain.DescriptionSet
	ExamType domain.ExamType
	Prompt   string
	Layout   string
	Model    string
}

// SynthesisOutput holds one report per eye and the summed cost of the
// synthesis calls that returned.
type SynthesisOutput struct {
	Right domain.EyeReport
	Left  domain.EyeReport
	Cost  domain.AggregateCost
}

// SynthesisStage produces both eyes' reports concurrently.
type SynthesisStage struct {
	client ports.InferenceClient
	rates  domain.Rates
	opts   options
}

// NewSynthesisStage creates a SynthesisStage.
func NewSynthesisStage(client ports.InferenceClient, rates domain.Rates, opts ...Option) *SynthesisStage {
	return &SynthesisStage{client: client, rates: rates, opts: buildOptions(opts)}
}

// Run launches exactly two tasks and waits for both. Costs are folded
// right then left.
func (s *SynthesisStage) Run(ctx context.Context, in SynthesisInput) SynthesisOutput {
	sets := [2]domain.DescriptionSet{in.Right, in.Left}
	sides := [2]domain.EyeSide{domain.EyeRight, domain.EyeLeft}
	var reports [2]domain.EyeReport

	var g errgroup.Group
	for i := range sets {
		g.Go(func() error {
			reports[i] = s.synthesize(ctx, sides[i], sets[i], in)
			return nil
		})
	}
	_ = g.Wait()

	out := SynthesisOutput{Right: reports[0], Left: reports[1]}
	for _, r := range reports {
		if !r.Failed() {
			out.Cost = out.Cost.Add(r.Cost)
		}
	}
	return out
}

func (s *SynthesisStage) synthesize(ctx context.Context, side domain.EyeSide, set domain.DescriptionSet, in SynthesisInput) domain.EyeReport {
	report := domain.EyeReport{Side: side}
	defer func() { s.opts.recordTask("synthesis", side.String(), report.Err) }()

	texts := set.Texts()
	if len(texts) == 0 {
		report.Err = domain.ErrNoDescriptions
		s.opts.logger.WarnContext(ctx, "skipping synthesis",
			slog.String("side", side.String()),
			slog.Int("failed_images", len(set.Failed())),
			slog.Any("error", report.Err),
		)
		return report
	}

	completion, err := s.client.Synthesize(ctx, ports.SynthesisRequest{
		Descriptions: texts,
		ExamType:     in.ExamType,
		Prompt:       in.Prompt,
		Layout:       in.Layout,
		Model:        in.Model,
	})
	if err != nil {
		report.Err = err
		s.opts.logger.WarnContext(ctx, "report synthesis failed",
			slog.String("side", side.String()),
			slog.Any("error", err),
		)
		return report
	}

	report.Result = ParseReport(completion.Text)
	report.Cost = domain.ComputeCost(completion.Usage, s.rates)
	if report.Result.IsError() {
		s.opts.logger.WarnContext(ctx, "report output was not valid JSON",
			slog.String("side", side.String()),
			slog.String("reason", report.Result.ErrorReport.Error),
		)
	}
	return report
}
