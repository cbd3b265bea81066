package application

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// AnalysisInput is the per-image work of one run.
type AnalysisInput struct {
	Right       []domain.UploadedImage
	Left        []domain.UploadedImage
	RightPrompt string
	LeftPrompt  string
	ExamType    domain.ExamType
	Model       string
}

// AnalysisOutput holds one DescriptionSet per eye, in upload order, and
// the summed cost of the successful description calls.
type AnalysisOutput struct {
	Right domain.DescriptionSet
	Left  domain.DescriptionSet
	Cost  domain.AggregateCost
}

// AnalysisStage describes every image of both eyes concurrently.
type AnalysisStage struct {
	client  ports.InferenceClient
	encoder ports.ImageEncoder
	rates   domain.Rates
	opts    options
}

// NewAnalysisStage creates an AnalysisStage.
func NewAnalysisStage(client ports.InferenceClient, encoder ports.ImageEncoder, rates domain.Rates, opts ...Option) *AnalysisStage {
	return &AnalysisStage{
		client:  client,
		encoder: encoder,
		rates:   rates,
		opts:    buildOptions(opts),
	}
}

type analysisTask struct {
	side   domain.EyeSide
	index  int
	image  domain.UploadedImage
	prompt string
}

// Run launches one task per image in a single pool and waits for all of
// them. A failed task never cancels its siblings; it keeps its slot with
// Err set.
func (s *AnalysisStage) Run(ctx context.Context, in AnalysisInput) AnalysisOutput {
	tasks := make([]analysisTask, 0, len(in.Right)+len(in.Left))
	for i, img := range in.Right {
		tasks = append(tasks, analysisTask{side: domain.EyeRight, index: i, image: img, prompt: in.RightPrompt})
	}
	for i, img := range in.Left {
		tasks = append(tasks, analysisTask{side: domain.EyeLeft, index: i, image: img, prompt: in.LeftPrompt})
	}

	// Each task owns exactly one slot.
	results := make([]domain.AnalysisResult, len(tasks))

	var g errgroup.Group
	if s.opts.maxConcurrency > 0 {
		g.SetLimit(s.opts.maxConcurrency)
	}
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = s.describe(ctx, task, in)
			return nil
		})
	}
	_ = g.Wait()

	out := AnalysisOutput{
		Right: domain.DescriptionSet{Side: domain.EyeRight, Entries: make([]domain.AnalysisResult, 0, len(in.Right))},
		Left:  domain.DescriptionSet{Side: domain.EyeLeft, Entries: make([]domain.AnalysisResult, 0, len(in.Left))},
	}
	for _, r := range results {
		if r.Side == domain.EyeRight {
			out.Right.Entries = append(out.Right.Entries, r)
		} else {
			out.Left.Entries = append(out.Left.Entries, r)
		}
		if !r.Failed() {
			out.Cost = out.Cost.Add(r.Cost)
		}
	}
	return out
}

func (s *AnalysisStage) describe(ctx context.Context, task analysisTask, in AnalysisInput) domain.AnalysisResult {
	result := domain.AnalysisResult{
		Side:     task.side,
		Index:    task.index,
		Filename: task.image.Filename,
	}
	defer func() { s.opts.recordTask("analysis", task.side.String(), result.Err) }()

	image, err := s.encoder.Encode(task.image)
	if err != nil {
		result.Err = err
		s.warn(ctx, task, err)
		return result
	}

	completion, err := s.client.DescribeImage(ctx, ports.DescribeRequest{
		Image:    image,
		ExamType: in.ExamType,
		Prompt:   task.prompt,
		Model:    in.Model,
	})
	if err != nil {
		result.Err = err
		s.warn(ctx, task, err)
		return result
	}

	result.Description = completion.Text
	result.Cost = domain.ComputeCost(completion.Usage, s.rates)
	return result
}

func (s *AnalysisStage) warn(ctx context.Context, task analysisTask, err error) {
	s.opts.logger.WarnContext(ctx, "image analysis failed",
		slog.String("side", task.side.String()),
		slog.Int("index", task.index),
		slog.String("filename", task.image.Filename),
		slog.Any("error", err),
	)
}
