package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-eyereport/internal/application"
	"github.com/ahrav/go-eyereport/internal/domain"
)

type generateFlags struct {
	right            []string
	left             []string
	examType         string
	rightPromptFile  string
	leftPromptFile   string
	synthesisFile    string
	descriptionModel string
	reasoningModel   string
	user             string
	jsonOutput       bool
	metricsFile      string
}

func (a *app) generateCommand() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one report per eye from exam images",
		Long: `Describes every image with the description model, then synthesizes one
report per eye with the reasoning model. Both eyes need at least one image.

Failed images and eyes do not abort the run; they are reported inline and the
run is marked degraded.`,
		Example: `  # OCT of both eyes with the default layout
  eyereport generate --right od1.png,od2.png --left oe1.png --exam-type oct_macula

  # JSON output, custom synthesis prompt
  eyereport generate --right od.jpg --left oe.jpg --json --synthesis-prompt-file laudo.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&f.right, "right", nil, "comma-separated right eye (OD) image paths")
	flags.StringSliceVar(&f.left, "left", nil, "comma-separated left eye (OS) image paths")
	flags.StringVarP(&f.examType, "exam-type", "e", "", "exam type tag (defaults to the configured exam type)")
	flags.StringVar(&f.rightPromptFile, "right-prompt-file", "", "file holding the right eye description prompt")
	flags.StringVar(&f.leftPromptFile, "left-prompt-file", "", "file holding the left eye description prompt")
	flags.StringVar(&f.synthesisFile, "synthesis-prompt-file", "", "file holding the synthesis prompt")
	flags.StringVar(&f.descriptionModel, "description-model", "", "provider/model for image descriptions")
	flags.StringVar(&f.reasoningModel, "reasoning-model", "", "provider/model for report synthesis")
	flags.StringVar(&f.user, "user", "", "caller identity recorded in logs")
	flags.BoolVar(&f.jsonOutput, "json", false, "print the full result as JSON")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file after the run")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, f generateFlags) error {
	for _, spec := range []string{f.descriptionModel, f.reasoningModel} {
		if spec != "" && !application.ValidModelSpec(spec) {
			return fmt.Errorf("invalid model spec %q: want provider or provider/model", spec)
		}
	}

	req := application.RunRequest{
		ExamType:         domain.ExamType(f.examType),
		DescriptionModel: f.descriptionModel,
		ReasoningModel:   f.reasoningModel,
	}

	var err error
	if req.RightPrompt, err = readOptional(f.rightPromptFile); err != nil {
		return err
	}
	if req.LeftPrompt, err = readOptional(f.leftPromptFile); err != nil {
		return err
	}
	if req.SynthesisPrompt, err = readOptional(f.synthesisFile); err != nil {
		return err
	}

	right, closeRight, err := openImages(domain.EyeRight, f.right)
	if err != nil {
		return err
	}
	defer closeRight()
	left, closeLeft, err := openImages(domain.EyeLeft, f.left)
	if err != nil {
		return err
	}
	defer closeLeft()
	req.Right, req.Left = right, left

	orch, err := a.newOrchestrator()
	if err != nil {
		return err
	}

	result, err := orch.Run(cmd.Context(), application.NewSession(f.user, nil), req)
	if err != nil {
		return err
	}

	if f.metricsFile != "" {
		if err := prometheus.WriteToTextfile(f.metricsFile, a.registry); err != nil {
			a.logger.Warn("failed to write metrics file", slog.String("path", f.metricsFile), slog.Any("error", err))
		}
	}

	if f.jsonOutput {
		return renderJSON(a.stdout, result)
	}
	return renderText(a.stdout, result)
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return string(data), nil
}

// openImages opens every path as an upload. The encoder reads each file
// once; the returned func closes them all.
func openImages(side domain.EyeSide, paths []string) ([]domain.UploadedImage, func(), error) {
	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	images := make([]domain.UploadedImage, 0, len(paths))
	for _, p := range paths {
		file, err := os.Open(filepath.Clean(p))
		if err != nil {
			closeAll()
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil, fmt.Errorf("%s eye image %q not found", side, p)
			}
			return nil, nil, fmt.Errorf("failed to open %s eye image: %w", side, err)
		}
		files = append(files, file)
		images = append(images, domain.UploadedImage{
			Side:     side,
			Filename: filepath.Base(p),
			Content:  file,
		})
	}
	return images, closeAll, nil
}
