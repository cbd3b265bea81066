// Package cli implements the eyereport command line: a root command that
// loads configuration and sets up logging, and subcommands that generate
// reports and inspect layouts.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-eyereport/internal/application"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// InferenceFactory builds the inference client for a loaded configuration.
type InferenceFactory func(cfg application.Config, metrics ports.MetricsCollector) (ports.InferenceClient, error)

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgFile   string
	logFormat string
	logLevel  string

	stdout io.Writer
	stderr io.Writer

	cfg      application.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	newInference InferenceFactory
}

// Option customizes the command tree, mostly for tests.
type Option func(*app)

// WithOutput redirects command output and log records.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *app) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithInferenceFactory replaces the provider-backed inference client.
func WithInferenceFactory(f InferenceFactory) Option {
	return func(a *app) { a.newInference = f }
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		registry:     prometheus.NewRegistry(),
		newInference: newInferenceClient,
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "eyereport",
		Short: "Generate dual-eye ophthalmic reports with vision LLMs",
		Long: `eyereport describes every image of both eyes with a vision model, then
synthesizes one structured report per eye from those descriptions using the
layout of the selected exam type.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (defaults are used when empty)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(a.generateCommand(), a.layoutsCommand())
	return root
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(a.stderr, a.logFormat, a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	cfg, err := application.LoadConfig(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	a.logger.Debug("configuration loaded",
		slog.String("path", a.cfgFile),
		slog.String("description_model", cfg.Models.Description),
		slog.String("reasoning_model", cfg.Models.Reasoning),
	)
	return nil
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}
}
