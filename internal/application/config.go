package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// Environment variables that override the configured model specs.
const (
	EnvDescriptionModel = "EYEREPORT_DESCRIPTION_MODEL"
	EnvReasoningModel   = "EYEREPORT_REASONING_MODEL"
)

// DefaultModel is the provider/model spec used for both stages when the
// configuration names none.
const DefaultModel = "openai/gpt-4o"

// Config is the complete runtime configuration of a report run.
// Use LoadConfig to obtain a validated instance with defaults applied.
type Config struct {
	// Models selects the provider/model for each stage.
	Models ModelsConfig `yaml:"models" validate:"required"`
	// Prompts replaces the built-in prompts when non-empty.
	Prompts PromptsConfig `yaml:"prompts"`
	// Rates is the pricing table used for cost accounting.
	Rates domain.Rates `yaml:"rates" validate:"required"`
	// LayoutsFile points at a YAML layouts file. Empty means built-in
	// layouts only.
	LayoutsFile string `yaml:"layouts_file"`
	// DefaultExamType is used when a run request names no exam type.
	DefaultExamType domain.ExamType `yaml:"default_exam_type" validate:"omitempty,examtype"`
	// Concurrency bounds the analysis fan-out.
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	// Sampling holds the sampling parameters sent with every call.
	Sampling SamplingConfig `yaml:"sampling"`
	// LLM configures the client middleware chain.
	LLM LLMConfig `yaml:"llm"`
}

// ModelsConfig names the vision model that describes images and the
// reasoning model that synthesizes reports.
type ModelsConfig struct {
	Description string `yaml:"description" validate:"required,modelspec"`
	Reasoning   string `yaml:"reasoning" validate:"required,modelspec"`
}

// PromptsConfig holds caller-supplied prompts. Empty values fall back to
// the built-in prompts.
type PromptsConfig struct {
	Right     string `yaml:"right" validate:"max=20000"`
	Left      string `yaml:"left" validate:"max=20000"`
	Synthesis string `yaml:"synthesis" validate:"max=20000"`
}

// ConcurrencyConfig bounds parallelism.
type ConcurrencyConfig struct {
	// MaxAnalysis caps concurrent description calls; 0 runs every image
	// at once.
	MaxAnalysis int `yaml:"max_analysis" validate:"min=0,max=64"`
}

// SamplingConfig mirrors inference.Params.
type SamplingConfig struct {
	MaxTokens        int     `yaml:"max_tokens" validate:"min=1,max=16384"`
	Temperature      float64 `yaml:"temperature" validate:"min=0,max=2"`
	TopP             float64 `yaml:"top_p" validate:"min=0,max=1"`
	FrequencyPenalty float64 `yaml:"frequency_penalty" validate:"min=-2,max=2"`
	PresencePenalty  float64 `yaml:"presence_penalty" validate:"min=-2,max=2"`
}

// LLMConfig configures the middleware applied to every provider client.
type LLMConfig struct {
	// Timeout bounds a single request; 0 disables the timeout.
	Timeout        time.Duration        `yaml:"timeout" validate:"min=0s,max=10m"`
	Retry          RetryConfig          `yaml:"retry"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig configures exponential backoff for transient failures.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt;
	// 0 disables retries.
	MaxRetries int           `yaml:"max_retries" validate:"min=0,max=10"`
	BaseDelay  time.Duration `yaml:"base_delay" validate:"min=0s"`
	MaxDelay   time.Duration `yaml:"max_delay" validate:"gtefield=BaseDelay"`
}

// RateLimitConfig configures the shared token bucket. A zero rate
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	Burst             int     `yaml:"burst" validate:"min=0"`
}

// CircuitBreakerConfig configures the breaker. Zero MaxFailures disables it.
type CircuitBreakerConfig struct {
	MaxFailures int           `yaml:"max_failures" validate:"min=0,max=1000"`
	Cooldown    time.Duration `yaml:"cooldown" validate:"min=0s"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Models: ModelsConfig{
			Description: DefaultModel,
			Reasoning:   DefaultModel,
		},
		Rates:           domain.DefaultRates(),
		DefaultExamType: domain.ExamOCTMacula,
		Sampling: SamplingConfig{
			MaxTokens:   800,
			Temperature: 0.2,
			TopP:        0.95,
		},
		LLM: LLMConfig{
			Timeout: 60 * time.Second,
			Retry: RetryConfig{
				MaxRetries: 2,
				BaseDelay:  500 * time.Millisecond,
				MaxDelay:   5 * time.Second,
			},
			RateLimit: RateLimitConfig{RequestsPerSecond: 5, Burst: 10},
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures: 5,
				Cooldown:    30 * time.Second,
			},
		},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// (skipped when path is empty) and environment overrides, then validates
// it. Failures are returned as *ports.ConfigError.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, ports.NewConfigError(path, fmt.Errorf("%w: %v", ports.ErrConfigNotFound, err))
			}
			return Config{}, ports.NewConfigError(path, err)
		}
		if err := decodeConfig(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, ports.NewConfigError(path, err)
		}

		// Relative layout paths resolve against the config file.
		if cfg.LayoutsFile != "" && !filepath.IsAbs(cfg.LayoutsFile) {
			cfg.LayoutsFile = filepath.Join(filepath.Dir(path), cfg.LayoutsFile)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFromReader overlays YAML read from r onto the defaults and
// validates the result. Environment overrides are not applied.
func LoadConfigFromReader(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := decodeConfig(r, &cfg); err != nil {
		return Config{}, ports.NewConfigError("reader", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeConfig uses strict decoding so that misspelled keys are rejected.
// An empty document leaves cfg unchanged.
func decodeConfig(r io.Reader, cfg *Config) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("YAML decode failed: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvDescriptionModel); v != "" {
		cfg.Models.Description = v
	}
	if v := os.Getenv(EnvReasoningModel); v != "" {
		cfg.Models.Reasoning = v
	}
}

// Validate checks struct constraints. Failures are returned as
// *ports.ConfigError naming the first offending field.
func (c Config) Validate() error {
	v, err := newConfigValidator()
	if err != nil {
		return ports.NewConfigError("validator", err)
	}

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return ports.NewConfigError(verrs[0].Namespace(), fmt.Errorf("%w: %v", ports.ErrInvalidConfig, err))
		}
		return ports.NewConfigError("config", fmt.Errorf("%w: %v", ports.ErrInvalidConfig, err))
	}
	return nil
}

func newConfigValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return v, nil
}
