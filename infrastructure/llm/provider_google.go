package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/ahrav/go-eyereport/internal/ports"
)

// Google provider constants define model names and other provider-specific
// values.
const (
	// GoogleDefaultModel is the default model for the Google provider.
	GoogleDefaultModel = "gemini-2.0-flash"
)

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements the CoreLLM interface for Google's Gemini API.
// Images are sent as inline byte parts and JSON mode maps to the
// application/json response MIME type.
type googleProvider struct {
	BaseProvider
	client          *genai.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// newGoogleProvider creates a new Google Gemini provider instance.
func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	authConfig, err := buildAuthConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to configure authentication: %w", err)
	}

	client, err := genai.NewClient(context.Background(), authConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          client,
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// DoRequest sends a request to the Gemini API and returns the response text
// with usage metadata.
func (p *googleProvider) DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	options, err := normalizeRequest(req, p.GetModel())
	if err != nil {
		return ports.ChatResponse{}, err
	}

	contents, err := p.buildContents(options)
	if err != nil {
		return ports.ChatResponse{}, NewProviderError("google", ErrorTypeBadRequest, 0, "invalid image payload", err)
	}

	resp, err := p.client.Models.GenerateContent(ctx, options.Model, contents, p.buildGenerationConfig(options))
	if err != nil {
		return ports.ChatResponse{}, p.handleError(err)
	}

	content := resp.Text()
	if content == "" {
		return ports.ChatResponse{}, ErrEmptyResponse
	}

	var prompt, cached, completion int64
	if usage := resp.UsageMetadata; usage != nil {
		prompt = int64(usage.PromptTokenCount)
		cached = int64(usage.CachedContentTokenCount)
		completion = int64(usage.CandidatesTokenCount)
	}

	return p.tokenCounter.Response(content, prompt, cached, completion, options.Messages), nil
}

// buildContents maps chat messages onto Gemini contents. Assistant turns
// take the model role.
func (p *googleProvider) buildContents(options normalizedRequest) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(options.Messages))
	for _, m := range options.Messages {
		parts := make([]*genai.Part, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch part.Type {
			case ports.PartText:
				parts = append(parts, genai.NewPartFromText(part.Text))
			case ports.PartImage:
				data, err := part.Image.Bytes()
				if err != nil {
					return nil, err
				}
				parts = append(parts, genai.NewPartFromBytes(data, part.Image.MIMEType))
			}
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == ports.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents, nil
}

// buildGenerationConfig creates the generation configuration for a request.
func (p *googleProvider) buildGenerationConfig(options normalizedRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:      float32Ptr(options.Temperature),
		TopP:             float32Ptr(options.TopP),
		FrequencyPenalty: float32Ptr(options.FrequencyPenalty),
		PresencePenalty:  float32Ptr(options.PresencePenalty),
	}

	if options.MaxTokens > math.MaxInt32 {
		config.MaxOutputTokens = math.MaxInt32
	} else {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}

	if options.System != "" {
		config.SystemInstruction = genai.NewContentFromText(options.System, genai.RoleUser)
	}
	if options.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	return config
}

// handleError provides structured error handling for Google API responses.
func (p *googleProvider) handleError(err error) error {
	if isContextError(err) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}

		if containsContentPolicyError(apiErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code,
				"request blocked by safety filters", err)
		}

		return p.errorClassifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return p.errorClassifier.ClassifyHTTPError(genaiErr.Code, genaiErr.Message, err)
	}

	return NewProviderError("google", ErrorTypeNetwork, 0, "request failed", err)
}

// buildAuthConfig creates the client configuration. Only API keys are
// supported; a credentials file path is rejected with guidance.
func buildAuthConfig(config ClientConfig) (*genai.ClientConfig, error) {
	if looksLikeFilePath(config.APIKey) {
		if _, err := os.Stat(config.APIKey); err != nil {
			return nil, fmt.Errorf("credentials file not found: %s", config.APIKey)
		}
		return nil, fmt.Errorf("service account authentication is not supported; " +
			"use an API key or set GOOGLE_APPLICATION_CREDENTIALS")
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		u, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		cc.HTTPOptions.BaseURL = u
	}
	return cc, nil
}

// looksLikeFilePath reports whether s appears to be a path to a credentials
// file rather than an API key.
func looksLikeFilePath(s string) bool {
	if filepath.IsAbs(s) || strings.ContainsAny(s, `/\`) {
		return true
	}

	lower := strings.ToLower(s)
	return strings.HasSuffix(lower, ".json") ||
		strings.HasSuffix(lower, ".p12") ||
		strings.HasSuffix(lower, ".pem") ||
		strings.Contains(lower, "credentials")
}

// containsContentPolicyError checks if a Google API error is related to
// content policy violations.
func containsContentPolicyError(apiErr *googleapi.Error) bool {
	if apiErr.Message != "" {
		lower := strings.ToLower(apiErr.Message)
		if strings.Contains(lower, "safety") ||
			strings.Contains(lower, "policy") ||
			strings.Contains(lower, "blocked") {
			return true
		}
	}

	for _, e := range apiErr.Errors {
		if e.Reason == "SAFETY" || e.Reason == "BLOCKED" {
			return true
		}
	}

	return false
}
