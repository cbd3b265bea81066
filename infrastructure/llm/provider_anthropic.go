package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ahrav/go-eyereport/internal/ports"
)

// Anthropic provider constants
const (
	// AnthropicDefaultModel is the default Anthropic model.
	AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

	// anthropicJSONPrefill opens the assistant turn when JSON output is
	// requested; the API has no response_format switch.
	anthropicJSONPrefill = "{"
)

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider implements the CoreLLM interface for Anthropic's
// messages API with base64 image blocks.
type anthropicProvider struct {
	BaseProvider
	client          anthropic.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// newAnthropicProvider creates a new Anthropic provider instance.
func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key cannot be empty")
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		validatedURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		opts = append(opts, option.WithBaseURL(validatedURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(ValidateTimeout(config.Timeout)))
	}

	return &anthropicProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          anthropic.NewClient(opts...),
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// DoRequest sends a request to Anthropic's messages API.
func (p *anthropicProvider) DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	options, err := normalizeRequest(req, p.GetModel())
	if err != nil {
		return ports.ChatResponse{}, err
	}

	params, prefill := p.buildParams(options)

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ports.ChatResponse{}, p.handleError(err)
	}

	var text strings.Builder
	text.WriteString(prefill)
	for _, block := range message.Content {
		if content, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(content.Text)
		}
	}
	if text.Len() == len(prefill) {
		return ports.ChatResponse{}, ErrEmptyResponse
	}

	usage := message.Usage
	prompt := usage.InputTokens + usage.CacheReadInputTokens + usage.CacheCreationInputTokens
	return p.tokenCounter.Response(
		text.String(),
		prompt,
		usage.CacheReadInputTokens,
		usage.OutputTokens,
		options.Messages,
	), nil
}

// buildParams creates the API request parameters. It returns the assistant
// prefill that must be prepended to the reply, if any.
func (p *anthropicProvider) buildParams(options normalizedRequest) (anthropic.MessageNewParams, string) {
	messages := make([]anthropic.MessageParam, 0, len(options.Messages)+1)
	for _, m := range options.Messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch part.Type {
			case ports.PartText:
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			case ports.PartImage:
				blocks = append(blocks, anthropic.NewImageBlockBase64(part.Image.MIMEType, part.Image.Base64))
			}
		}
		if m.Role == ports.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	var prefill string
	if options.JSONMode && (len(options.Messages) == 0 || options.Messages[len(options.Messages)-1].Role != ports.RoleAssistant) {
		prefill = anthropicJSONPrefill
		messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(prefill)))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.Model),
		MaxTokens: int64(options.MaxTokens),
		Messages:  messages,
	}

	if options.Temperature != nil {
		// Anthropic accepts temperatures up to 1.0.
		params.Temperature = anthropic.Float(ClampFloat64(*options.Temperature, 0, 1))
	}
	if options.TopP != nil {
		params.TopP = anthropic.Float(*options.TopP)
	}
	if options.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: options.System}}
	}

	return params, prefill
}

// handleError classifies Anthropic SDK errors into ProviderError values.
func (p *anthropicProvider) handleError(err error) error {
	if isContextError(err) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return p.errorClassifier.ClassifyHTTPError(apiErr.StatusCode, "request failed", err)
	}

	return NewProviderError("anthropic", ErrorTypeNetwork, 0, "request failed", err)
}
