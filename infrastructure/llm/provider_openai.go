package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ahrav/go-eyereport/internal/ports"
)

const (
	// OpenAIDefaultModel is used when the client config names no model.
	OpenAIDefaultModel = "gpt-4o"
)

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider implements the CoreLLM interface for OpenAI's chat
// completions API, including image_url content parts and JSON mode.
type openAIProvider struct {
	BaseProvider
	client          *openai.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// newOpenAIProvider creates a new OpenAI provider instance.
func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)

	if config.BaseURL != "" {
		validatedURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = validatedURL
	}

	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{
			Timeout: ValidateTimeout(config.Timeout),
		}
	}

	return &openAIProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          openai.NewClientWithConfig(clientConfig),
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// DoRequest sends a chat completion request and returns the first choice's
// content with prompt, cached and completion token counts.
func (p *openAIProvider) DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	options, err := normalizeRequest(req, p.GetModel())
	if err != nil {
		return ports.ChatResponse{}, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, p.buildChatCompletionRequest(options))
	if err != nil {
		return ports.ChatResponse{}, p.handleError(err)
	}

	if len(resp.Choices) == 0 {
		return ports.ChatResponse{}, ErrNoResponseChoice
	}

	content := resp.Choices[0].Message.Content
	var cached int64
	if resp.Usage.PromptTokensDetails != nil {
		cached = int64(resp.Usage.PromptTokensDetails.CachedTokens)
	}

	return p.tokenCounter.Response(
		content,
		int64(resp.Usage.PromptTokens),
		cached,
		int64(resp.Usage.CompletionTokens),
		options.Messages,
	), nil
}

// buildChatCompletionRequest creates an openai.ChatCompletionRequest from
// normalized options.
func (p *openAIProvider) buildChatCompletionRequest(options normalizedRequest) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:     options.Model,
		Messages:  p.buildMessages(options),
		MaxTokens: options.MaxTokens,
	}

	if options.Temperature != nil {
		req.Temperature = float32(*options.Temperature)
	}
	if options.TopP != nil {
		req.TopP = float32(*options.TopP)
	}
	if options.FrequencyPenalty != nil {
		req.FrequencyPenalty = float32(*options.FrequencyPenalty)
	}
	if options.PresencePenalty != nil {
		req.PresencePenalty = float32(*options.PresencePenalty)
	}
	if options.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

// buildMessages maps chat messages onto OpenAI messages. Messages that carry
// an image use multi-part content; text-only messages use plain content.
func (p *openAIProvider) buildMessages(options normalizedRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(options.Messages)+1)

	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}

	for _, m := range options.Messages {
		msg := openai.ChatCompletionMessage{Role: openAIRole(m.Role)}
		if !hasImage(m) {
			msg.Content = m.Text()
			messages = append(messages, msg)
			continue
		}
		for _, part := range m.Parts {
			switch part.Type {
			case ports.PartText:
				msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: part.Text,
				})
			case ports.PartImage:
				msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    part.Image.DataURL(),
						Detail: openai.ImageURLDetailHigh,
					},
				})
			}
		}
		messages = append(messages, msg)
	}

	return messages
}

func openAIRole(r ports.ChatRole) string {
	switch r {
	case ports.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case ports.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}

func hasImage(m ports.ChatMessage) bool {
	for _, p := range m.Parts {
		if p.Type == ports.PartImage && p.Image != nil {
			return true
		}
	}
	return false
}

// handleError classifies and wraps errors from the OpenAI API.
func (p *openAIProvider) handleError(err error) error {
	if isContextError(err) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return p.errorClassifier.ClassifyHTTPError(reqErr.HTTPStatusCode, "request failed", err)
	}

	return NewProviderError("openai", ErrorTypeNetwork, 0, "request failed", err)
}
