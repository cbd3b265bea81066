// Package inference adapts the generic chat clients of the llm package to
// the two call shapes of the report pipeline: per-image description and
// per-eye synthesis.
package inference

import (
	"context"
	"errors"
	"strings"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// Operation names carried by RemoteServiceError.
const (
	OpDescribeImage = "describe_image"
	OpSynthesize    = "synthesize"
)

// Sampling defaults shared by both call shapes.
const (
	DefaultMaxTokens   = 800
	DefaultTemperature = 0.2
	DefaultTopP        = 0.95
)

// ErrEmptyPrompt is returned when a request carries no prompt text.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Params are the sampling parameters applied to every call.
type Params struct {
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// DefaultParams returns the low-temperature, bounded-output settings used
// for clinical text.
func DefaultParams() Params {
	return Params{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	}
}

// Client implements ports.InferenceClient on top of a ClientResolver.
type Client struct {
	resolver ports.ClientResolver
	params   Params
}

var _ ports.InferenceClient = (*Client)(nil)

// NewClient returns a Client that resolves the model named in each request
// through resolver.
func NewClient(resolver ports.ClientResolver, params Params) *Client {
	return &Client{resolver: resolver, params: params}
}

// DescribeImage sends a system prompt, a single image and an assistant
// priming turn naming the exam type.
func (c *Client) DescribeImage(ctx context.Context, req ports.DescribeRequest) (ports.Completion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return ports.Completion{}, domain.NewRemoteServiceError(OpDescribeImage, req.Model, ErrEmptyPrompt)
	}

	messages := []ports.ChatMessage{
		{Role: ports.RoleSystem, Parts: []ports.ContentPart{ports.TextPart(req.Prompt)}},
		{Role: ports.RoleUser, Parts: []ports.ContentPart{ports.ImagePart(req.Image)}},
		{Role: ports.RoleAssistant, Parts: []ports.ContentPart{ports.TextPart(primingText(req.ExamType.String()))}},
	}
	return c.complete(ctx, OpDescribeImage, req.Model, messages, false)
}

// Synthesize sends the combined system prompt and the eye's descriptions,
// asking for a JSON object.
func (c *Client) Synthesize(ctx context.Context, req ports.SynthesisRequest) (ports.Completion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return ports.Completion{}, domain.NewRemoteServiceError(OpSynthesize, req.Model, ErrEmptyPrompt)
	}

	system := synthesisSystemPrompt(req.Prompt, req.ExamType.String(), req.Layout)
	messages := []ports.ChatMessage{
		{Role: ports.RoleSystem, Parts: []ports.ContentPart{ports.TextPart(system)}},
		{Role: ports.RoleUser, Parts: []ports.ContentPart{ports.TextPart(strings.Join(req.Descriptions, "\n\n"))}},
	}
	return c.complete(ctx, OpSynthesize, req.Model, messages, true)
}

func (c *Client) complete(ctx context.Context, op, spec string, messages []ports.ChatMessage, jsonMode bool) (ports.Completion, error) {
	client, err := c.resolver.GetClient(spec)
	if err != nil {
		return ports.Completion{}, domain.NewRemoteServiceError(op, spec, err)
	}

	temp, topP := c.params.Temperature, c.params.TopP
	freq, pres := c.params.FrequencyPenalty, c.params.PresencePenalty
	resp, err := client.Complete(ctx, ports.ChatRequest{
		Messages:         messages,
		MaxTokens:        c.params.MaxTokens,
		Temperature:      &temp,
		TopP:             &topP,
		FrequencyPenalty: &freq,
		PresencePenalty:  &pres,
		JSONMode:         jsonMode,
	})
	if err != nil {
		return ports.Completion{}, domain.NewRemoteServiceError(op, spec, err)
	}

	return ports.Completion{Text: resp.Text, Usage: resp.Usage}, nil
}
