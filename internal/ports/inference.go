package ports

import (
	"context"

	"github.com/ahrav/go-eyereport/internal/domain"
)

// ChatRole is the author of a chat message.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// PartType discriminates the content of a ContentPart.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// ContentPart is one typed piece of a message: text or an image reference.
type ContentPart struct {
	Type  PartType
	Text  string
	Image *domain.InlineImageData
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart { return ContentPart{Type: PartText, Text: text} }

// ImagePart builds an image content part.
func ImagePart(img domain.InlineImageData) ContentPart {
	return ContentPart{Type: PartImage, Image: &img}
}

// ChatMessage is one message of an exchange.
type ChatMessage struct {
	Role  ChatRole
	Parts []ContentPart
}

// Text concatenates the message's text parts.
func (m ChatMessage) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// ChatRequest is a single, non-streaming request to a chat model.
// Nil sampling fields mean "provider default".
type ChatRequest struct {
	// Model overrides the client's configured model when non-empty.
	Model            string
	Messages         []ChatMessage
	MaxTokens        int
	Temperature      *float64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	// JSONMode asks the service to constrain output to a JSON object.
	JSONMode bool
}

// ChatResponse is the generated text plus usage counters.
type ChatResponse struct {
	Text  string
	Usage domain.TokenUsage
}

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends one blocking request/response cycle to the provider.
	// The implementation should handle rate limiting, retries, and timeouts.
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// GetModel returns the model identifier being used by this client.
	GetModel() string
}

// ClientResolver returns the client serving a "provider/model" spec.
type ClientResolver interface {
	GetClient(spec string) (LLMClient, error)
}

// Completion is the raw result of an InferenceClient operation.
type Completion struct {
	Text  string
	Usage domain.TokenUsage
}

// DescribeRequest asks for a description of one image.
type DescribeRequest struct {
	Image    domain.InlineImageData
	ExamType domain.ExamType
	Prompt   string
	Model    string
}

// SynthesisRequest asks for one eye's structured report.
type SynthesisRequest struct {
	// Descriptions are the eye's successful image descriptions, in order.
	Descriptions []string
	ExamType     domain.ExamType
	Prompt       string
	Layout       string
	Model        string
}

// InferenceClient wraps the two call shapes the pipeline issues against the
// language-model endpoint. Both return *domain.RemoteServiceError when the
// underlying call errors or times out.
type InferenceClient interface {
	DescribeImage(ctx context.Context, req DescribeRequest) (Completion, error)
	Synthesize(ctx context.Context, req SynthesisRequest) (Completion, error)
}
