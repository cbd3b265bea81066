package llm

import (
	"sync"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// BaseProvider provides common, thread-safe functionality for all LLM providers,
// primarily for managing the model name.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the name of the model currently configured for the provider.
// It is safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name for the provider.
// It is safe for concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// TokenCounter estimates token counts from text when a provider response
// omits usage data.
type TokenCounter struct {
	// CharactersPerToken represents the average number of characters per token.
	CharactersPerToken float64
	// TokensPerImage is charged for each inline image in a prompt.
	TokensPerImage int64
}

// NewTokenCounter creates a TokenCounter with a default character-per-token
// ratio and a flat per-image charge close to a high-detail 512px tile.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{
		CharactersPerToken: 4.0,
		TokensPerImage:     255,
	}
}

// EstimateTokens calculates an estimated token count for a string of text.
func (tc *TokenCounter) EstimateTokens(text string) int64 {
	if len(text) == 0 {
		return 0
	}
	return int64(float64(len(text)) / tc.CharactersPerToken)
}

// EstimatePromptTokens estimates the prompt size of a message list.
func (tc *TokenCounter) EstimatePromptTokens(messages []ports.ChatMessage) int64 {
	var total int64
	for _, m := range messages {
		for _, p := range m.Parts {
			switch p.Type {
			case ports.PartText:
				total += tc.EstimateTokens(p.Text)
			case ports.PartImage:
				total += tc.TokensPerImage
			}
		}
	}
	return total
}

// Response builds a ports.ChatResponse, falling back to estimates for
// counts the provider did not report. Any estimated count marks the usage
// as Estimated.
func (tc *TokenCounter) Response(text string, prompt, cached, completion int64, messages []ports.ChatMessage) ports.ChatResponse {
	var estimated bool
	if prompt <= 0 {
		prompt = tc.EstimatePromptTokens(messages)
		estimated = true
	}
	if completion <= 0 {
		completion = tc.EstimateTokens(text)
		estimated = true
	}
	cached = max(cached, 0)
	return ports.ChatResponse{
		Text: text,
		Usage: domain.TokenUsage{
			PromptTokens:     prompt,
			CachedTokens:     cached,
			CompletionTokens: completion,
			Estimated:        estimated,
		},
	}
}
