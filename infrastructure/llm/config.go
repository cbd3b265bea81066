package llm

import (
	"strings"

	"github.com/ahrav/go-eyereport/internal/ports"
)

// DefaultMaxTokens is used when a request leaves MaxTokens unset.
const DefaultMaxTokens = 1024

// normalizedRequest is a ChatRequest after defaults and range checks, with
// system messages pulled out so each provider can place them where its API
// expects.
type normalizedRequest struct {
	Model            string
	System           string
	Messages         []ports.ChatMessage
	MaxTokens        int
	Temperature      *float64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	JSONMode         bool
}

// normalizeRequest applies the provider's default model and token limit,
// clamps sampling parameters to their valid ranges and joins system
// messages with blank lines.
func normalizeRequest(req ports.ChatRequest, defaultModel string) (normalizedRequest, error) {
	out := normalizedRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		JSONMode:  req.JSONMode,
	}
	if !IsNonEmptyString(out.Model) {
		out.Model = defaultModel
	}
	if !IsPositiveInt(out.MaxTokens) {
		out.MaxTokens = DefaultMaxTokens
	}

	out.Temperature = clampPtr(req.Temperature, MinTemperature, MaxTemperature)
	out.TopP = clampPtr(req.TopP, MinTopP, MaxTopP)
	out.FrequencyPenalty = clampPtr(req.FrequencyPenalty, MinPenalty, MaxPenalty)
	out.PresencePenalty = clampPtr(req.PresencePenalty, MinPenalty, MaxPenalty)

	var system []string
	for _, m := range req.Messages {
		if m.Role == ports.RoleSystem {
			if text := m.Text(); text != "" {
				system = append(system, text)
			}
			continue
		}
		out.Messages = append(out.Messages, m)
	}
	out.System = strings.Join(system, "\n\n")

	if len(out.Messages) == 0 && out.System == "" {
		return normalizedRequest{}, ErrNoMessages
	}
	return out, nil
}

func clampPtr(v *float64, lo, hi float64) *float64 {
	if v == nil {
		return nil
	}
	c := ClampFloat64(*v, lo, hi)
	return &c
}
