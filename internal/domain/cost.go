package domain

import (
	"fmt"
	"math"
)

// tokensPerMillion is the unit that rates are quoted in.
const tokensPerMillion = 1_000_000

// Default per-million-token rates, in Rates.Currency.
const (
	DefaultInputRate       = 2.5
	DefaultCachedInputRate = 1.25
	DefaultOutputRate      = 10.0
	DefaultCurrency        = "USD"
)

// TokenUsage is the raw usage metadata returned with one inference response.
// Estimated is set when the service reported no counts and they were
// approximated locally; such usage was not billed as shown.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CachedTokens     int64 `json:"cached_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	Estimated        bool  `json:"estimated,omitempty"`
}

// Rates are prices per million tokens.
type Rates struct {
	Input       float64 `yaml:"input" json:"input" validate:"min=0"`
	CachedInput float64 `yaml:"cached_input" json:"cached_input" validate:"min=0"`
	Output      float64 `yaml:"output" json:"output" validate:"min=0"`
	Currency    string  `yaml:"currency" json:"currency" validate:"omitempty,len=3,uppercase"`
}

// DefaultRates returns the standard pricing table.
func DefaultRates() Rates {
	return Rates{
		Input:       DefaultInputRate,
		CachedInput: DefaultCachedInputRate,
		Output:      DefaultOutputRate,
		Currency:    DefaultCurrency,
	}
}

// CostBreakdown is the price of one inference call. Every component is
// rounded to three decimals on its own, so TotalCost equals the sum of the
// components only up to that rounding.
type CostBreakdown struct {
	InputCost       float64 `json:"input_cost"`
	CachedInputCost float64 `json:"cached_input_cost"`
	OutputCost      float64 `json:"output_cost"`
	TotalCost       float64 `json:"total_cost"`
	// Estimated marks a price computed from estimated usage.
	Estimated bool `json:"estimated,omitempty"`
}

// ComputeCost prices usage at rates. Prompt tokens not served from cache
// are billed at the input rate; the non-cached count is clamped at zero so
// inconsistent metadata (cached > prompt) never yields a negative cost.
func ComputeCost(usage TokenUsage, rates Rates) CostBreakdown {
	prompt := max(usage.PromptTokens, 0)
	cached := max(usage.CachedTokens, 0)
	completion := max(usage.CompletionTokens, 0)
	nonCached := max(prompt-cached, 0)

	input := round3(float64(nonCached) / tokensPerMillion * rates.Input)
	cachedInput := round3(float64(cached) / tokensPerMillion * rates.CachedInput)
	output := round3(float64(completion) / tokensPerMillion * rates.Output)

	return CostBreakdown{
		InputCost:       input,
		CachedInputCost: cachedInput,
		OutputCost:      output,
		TotalCost:       round3(input + cachedInput + output),
		Estimated:       usage.Estimated,
	}
}

// Summary formats the breakdown as a currency-labelled mapping for display.
func (c CostBreakdown) Summary(currency string) map[string]string {
	if currency == "" {
		currency = DefaultCurrency
	}
	label := func(field string) string { return fmt.Sprintf("%s (%s)", field, currency) }
	return map[string]string{
		label("input_cost"):        fmt.Sprintf("%.3f", c.InputCost),
		label("cached_input_cost"): fmt.Sprintf("%.3f", c.CachedInputCost),
		label("output_cost"):       fmt.Sprintf("%.3f", c.OutputCost),
		label("total_cost"):        fmt.Sprintf("%.3f", c.TotalCost),
	}
}

// AggregateCost is the running sum of the breakdowns produced during one
// run. It is a value type: Add and Merge return a new total and never
// mutate the receiver, so it can only be folded after a join.
type AggregateCost struct {
	CostBreakdown
	// Calls counts the inference calls that contributed to the total.
	Calls int `json:"calls"`
	// EstimatedCalls counts the calls among Calls priced from estimated
	// usage. The embedded Estimated flag is set whenever it is non-zero.
	EstimatedCalls int `json:"estimated_calls"`
}

// Add returns a + c.
func (a AggregateCost) Add(c CostBreakdown) AggregateCost {
	out := AggregateCost{
		CostBreakdown: CostBreakdown{
			InputCost:       round3(a.InputCost + c.InputCost),
			CachedInputCost: round3(a.CachedInputCost + c.CachedInputCost),
			OutputCost:      round3(a.OutputCost + c.OutputCost),
			TotalCost:       round3(a.TotalCost + c.TotalCost),
		},
		Calls:          a.Calls + 1,
		EstimatedCalls: a.EstimatedCalls,
	}
	if c.Estimated {
		out.EstimatedCalls++
	}
	out.Estimated = out.EstimatedCalls > 0
	return out
}

// Merge returns the sum of two aggregates.
func (a AggregateCost) Merge(o AggregateCost) AggregateCost {
	out := AggregateCost{
		CostBreakdown: CostBreakdown{
			InputCost:       round3(a.InputCost + o.InputCost),
			CachedInputCost: round3(a.CachedInputCost + o.CachedInputCost),
			OutputCost:      round3(a.OutputCost + o.OutputCost),
			TotalCost:       round3(a.TotalCost + o.TotalCost),
		},
		Calls:          a.Calls + o.Calls,
		EstimatedCalls: a.EstimatedCalls + o.EstimatedCalls,
	}
	out.Estimated = out.EstimatedCalls > 0
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
