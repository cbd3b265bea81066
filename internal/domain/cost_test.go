package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCost(t *testing.T) {
	tests := []struct {
		name  string
		usage TokenUsage
		want  CostBreakdown
	}{
		{
			name:  "reference usage",
			usage: TokenUsage{PromptTokens: 1000, CachedTokens: 200, CompletionTokens: 100},
			want:  CostBreakdown{InputCost: 0.002, CachedInputCost: 0, OutputCost: 0.001, TotalCost: 0.003},
		},
		{
			name:  "large usage",
			usage: TokenUsage{PromptTokens: 120_000, CachedTokens: 40_000, CompletionTokens: 8_000},
			want:  CostBreakdown{InputCost: 0.2, CachedInputCost: 0.05, OutputCost: 0.08, TotalCost: 0.33},
		},
		{
			name:  "zero usage",
			usage: TokenUsage{},
			want:  CostBreakdown{},
		},
		{
			name:  "cached exceeds prompt",
			usage: TokenUsage{PromptTokens: 100, CachedTokens: 4000, CompletionTokens: 0},
			want:  CostBreakdown{InputCost: 0, CachedInputCost: 0.005, OutputCost: 0, TotalCost: 0.005},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCost(tt.usage, DefaultRates())
			assert.InDelta(t, tt.want.InputCost, got.InputCost, 1e-9)
			assert.InDelta(t, tt.want.CachedInputCost, got.CachedInputCost, 1e-9)
			assert.InDelta(t, tt.want.OutputCost, got.OutputCost, 1e-9)
			assert.InDelta(t, tt.want.TotalCost, got.TotalCost, 1e-9)
		})
	}
}

func TestComputeCost_TotalWithinRoundingOfComponents(t *testing.T) {
	for prompt := int64(0); prompt <= 50_000; prompt += 1237 {
		for _, cached := range []int64{0, prompt / 3, prompt, prompt + 500} {
			for _, completion := range []int64{0, 77, 4321} {
				c := ComputeCost(TokenUsage{PromptTokens: prompt, CachedTokens: cached, CompletionTokens: completion}, DefaultRates())
				assert.InDelta(t, c.InputCost+c.CachedInputCost+c.OutputCost, c.TotalCost, 0.001)
			}
		}
	}
}

func TestComputeCost_NeverNegative(t *testing.T) {
	usages := []TokenUsage{
		{PromptTokens: 10, CachedTokens: 1_000_000, CompletionTokens: 5},
		{PromptTokens: -50, CachedTokens: 20, CompletionTokens: -1},
		{PromptTokens: 0, CachedTokens: -10, CompletionTokens: 0},
	}
	for _, u := range usages {
		c := ComputeCost(u, DefaultRates())
		assert.GreaterOrEqual(t, c.InputCost, 0.0)
		assert.GreaterOrEqual(t, c.CachedInputCost, 0.0)
		assert.GreaterOrEqual(t, c.OutputCost, 0.0)
		assert.GreaterOrEqual(t, c.TotalCost, 0.0)
	}
}

func TestAggregateCost(t *testing.T) {
	call := ComputeCost(TokenUsage{PromptTokens: 1000, CachedTokens: 200, CompletionTokens: 100}, DefaultRates())

	var agg AggregateCost
	for i := 0; i < 4; i++ {
		agg = agg.Add(call)
	}

	assert.Equal(t, 4, agg.Calls)
	assert.InDelta(t, 0.012, agg.TotalCost, 1e-9)
	assert.InDelta(t, 0.008, agg.InputCost, 1e-9)
	assert.InDelta(t, 0.004, agg.OutputCost, 1e-9)

	merged := agg.Merge(AggregateCost{}.Add(call))
	assert.Equal(t, 5, merged.Calls)
	assert.InDelta(t, 0.015, merged.TotalCost, 1e-9)
	assert.Equal(t, 4, agg.Calls, "Merge must not mutate the receiver")
}

func TestAggregateCost_EstimatedUsage(t *testing.T) {
	usage := TokenUsage{PromptTokens: 1000, CachedTokens: 200, CompletionTokens: 100}
	billed := ComputeCost(usage, DefaultRates())
	usage.Estimated = true
	guessed := ComputeCost(usage, DefaultRates())

	assert.False(t, billed.Estimated)
	assert.True(t, guessed.Estimated)
	assert.Equal(t, billed.TotalCost, guessed.TotalCost)

	agg := AggregateCost{}.Add(billed)
	assert.False(t, agg.Estimated)
	assert.Zero(t, agg.EstimatedCalls)

	agg = agg.Add(guessed)
	assert.True(t, agg.Estimated)
	assert.Equal(t, 1, agg.EstimatedCalls)

	merged := AggregateCost{}.Add(billed).Merge(agg)
	assert.Equal(t, 3, merged.Calls)
	assert.Equal(t, 1, merged.EstimatedCalls)
	assert.True(t, merged.Estimated)
}

func TestCostBreakdown_Summary(t *testing.T) {
	c := CostBreakdown{InputCost: 0.002, CachedInputCost: 0, OutputCost: 0.001, TotalCost: 0.003}

	summary := c.Summary("BRL")
	assert.Equal(t, "0.002", summary["input_cost (BRL)"])
	assert.Equal(t, "0.000", summary["cached_input_cost (BRL)"])
	assert.Equal(t, "0.001", summary["output_cost (BRL)"])
	assert.Equal(t, "0.003", summary["total_cost (BRL)"])
	assert.Len(t, summary, 4)

	assert.Contains(t, c.Summary(""), "total_cost (USD)")
}
