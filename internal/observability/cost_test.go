package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Conceptual-Machines/microgenre-api/internal/llm"
)

func TestLookupPricing(t *testing.T) {
	tests := []struct {
		model     string
		wantKnown bool
		want      ModelPricing
	}{
		{"gpt-4o-mini", true, PricingTable["gpt-4o-mini"]},
		{"gpt-4o-mini-2024-07-18", true, PricingTable["gpt-4o-mini"]},
		{"gpt-4o-2024-08-06", true, PricingTable["gpt-4o"]},
		{"gemini-2.5-flash-001", true, PricingTable["gemini-2.5-flash"]},
		{"some-local-model", false, PricingTable[fallbackModel]},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, known := LookupPricing(tt.model)
			assert.Equal(t, tt.wantKnown, known)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateCost(t *testing.T) {
	usage := llm.Usage{InputTokens: 2000, OutputTokens: 1000, TotalTokens: 3000}

	// 2 * 0.00015 + 1 * 0.0006
	assert.InDelta(t, 0.0009, CalculateCost("gpt-4o-mini", usage), 1e-9)
	assert.InDelta(t, 0.0, CalculateCost("gpt-4o-mini", llm.Usage{}), 1e-9)
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "$0.000900", FormatCost(0.0009))
}

func TestLangfuse_DisabledIsNoop(t *testing.T) {
	client := InitializeLangfuse(context.Background(), LangfuseSettings{Enabled: false})
	assert.False(t, client.IsEnabled())

	trace := client.StartTrace(context.Background(), "genre.generate", nil)
	assert.False(t, trace.Enabled())

	gen := trace.Generation("llm", nil)
	assert.NotPanics(t, func() {
		gen.LogGeneration("gpt-4o-mini", nil, "{}", llm.Usage{TotalTokens: 1}, nil)
		gen.SetLevel("ERROR")
		gen.Finish()
		trace.Finish()
		client.Flush()
	})

	assert.False(t, GetClient().IsEnabled())
}
