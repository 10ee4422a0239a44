package observability

import (
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/microgenre-api/internal/llm"
)

const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6

	fallbackModel = "gpt-4o-mini"
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for all models
var PricingTable = map[string]ModelPricing{
	"gpt-4o":           {InputPricePer1K: 0.0025, OutputPricePer1K: 0.01},
	"gpt-4o-mini":      {InputPricePer1K: 0.00015, OutputPricePer1K: 0.0006},
	"gpt-4.1":          {InputPricePer1K: 0.002, OutputPricePer1K: 0.008},
	"gpt-4.1-mini":     {InputPricePer1K: 0.0004, OutputPricePer1K: 0.0016},
	"gpt-5":            {InputPricePer1K: 0.00125, OutputPricePer1K: 0.01},
	"gpt-5-mini":       {InputPricePer1K: 0.00025, OutputPricePer1K: 0.002},
	"gemini-2.5-flash": {InputPricePer1K: 0.0003, OutputPricePer1K: 0.0025},
	"gemini-2.5-pro":   {InputPricePer1K: 0.00125, OutputPricePer1K: 0.01},
}

// LookupPricing finds pricing for a model, matching dated snapshots
// such as gpt-4o-mini-2024-07-18 by their longest known prefix.
func LookupPricing(model string) (ModelPricing, bool) {
	if pricing, ok := PricingTable[model]; ok {
		return pricing, true
	}

	best := ""
	for name := range PricingTable {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return PricingTable[best], true
	}
	return PricingTable[fallbackModel], false
}

// CalculateCost calculates the cost in USD for one LLM call
func CalculateCost(model string, usage llm.Usage) float64 {
	pricing, _ := LookupPricing(model)

	inputCost := (float64(usage.InputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	// Reasoning tokens are already part of output tokens
	outputCost := (float64(usage.OutputTokens) / tokensPerKilo) * pricing.OutputPricePer1K

	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
