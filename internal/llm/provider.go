package llm

import (
	"context"
)

// Provider defines the interface for LLM providers
// All providers MUST support structured output (JSON Schema) for reliable response parsing
type Provider interface {
	// Generate runs a single structured-output completion
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model        string
	SystemPrompt string
	InputArray   []map[string]any
	// Temperature is sent only when set
	Temperature *float64
	// ReasoningEffort (low, medium, high) applies to reasoning models only
	ReasoningEffort string
	// Structured output schema - REQUIRED for reliable JSON parsing
	OutputSchema *OutputSchema
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
	Strict      bool
}

// Usage is the provider-neutral token accounting for one call
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	TotalTokens     int `json:"total_tokens"`
}

// AsMap returns the usage in the shape logger.LogGenerationRequest expects
func (u Usage) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"input_tokens":     u.InputTokens,
		"output_tokens":    u.OutputTokens,
		"reasoning_tokens": u.ReasoningTokens,
		"total_tokens":     u.TotalTokens,
	}
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	// RawOutput is the aggregated output text with code fences stripped
	RawOutput string
	// FallbackOutput is the first text chunk of the first output item, used when
	// RawOutput does not parse
	FallbackOutput string
	// Refusal is set when the model declined to answer
	Refusal  string
	Usage    Usage
	Model    string
	Provider string
}
