package llm

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const (
	// Role constants
	userRole      = "user"
	developerRole = "developer"

	// Output content types
	contentTypeOutputText = "output_text"
	contentTypeText       = "text"
	contentTypeRefusal    = "refusal"

	// Provider name
	providerNameOpenAI = "openai"

	// Logging limits
	maxOutputTrunc = 200
)

// OpenAIProvider implements the Provider interface using OpenAI's Responses API
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider. Extra request options are
// applied after the API key (base URL overrides, retries, custom HTTP client).
func NewOpenAIProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	allOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(allOpts...)
	return &OpenAIProvider{
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate implements non-streaming generation using OpenAI's Responses API
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	log.Printf("🎵 OPENAI GENERATION REQUEST STARTED (Model: %s)", request.Model)

	// Start Sentry transaction
	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)

	params := p.buildRequestParams(request)

	// Call OpenAI API with Sentry span
	span := transaction.StartChild("openai.api_call")
	apiStartTime := time.Now()
	resp, err := p.client.Responses.New(ctx, params)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ OPENAI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, wrapOpenAIError(err)
	}

	log.Printf("⏱️  OPENAI API CALL COMPLETED in %v", apiDuration)

	result := p.processResponse(resp, request, startTime, transaction)
	transaction.SetTag("success", "true")
	return result, nil
}

// buildRequestParams converts GenerationRequest to OpenAI-specific ResponseNewParams
func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) responses.ResponseNewParams {
	inputItems := responses.ResponseInputParam{}

	for _, item := range request.InputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)

		if !hasRole || !hasContent {
			log.Printf("⚠️  Skipping invalid input item (missing role or content): %v", item)
			continue
		}

		var roleEnum responses.EasyInputMessageRole
		switch role {
		case developerRole:
			roleEnum = responses.EasyInputMessageRoleDeveloper
		default:
			roleEnum = responses.EasyInputMessageRoleUser
		}

		inputItems = append(inputItems,
			responses.ResponseInputItemParamOfMessage(content, roleEnum),
		)
	}

	params := responses.ResponseNewParams{
		Model: request.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems,
		},
	}

	if request.SystemPrompt != "" {
		params.Instructions = openai.String(request.SystemPrompt)
	}

	// Reasoning models reject sampling parameters but take an effort level
	reasoning := !supportsTemperature(request.Model)
	if request.Temperature != nil {
		if !reasoning {
			params.Temperature = openai.Float(*request.Temperature)
		} else {
			log.Printf("ℹ️  Model %s does not accept temperature, dropping %.2f", request.Model, *request.Temperature)
		}
	}
	if reasoning && request.ReasoningEffort != "" {
		params.Reasoning = shared.ReasoningParam{
			Effort: shared.ReasoningEffort(request.ReasoningEffort),
		}
	}

	if request.OutputSchema != nil {
		format := responses.ResponseFormatTextConfigParamOfJSONSchema(
			request.OutputSchema.Name,
			request.OutputSchema.Schema,
		)
		if request.OutputSchema.Strict {
			format.OfJSONSchema.Strict = openai.Bool(true)
		}
		if request.OutputSchema.Description != "" {
			format.OfJSONSchema.Description = openai.String(request.OutputSchema.Description)
		}
		params.Text = responses.ResponseTextConfigParam{Format: format}
		log.Printf("📋 JSON SCHEMA CONFIGURED: %s (strict: %t)", request.OutputSchema.Name, request.OutputSchema.Strict)
	}

	return params
}

// supportsTemperature reports whether the model accepts a temperature parameter.
// The o-series and GPT-5 family are reasoning models and do not.
func supportsTemperature(model string) bool {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "gpt-5"):
		return false
	case len(m) > 1 && m[0] == 'o' && m[1] >= '0' && m[1] <= '9':
		return false
	default:
		return true
	}
}

func (p *OpenAIProvider) processResponse(
	resp *responses.Response,
	request *GenerationRequest,
	startTime time.Time,
	transaction *sentry.Span,
) *GenerationResponse {
	span := transaction.StartChild("process_response_json")
	defer span.Finish()

	textOutput := p.extractAndCleanTextOutput(resp)
	fallback := p.extractFallbackText(resp)
	refusal := p.extractRefusal(resp)

	log.Printf("📥 OPENAI JSON RESPONSE: output_length=%d, fallback_length=%d, output_items=%d, tokens=%d",
		len(textOutput), len(fallback), len(resp.Output), resp.Usage.TotalTokens)
	if refusal != "" {
		log.Printf("⚠️  OPENAI REFUSAL: %s", Truncate(refusal, maxOutputTrunc))
	}

	p.logUsageStats(resp.Usage)

	model := resp.Model
	if model == "" {
		model = request.Model
	}

	log.Printf("✅ OPENAI GENERATION COMPLETED in %v", time.Since(startTime))

	return &GenerationResponse{
		RawOutput:      textOutput,
		FallbackOutput: fallback,
		Refusal:        refusal,
		Usage: Usage{
			InputTokens:     int(resp.Usage.InputTokens),
			OutputTokens:    int(resp.Usage.OutputTokens),
			ReasoningTokens: int(resp.Usage.OutputTokensDetails.ReasoningTokens),
			TotalTokens:     int(resp.Usage.TotalTokens),
		},
		Model:    model,
		Provider: providerNameOpenAI,
	}
}

// extractAndCleanTextOutput extracts and cleans text output from response
func (p *OpenAIProvider) extractAndCleanTextOutput(resp *responses.Response) string {
	textOutput := resp.OutputText()
	if textOutput == "" {
		return ""
	}

	cleaned := StripCodeFences(textOutput)
	if cleaned != textOutput {
		log.Printf("🧹 Stripped markdown code blocks from output: %d -> %d chars", len(textOutput), len(cleaned))
	}

	return cleaned
}

// extractFallbackText returns the first output_text chunk of the first output
// item, or failing that its first plain text chunk
func (p *OpenAIProvider) extractFallbackText(resp *responses.Response) string {
	if len(resp.Output) == 0 {
		return ""
	}

	chunks := resp.Output[0].Content
	for _, wanted := range []string{contentTypeOutputText, contentTypeText} {
		for _, chunk := range chunks {
			if chunk.Type == wanted && chunk.Text != "" {
				return StripCodeFences(chunk.Text)
			}
		}
	}

	return ""
}

func (p *OpenAIProvider) extractRefusal(resp *responses.Response) string {
	for _, item := range resp.Output {
		for _, chunk := range item.Content {
			if chunk.Type == contentTypeRefusal && chunk.Refusal != "" {
				return chunk.Refusal
			}
		}
	}
	return ""
}

// logUsageStats logs token usage statistics
func (p *OpenAIProvider) logUsageStats(usage responses.ResponseUsage) {
	log.Printf("📊 USAGE: input=%d, output=%d, reasoning=%d, total=%d",
		usage.InputTokens, usage.OutputTokens,
		usage.OutputTokensDetails.ReasoningTokens, usage.TotalTokens)
}

// StripCodeFences removes a surrounding ```json ... ``` block if present
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// Truncate cuts s to at most maxLen bytes on a rune boundary and marks the cut
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}

