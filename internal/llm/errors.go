package llm

import (
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

var (
	// ErrProviderNotConfigured is returned when the API key for a provider is missing
	ErrProviderNotConfigured = errors.New("llm provider not configured")
	// ErrUnknownProvider is returned for provider names the factory does not know
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// ProviderError wraps a failed upstream API call together with the HTTP status
// the provider answered with. StatusCode is 0 for transport-level failures.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s request failed", e.Provider)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// wrapOpenAIError extracts status and message from an openai-go API error
func wrapOpenAIError(err error) error {
	perr := &ProviderError{Provider: providerNameOpenAI, Err: err}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.StatusCode
		perr.Message = apiErr.Message
	}

	return perr
}

// wrapGeminiError extracts status and message from a genai API error
func wrapGeminiError(err error) error {
	perr := &ProviderError{Provider: providerNameGemini, Err: err}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.Code
		perr.Message = apiErr.Message
	} else {
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			perr.StatusCode = apiErrPtr.Code
			perr.Message = apiErrPtr.Message
		}
	}

	return perr
}
