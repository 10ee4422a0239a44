package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go/option"
)

// ProviderFactory creates providers based on model name or explicit provider choice
type ProviderFactory struct {
	openaiAPIKey  string
	geminiAPIKey  string
	openaiOptions []option.RequestOption
	geminiBaseURL string

	mu        sync.Mutex
	providers map[string]Provider
}

// FactoryOption customizes the clients a ProviderFactory builds
type FactoryOption func(*ProviderFactory)

// WithOpenAIBaseURL points OpenAI clients at a compatible endpoint
func WithOpenAIBaseURL(baseURL string) FactoryOption {
	return func(f *ProviderFactory) {
		if baseURL != "" {
			f.openaiOptions = append(f.openaiOptions, option.WithBaseURL(baseURL))
		}
	}
}

// WithGeminiBaseURL overrides the Gemini API endpoint
func WithGeminiBaseURL(baseURL string) FactoryOption {
	return func(f *ProviderFactory) {
		f.geminiBaseURL = baseURL
	}
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(openaiAPIKey, geminiAPIKey string, opts ...FactoryOption) *ProviderFactory {
	f := &ProviderFactory{
		openaiAPIKey: openaiAPIKey,
		geminiAPIKey: geminiAPIKey,
		providers:    make(map[string]Provider),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetProvider returns the appropriate provider for the given model/provider name
func (f *ProviderFactory) GetProvider(ctx context.Context, model, providerName string) (Provider, error) {
	// If provider is explicitly specified, use that
	if providerName == "" {
		providerName = ProviderForModel(model)
	}

	return f.getProviderByName(ctx, providerName)
}

// ProviderForModel infers the provider name from a model name. Unknown models
// go to OpenAI.
func ProviderForModel(model string) string {
	modelLower := strings.ToLower(model)

	if strings.HasPrefix(modelLower, "gemini-") {
		return providerNameGemini
	}

	return providerNameOpenAI
}

// IsKnownProvider reports whether name is a provider the factory can build
func IsKnownProvider(name string) bool {
	switch strings.ToLower(name) {
	case providerNameOpenAI, providerNameGemini:
		return true
	default:
		return false
	}
}

// getProviderByName creates a provider by explicit name, reusing clients
func (f *ProviderFactory) getProviderByName(ctx context.Context, providerName string) (Provider, error) {
	name := strings.ToLower(providerName)

	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.providers[name]; ok {
		return p, nil
	}

	var (
		provider Provider
		err      error
	)

	switch name {
	case providerNameOpenAI:
		if f.openaiAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrProviderNotConfigured)
		}
		provider = NewOpenAIProvider(f.openaiAPIKey, f.openaiOptions...)

	case providerNameGemini:
		if f.geminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrProviderNotConfigured)
		}
		provider, err = NewGeminiProvider(ctx, f.geminiAPIKey, f.geminiBaseURL)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: %s (allowed: openai, gemini)", ErrUnknownProvider, providerName)
	}

	f.providers[name] = provider
	return provider, nil
}
