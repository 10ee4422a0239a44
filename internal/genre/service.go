package genre

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Conceptual-Machines/microgenre-api/internal/llm"
	"github.com/Conceptual-Machines/microgenre-api/internal/logger"
	"github.com/Conceptual-Machines/microgenre-api/internal/metrics"
	"github.com/Conceptual-Machines/microgenre-api/internal/models"
	"github.com/Conceptual-Machines/microgenre-api/internal/observability"
	"github.com/Conceptual-Machines/microgenre-api/internal/prompt"
)

const defaultTimeout = 60 * time.Second

// ProviderSource resolves the provider for a model. *llm.ProviderFactory
// satisfies it.
type ProviderSource interface {
	GetProvider(ctx context.Context, model, providerName string) (llm.Provider, error)
}

// Options configures a Service
type Options struct {
	Model    string
	Provider string // empty means derive from Model
	Timeout  time.Duration
	Recorder metrics.Recorder
	Langfuse *observability.LangfuseClient

	// ReasoningEffort is forwarded to reasoning models
	ReasoningEffort string
}

// Service generates genre cards
type Service struct {
	providers ProviderSource
	prompts   *prompt.Builder
	model     string
	provider  string
	timeout   time.Duration
	effort    string
	recorder  metrics.Recorder
	langfuse  *observability.LangfuseClient
}

// Result describes how a card was produced
type Result struct {
	Model        string        `json:"model"`
	Provider     string        `json:"provider"`
	Usage        llm.Usage     `json:"usage"`
	Duration     time.Duration `json:"duration"`
	UsedFallback bool          `json:"used_fallback"`
}

// NewService creates a genre service
func NewService(providers ProviderSource, prompts *prompt.Builder, opts Options) *Service {
	s := &Service{
		providers: providers,
		prompts:   prompts,
		model:     opts.Model,
		provider:  opts.Provider,
		timeout:   opts.Timeout,
		effort:    opts.ReasoningEffort,
		recorder:  opts.Recorder,
		langfuse:  opts.Langfuse,
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.recorder == nil {
		s.recorder = metrics.Nop{}
	}
	if s.langfuse == nil {
		s.langfuse = observability.GetClient()
	}
	return s
}

// Model returns the configured model name
func (s *Service) Model() string {
	return s.model
}

// Generate asks the LLM for one new genre card
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*models.GenreCard, *Result, error) {
	startTime := time.Now()
	result := &Result{Model: s.model, Provider: s.provider}
	if result.Provider == "" {
		result.Provider = llm.ProviderForModel(s.model)
	}

	card, err := s.generate(ctx, req, result)
	result.Duration = time.Since(startTime)

	s.recorder.RecordGeneration(ctx, metrics.GenerationMetrics{
		Provider:        result.Provider,
		Model:           result.Model,
		Duration:        result.Duration,
		Outcome:         outcomeFor(err),
		InputTokens:     result.Usage.InputTokens,
		OutputTokens:    result.Usage.OutputTokens,
		ReasoningTokens: result.Usage.ReasoningTokens,
		TotalTokens:     result.Usage.TotalTokens,
	})

	if err != nil {
		return nil, result, err
	}

	logger.LogGenerationRequest(ctx, result.Model, result.Duration, result.Usage, logger.Fields{
		"provider":      result.Provider,
		"used_fallback": result.UsedFallback,
		"title":         card.Title,
	})
	return card, result, nil
}

func (s *Service) generate(ctx context.Context, req GenerateRequest, result *Result) (*models.GenreCard, error) {
	seed, err := NormalizeSeed(req.Seed)
	if err != nil {
		return nil, err
	}
	temperature := NormalizeTemperature(req.Temperature)

	input, err := s.prompts.BuildGenreInput(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}
	logger.Debug("Genre prompt built", logger.Fields{
		"seed_chars":  len([]rune(seed)),
		"temperature": temperature,
	})

	provider, err := s.providers.GetProvider(ctx, s.model, s.provider)
	if err != nil {
		logger.Error("No LLM provider available", err, logger.Fields{"model": s.model})
		return nil, err
	}
	result.Provider = provider.Name()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	trace := s.langfuse.StartTrace(ctx, "genre.generate", map[string]interface{}{
		"seed":        seed,
		"temperature": temperature,
	})
	defer trace.Finish()
	gen := trace.Generation("llm.generate", map[string]interface{}{
		"provider": result.Provider,
	})
	defer gen.Finish()

	resp, err := provider.Generate(ctx, &llm.GenerationRequest{
		Model:           s.model,
		SystemPrompt:    s.prompts.Instructions(),
		InputArray:      input,
		Temperature:     &temperature,
		ReasoningEffort: s.effort,
		OutputSchema:    llm.GenreCardOutputSchema(),
	})
	if err != nil {
		gen.SetLevel("ERROR")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrTimeout, s.timeout, err)
		}
		logger.Error("LLM generation failed", err, logger.Fields{
			"model":    s.model,
			"provider": result.Provider,
		})
		return nil, err
	}

	if resp.Model != "" {
		result.Model = resp.Model
	}
	result.Usage = resp.Usage

	card, usedFallback, err := ParseCard(resp)
	result.UsedFallback = usedFallback

	gen.LogGeneration(result.Model, input, resp.RawOutput, resp.Usage, map[string]interface{}{
		"used_fallback": usedFallback,
	})

	if err != nil {
		gen.SetLevel("WARNING")
		logger.Warn("LLM returned an unusable genre card", logger.Fields{
			"model":  result.Model,
			"error":  err.Error(),
			"output": llm.Truncate(resp.RawOutput, maxLoggedOutput),
		})
		return nil, err
	}

	return card, nil
}

const maxLoggedOutput = 500

// ParseCard decodes the model output as a GenreCard, falling back to the
// first text chunk when the aggregated output is not valid JSON. The
// returned bool reports whether the fallback was used.
func ParseCard(resp *llm.GenerationResponse) (*models.GenreCard, bool, error) {
	raw := strings.TrimSpace(resp.RawOutput)
	fallback := strings.TrimSpace(llm.StripCodeFences(resp.FallbackOutput))

	if raw == "" && fallback == "" {
		if resp.Refusal != "" {
			return nil, false, fmt.Errorf("%w: model refused: %s", ErrEmptyOutput, resp.Refusal)
		}
		return nil, false, ErrEmptyOutput
	}

	usedFallback := false
	card, err := decodeCard(raw)
	if isSyntaxError(err) && fallback != "" {
		usedFallback = true
		card, err = decodeCard(fallback)
	}

	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return nil, usedFallback, fmt.Errorf("%w: %w", ErrInvalidCard, err)
	case err != nil:
		return nil, usedFallback, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return card, usedFallback, nil
}

func decodeCard(text string) (*models.GenreCard, error) {
	if text == "" {
		return nil, errEmptyText
	}
	return models.ParseGenreCard([]byte(text))
}

var errEmptyText = errors.New("empty text")

// isSyntaxError reports whether text failed to decode as JSON at all, as
// opposed to decoding into a card that breaks the schema
func isSyntaxError(err error) bool {
	if err == nil {
		return false
	}
	var verr *models.ValidationError
	return !errors.As(err, &verr)
}
