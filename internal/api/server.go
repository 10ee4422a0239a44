package api

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	apimiddleware "github.com/Conceptual-Machines/microgenre-api/internal/api/middleware"
	"github.com/Conceptual-Machines/microgenre-api/internal/config"
	"github.com/Conceptual-Machines/microgenre-api/internal/genre"
	"github.com/Conceptual-Machines/microgenre-api/internal/llm"
	"github.com/Conceptual-Machines/microgenre-api/internal/metrics"
	"github.com/Conceptual-Machines/microgenre-api/internal/observability"
	"github.com/Conceptual-Machines/microgenre-api/internal/prompt"
)

// NewEngine builds the full service: providers, prompts, metrics sinks,
// the genre service and the router. Both the standalone server and the
// serverless handler start here.
func NewEngine(ctx context.Context, cfg *config.Config, version string) (*gin.Engine, error) {
	prompts, err := prompt.NewPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	factory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey,
		llm.WithOpenAIBaseURL(cfg.OpenAIBaseURL),
		llm.WithGeminiBaseURL(cfg.GeminiBaseURL),
	)

	cloudwatch, err := metrics.NewClient(ctx, cfg.Environment, cfg.CloudWatchNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create CloudWatch client: %w", err)
	}

	recorder := metrics.Multi{
		metrics.NewPrometheusRecorder(),
		metrics.NewSentryMetrics(),
		cloudwatch,
	}

	langfuse := observability.InitializeLangfuse(ctx, observability.LangfuseSettings{
		Enabled:   cfg.LangfuseEnabled,
		Host:      cfg.LangfuseHost,
		PublicKey: cfg.LangfusePublicKey,
		SecretKey: cfg.LangfuseSecretKey,
	})

	service := genre.NewService(factory, prompts, genre.Options{
		Model:           cfg.Model,
		Provider:        cfg.Provider,
		Timeout:         cfg.Timeout,
		ReasoningEffort: cfg.ReasoningEffort,
		Recorder:        recorder,
		Langfuse:        langfuse,
	})

	limiter := apimiddleware.NewRateLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst)
	if limiter.Enabled() {
		log.Printf("🚦 Rate limit: %d requests/minute per client (burst %d)", cfg.RateLimitRPM, cfg.RateLimitBurst)
	}

	log.Printf("🎛️  Model: %s (provider: %s, timeout: %s, auth: %s)",
		cfg.Model, providerLabel(cfg), cfg.Timeout, cfg.AuthMode)

	return SetupRouter(cfg, Dependencies{
		Generator:   service,
		Recorder:    recorder,
		RateLimiter: limiter,
	}, version), nil
}

func providerLabel(cfg *config.Config) string {
	if cfg.Provider != "" {
		return cfg.Provider
	}
	return llm.ProviderForModel(cfg.Model)
}
