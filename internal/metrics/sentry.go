package metrics

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryMetrics attaches request and generation numbers to the active
// Sentry transaction. Spans are no-ops when Sentry is not initialized.
type SentryMetrics struct{}

// NewSentryMetrics creates the Sentry sink
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{}
}

// RecordAPIRequest adds an api.request span under the request transaction
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	span := sentry.StartSpan(ctx, "api.request", sentry.WithDescription(endpoint))
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_class", StatusClass(statusCode))
	span.SetData("status_code", statusCode)
	span.SetData("duration_ms", duration.Milliseconds())
	span.Status = spanStatusFor(statusCode)
}

// RecordGeneration tags the transaction with the model and token counts and
// adds a genre.generate span carrying the outcome
func (m *SentryMetrics) RecordGeneration(ctx context.Context, g GenerationMetrics) {
	if tx := sentry.TransactionFromContext(ctx); tx != nil {
		tx.SetTag("llm.model", g.Model)
		tx.SetTag("llm.provider", g.Provider)
		tx.SetTag("genre.outcome", g.Outcome)
		tx.SetData("llm.total_tokens", g.TotalTokens)
	}

	span := sentry.StartSpan(ctx, "genre.generate", sentry.WithDescription(g.Model))
	defer span.Finish()

	span.SetTag("outcome", g.Outcome)
	span.SetTag("provider", g.Provider)
	span.SetData("duration_ms", g.Duration.Milliseconds())
	span.SetData("tokens", map[string]int{
		"input":     g.InputTokens,
		"output":    g.OutputTokens,
		"reasoning": g.ReasoningTokens,
		"total":     g.TotalTokens,
	})

	switch g.Outcome {
	case OutcomeOK:
		span.Status = sentry.SpanStatusOK
	case OutcomeTimeout:
		span.Status = sentry.SpanStatusDeadlineExceeded
	case OutcomeInvalidRequest:
		span.Status = sentry.SpanStatusInvalidArgument
	case OutcomeUpstreamError, OutcomeInvalidOutput:
		span.Status = sentry.SpanStatusUnavailable
	default:
		span.Status = sentry.SpanStatusInternalError
	}
}

func spanStatusFor(statusCode int) sentry.SpanStatus {
	switch {
	case statusCode < 400:
		return sentry.SpanStatusOK
	case statusCode == 429:
		return sentry.SpanStatusResourceExhausted
	case statusCode < 500:
		return sentry.SpanStatusInvalidArgument
	case statusCode == 504:
		return sentry.SpanStatusDeadlineExceeded
	default:
		return sentry.SpanStatusInternalError
	}
}
