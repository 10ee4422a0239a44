package metrics

import (
	"context"
	"time"
)

// Generation outcomes used as metric labels
const (
	OutcomeOK             = "ok"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeInvalidOutput  = "invalid_output"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeTimeout        = "timeout"
	OutcomeError          = "error"
)

// GenerationMetrics describes one finished genre generation
type GenerationMetrics struct {
	Provider        string
	Model           string
	Duration        time.Duration
	Outcome         string
	InputTokens     int
	OutputTokens    int
	ReasoningTokens int
	TotalTokens     int
}

// Success reports whether the generation produced a card
func (g GenerationMetrics) Success() bool {
	return g.Outcome == OutcomeOK
}

// Recorder receives request and generation measurements
type Recorder interface {
	RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration)
	RecordGeneration(ctx context.Context, m GenerationMetrics)
}

// Multi fans every measurement out to all recorders
type Multi []Recorder

func (m Multi) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	for _, r := range m {
		if r != nil {
			r.RecordAPIRequest(ctx, endpoint, statusCode, duration)
		}
	}
}

func (m Multi) RecordGeneration(ctx context.Context, g GenerationMetrics) {
	for _, r := range m {
		if r != nil {
			r.RecordGeneration(ctx, g)
		}
	}
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordAPIRequest(context.Context, string, int, time.Duration) {}
func (Nop) RecordGeneration(context.Context, GenerationMetrics)          {}
