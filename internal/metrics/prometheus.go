package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets covers LLM call latencies from 100ms to 120s
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts HTTP requests by route, method and status class
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgenre_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// RequestDuration records HTTP request duration in seconds
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microgenre_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: LLMBuckets,
		},
		[]string{"endpoint"},
	)

	// GenerationsTotal counts genre generations by provider, model and outcome
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgenre_generations_total",
			Help: "Genre generations",
		},
		[]string{"provider", "model", "outcome"},
	)

	// GenerationLatency records provider round-trip plus parsing time
	GenerationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microgenre_generation_latency_seconds",
			Help:    "Genre generation latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// TokensTotal counts tokens by direction (input/output/reasoning)
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgenre_llm_tokens_total",
			Help: "LLM token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgenre_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		GenerationsTotal,
		GenerationLatency,
		TokensTotal,
		RateLimitRejectedTotal,
	)
}

// PrometheusRecorder feeds the package collectors
type PrometheusRecorder struct{}

// NewPrometheusRecorder returns a recorder backed by the default registry
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{}
}

// StatusClass turns 404 into "4xx"
func StatusClass(statusCode int) string {
	return strconv.Itoa(statusCode/100) + "xx"
}

func (p *PrometheusRecorder) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, duration time.Duration) {
	RequestsTotal.WithLabelValues(endpoint, StatusClass(statusCode)).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) RecordGeneration(_ context.Context, m GenerationMetrics) {
	GenerationsTotal.WithLabelValues(m.Provider, m.Model, m.Outcome).Inc()
	GenerationLatency.WithLabelValues(m.Provider, m.Model).Observe(m.Duration.Seconds())

	if m.InputTokens > 0 {
		TokensTotal.WithLabelValues(m.Provider, m.Model, "input").Add(float64(m.InputTokens))
	}
	if m.OutputTokens > 0 {
		TokensTotal.WithLabelValues(m.Provider, m.Model, "output").Add(float64(m.OutputTokens))
	}
	if m.ReasoningTokens > 0 {
		TokensTotal.WithLabelValues(m.Provider, m.Model, "reasoning").Add(float64(m.ReasoningTokens))
	}
}
