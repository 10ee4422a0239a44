package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	// DefaultNamespace is used when no CloudWatch namespace is configured
	DefaultNamespace         = "Microgenre/API"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// metricPutter is the part of the CloudWatch client we use
type metricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      metricPutter
	enabled     bool
	environment string
	namespace   string
	async       bool
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment, namespace string) (*Client, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	// Only enable in production
	if environment != "production" {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{
			enabled:     false,
			environment: environment,
			namespace:   namespace,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{enabled: false, environment: environment, namespace: namespace}, nil
	}

	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)

	return newClientWithPutter(cloudwatch.NewFromConfig(cfg), environment, namespace, true), nil
}

func newClientWithPutter(putter metricPutter, environment, namespace string, async bool) *Client {
	return &Client{
		client:      putter,
		enabled:     true,
		environment: environment,
		namespace:   namespace,
		async:       async,
	}
}

// Enabled reports whether metrics are actually sent
func (m *Client) Enabled() bool {
	return m.enabled
}

// run executes fn off the request path unless the client is synchronous
func (m *Client) run(fn func(ctx context.Context)) {
	if m.async {
		go fn(context.Background())
		return
	}
	fn(context.Background())
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	m.run(func(ctx context.Context) {
		metricName := "APIRequests"
		if statusCode >= httpStatusServerError {
			metricName = "APIErrors"
		}

		dimensions := []types.Dimension{
			{
				Name:  aws.String("Endpoint"),
				Value: aws.String(endpoint),
			},
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		if err := m.putMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record %s metric: %v", metricName, err)
		}

		latencyMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "APILatency", latencyMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("Failed to record APILatency metric: %v", err)
		}
	})
}

// RecordGeneration records token usage and generation duration
func (m *Client) RecordGeneration(_ context.Context, g GenerationMetrics) {
	if !m.enabled {
		return
	}

	m.run(func(ctx context.Context) {
		modelDims := []types.Dimension{
			{
				Name:  aws.String("Model"),
				Value: aws.String(g.Model),
			},
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		tokens := []struct {
			name  string
			value int
		}{
			{"LLMTokens/Total", g.TotalTokens},
			{"LLMTokens/Input", g.InputTokens},
			{"LLMTokens/Output", g.OutputTokens},
			{"LLMTokens/Reasoning", g.ReasoningTokens},
		}
		for _, tok := range tokens {
			if tok.value <= 0 {
				continue
			}
			if err := m.putMetric(ctx, tok.name, float64(tok.value), types.StandardUnitCount, modelDims); err != nil {
				log.Printf("Failed to record %s metric: %v", tok.name, err)
			}
		}

		outcomeDims := []types.Dimension{
			{
				Name:  aws.String("Outcome"),
				Value: aws.String(g.Outcome),
			},
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		durationMs := float64(g.Duration.Milliseconds())
		if err := m.putMetric(ctx, "GenerationDuration", durationMs, types.StandardUnitMilliseconds, outcomeDims); err != nil {
			log.Printf("Failed to record GenerationDuration metric: %v", err)
		}
	})
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	ctx context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	cwCtx, cancel := context.WithTimeout(ctx, cloudwatchTimeoutSeconds*time.Second)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}
