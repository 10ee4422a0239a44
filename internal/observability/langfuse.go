package observability

import (
	"context"
	"log"
	"os"
	"time"

	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"

	"github.com/Conceptual-Machines/microgenre-api/internal/llm"
)

// LangfuseSettings carries the values InitializeLangfuse needs
type LangfuseSettings struct {
	Enabled   bool
	Host      string
	PublicKey string
	SecretKey string
}

// LangfuseClient wraps the Langfuse client with our configuration
type LangfuseClient struct {
	client  *langfuse.Langfuse
	enabled bool
	ctx     context.Context
}

var globalClient *LangfuseClient

// InitializeLangfuse initializes the global Langfuse client
func InitializeLangfuse(ctx context.Context, settings LangfuseSettings) *LangfuseClient {
	if !settings.Enabled || settings.SecretKey == "" {
		log.Println("⚠️  Langfuse not configured (LANGFUSE_ENABLED=false or LANGFUSE_SECRET_KEY not set)")
		globalClient = &LangfuseClient{enabled: false, ctx: ctx}
		return globalClient
	}

	// The SDK only reads its credentials from the environment
	exportIfUnset("LANGFUSE_HOST", settings.Host)
	exportIfUnset("LANGFUSE_PUBLIC_KEY", settings.PublicKey)
	exportIfUnset("LANGFUSE_SECRET_KEY", settings.SecretKey)

	globalClient = &LangfuseClient{
		client:  langfuse.New(ctx),
		enabled: true,
		ctx:     ctx,
	}

	log.Printf("✅ Langfuse initialized (host: %s)", settings.Host)
	return globalClient
}

func exportIfUnset(key, value string) {
	if value == "" || os.Getenv(key) != "" {
		return
	}
	if err := os.Setenv(key, value); err != nil {
		log.Printf("⚠️  Failed to export %s: %v", key, err)
	}
}

// GetClient returns the global Langfuse client
func GetClient() *LangfuseClient {
	if globalClient == nil {
		return &LangfuseClient{enabled: false, ctx: context.Background()}
	}
	return globalClient
}

// IsEnabled returns whether Langfuse is enabled
func (c *LangfuseClient) IsEnabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Flush blocks until queued events are sent
func (c *LangfuseClient) Flush() {
	if c.IsEnabled() {
		c.client.Flush(c.ctx)
	}
}

// StartTrace starts a new trace in Langfuse
func (c *LangfuseClient) StartTrace(ctx context.Context, name string, metadata map[string]interface{}) *Trace {
	if !c.IsEnabled() {
		return &Trace{enabled: false, ctx: ctx}
	}

	trace, err := c.client.Trace(&model.Trace{
		Name:     name,
		Metadata: metadata,
	})
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse trace: %v", err)
		return &Trace{enabled: false, ctx: ctx}
	}

	return &Trace{
		trace:   trace,
		enabled: true,
		ctx:     ctx,
		client:  c.client,
	}
}

// Trace represents a Langfuse trace
type Trace struct {
	trace   *model.Trace
	enabled bool
	ctx     context.Context
	client  *langfuse.Langfuse
}

// Enabled reports whether the trace is recorded
func (t *Trace) Enabled() bool {
	return t.enabled
}

// Generation creates a new generation span within the trace
func (t *Trace) Generation(name string, metadata map[string]interface{}) *Generation {
	if !t.enabled {
		return &Generation{enabled: false, ctx: t.ctx}
	}

	now := time.Now()
	gen, err := t.client.Generation(&model.Generation{
		TraceID:   t.trace.ID,
		Name:      name,
		StartTime: &now,
		Metadata:  metadata,
	}, nil)
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse generation: %v", err)
		return &Generation{enabled: false, ctx: t.ctx}
	}

	return &Generation{
		generation: gen,
		enabled:    true,
		ctx:        t.ctx,
		client:     t.client,
	}
}

// Finish completes the trace and flushes data to Langfuse
func (t *Trace) Finish() {
	if t.enabled && t.client != nil {
		t.client.Flush(t.ctx)
	}
}

// Generation represents a Langfuse generation span
type Generation struct {
	generation *model.Generation
	enabled    bool
	ctx        context.Context
	client     *langfuse.Langfuse
}

// Metadata adds metadata to the generation
func (g *Generation) Metadata(metadata map[string]interface{}) {
	if !g.enabled || g.generation == nil {
		return
	}
	if g.generation.Metadata == nil {
		g.generation.Metadata = make(map[string]interface{})
	}
	if md, ok := g.generation.Metadata.(map[string]interface{}); ok {
		for k, v := range metadata {
			md[k] = v
		}
	} else {
		g.generation.Metadata = metadata
	}
}

// SetLevel sets the level of the generation (DEFAULT, WARNING, ERROR)
func (g *Generation) SetLevel(level string) {
	if g.enabled && g.generation != nil {
		g.generation.Level = model.ObservationLevel(level)
	}
}

// LogGeneration records the prompt, the raw model output and token usage
func (g *Generation) LogGeneration(
	modelName string,
	inputMessages []map[string]any,
	output string,
	usage llm.Usage,
	metadata map[string]interface{},
) {
	if !g.enabled || g.generation == nil {
		return
	}

	cost := CalculateCost(modelName, usage)

	finalMetadata := map[string]interface{}{
		"model":    modelName,
		"cost_usd": cost,
	}
	for k, v := range metadata {
		finalMetadata[k] = v
	}

	g.generation.Input = inputMessages
	if output != "" {
		g.generation.Output = output
	}
	g.generation.Usage = model.Usage{
		Input:     usage.InputTokens,
		Output:    usage.OutputTokens,
		Total:     usage.TotalTokens,
		Unit:      model.ModelUsageUnitTokens,
		TotalCost: cost,
	}
	g.generation.Model = modelName
	g.Metadata(finalMetadata)
}

// Finish completes the generation and sends it to Langfuse
func (g *Generation) Finish() {
	if !g.enabled || g.generation == nil || g.client == nil {
		return
	}
	now := time.Now()
	g.generation.EndTime = &now
	if _, err := g.client.GenerationEnd(g.generation); err != nil {
		log.Printf("⚠️  Failed to end Langfuse generation: %v", err)
	}
}
