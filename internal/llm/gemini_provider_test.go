package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiProvider_Name(t *testing.T) {
	// Name does not touch the client
	provider := &GeminiProvider{client: nil}
	assert.Equal(t, "gemini", provider.Name())
}

func TestGeminiProvider_BuildContents(t *testing.T) {
	provider := &GeminiProvider{client: nil}

	tests := []struct {
		name       string
		inputArray []map[string]any
		wantLen    int
	}{
		{
			name: "single user message",
			inputArray: []map[string]any{
				{"role": "user", "content": "test content"},
			},
			wantLen: 1,
		},
		{
			name: "developer role converted to user",
			inputArray: []map[string]any{
				{"role": "developer", "content": "system message"},
			},
			wantLen: 1,
		},
		{
			name: "invalid message skipped",
			inputArray: []map[string]any{
				{"role": "user", "content": "valid"},
				{"role": "user"}, // missing content
			},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents := provider.buildGeminiContents(tt.inputArray)
			assert.Len(t, contents, tt.wantLen)

			for _, content := range contents {
				assert.Equal(t, "user", content.Role)
				assert.NotEmpty(t, content.Parts)
			}
		})
	}
}

func TestConvertSchemaToGemini_GenreCard(t *testing.T) {
	schema := convertSchemaToGemini(GetGenreCardSchema())
	require.NotNil(t, schema)

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"title", "tagline", "palette", "visuals"}, schema.Required)
	assert.Equal(t, []string{"title", "tagline", "palette", "visuals"}, schema.PropertyOrdering)

	title := schema.Properties["title"]
	require.NotNil(t, title)
	assert.Equal(t, genai.TypeString, title.Type)
	assert.Contains(t, title.Description, "invented genre title")

	palette := schema.Properties["palette"]
	require.NotNil(t, palette)
	assert.Equal(t, genai.TypeObject, palette.Type)
	assert.Len(t, palette.Properties, 5)
	assert.Equal(t, "^#([0-9A-Fa-f]{6})$", palette.Properties["accent"].Pattern)

	visuals := schema.Properties["visuals"]
	require.NotNil(t, visuals)
	assert.Equal(t, []string{"sans", "serif", "mono", "display", "hand", "blackletter"},
		visuals.Properties["font_style"].Enum)
	assert.Equal(t, genai.TypeString, visuals.Properties["mood"].Type)
	assert.Empty(t, visuals.Properties["mood"].Enum)
}

func TestConvertSchemaToGemini_Arrays(t *testing.T) {
	schema := convertSchemaToGemini(map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "integer",
			"enum": []any{"1", "2"},
		},
	})

	assert.Equal(t, genai.TypeArray, schema.Type)
	require.NotNil(t, schema.Items)
	assert.Equal(t, genai.TypeInteger, schema.Items.Type)
	assert.Equal(t, []string{"1", "2"}, schema.Items.Enum)

	assert.Nil(t, convertSchemaToGemini(nil))
}

func TestGeminiProvider_BuildConfig(t *testing.T) {
	provider := &GeminiProvider{client: nil}
	temperature := 1.3

	config := provider.buildConfig(&GenerationRequest{
		SystemPrompt: "oracle",
		Temperature:  &temperature,
		OutputSchema: GenreCardOutputSchema(),
	})

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "oracle", config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 1.3, float64(*config.Temperature), 1e-6)
	assert.Equal(t, "application/json", config.ResponseMIMEType)
	assert.NotNil(t, config.ResponseSchema)
}

func TestGeminiProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), "unexpected path %s", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": ` + quoteJSON(sampleCardJSON) + `}]}}],
			"usageMetadata": {"promptTokenCount": 40, "candidatesTokenCount": 60, "totalTokenCount": 100},
			"modelVersion": "gemini-2.5-flash"
		}`))
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(context.Background(), "gm-test", server.URL)
	require.NoError(t, err)

	resp, err := provider.Generate(context.Background(), &GenerationRequest{
		Model:        "gemini-2.5-flash",
		SystemPrompt: "oracle",
		InputArray:   []map[string]any{{"role": "user", "content": "surprise"}},
		OutputSchema: GenreCardOutputSchema(),
	})
	require.NoError(t, err)

	assert.Equal(t, sampleCardJSON, resp.RawOutput)
	assert.Equal(t, sampleCardJSON, resp.FallbackOutput)
	assert.Equal(t, "gemini", resp.Provider)
	assert.Equal(t, Usage{InputTokens: 40, OutputTokens: 60, TotalTokens: 100}, resp.Usage)
}

func TestGeminiProvider_GenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(context.Background(), "gm-test", server.URL)
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), &GenerationRequest{
		Model:      "gemini-2.5-flash",
		InputArray: []map[string]any{{"role": "user", "content": "surprise"}},
	})
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "gemini", perr.Provider)
	assert.Equal(t, http.StatusForbidden, perr.StatusCode)
}

func quoteJSON(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
