package llm

import (
	"github.com/Conceptual-Machines/microgenre-api/internal/models"
)

// GenreCardSchemaName is the json_schema name sent to the provider
const GenreCardSchemaName = "GenreCard"

// GetGenreCardSchema returns the strict JSON schema for a GenreCard.
// Every object closes additionalProperties and lists all of its properties as
// required, which strict structured output demands.
func GetGenreCardSchema() map[string]any {
	hexColor := func() map[string]any {
		return map[string]any{"type": "string", "pattern": models.HexColorPattern}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"title", "tagline", "palette", "visuals"},
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "2–3 words max, invented genre title. No quotes.",
			},
			"tagline": map[string]any{
				"type":        "string",
				"description": "<= 140 chars, single line, evocative but concrete.",
			},
			"palette": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             append([]string(nil), models.PaletteKeys...),
				"properties": map[string]any{
					"bg":        hexColor(),
					"primary":   hexColor(),
					"secondary": hexColor(),
					"accent":    hexColor(),
					"text":      hexColor(),
				},
			},
			"visuals": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"font_style", "texture", "shape", "mood", "weight"},
				"properties": map[string]any{
					"font_style": enumString(models.FontStyles),
					"weight":     enumString(models.FontWeights),
					"texture":    enumString(models.Textures),
					"shape":      enumString(models.Shapes),
					"mood":       map[string]any{"type": "string"},
				},
			},
		},
	}
}

// GenreCardOutputSchema wraps the schema for a GenerationRequest
func GenreCardOutputSchema() *OutputSchema {
	return &OutputSchema{
		Name:        GenreCardSchemaName,
		Description: "An invented music micro-genre with palette and visual style",
		Schema:      GetGenreCardSchema(),
		Strict:      true,
	}
}

func enumString(values []string) map[string]any {
	return map[string]any{
		"type": "string",
		"enum": append([]string(nil), values...),
	}
}
