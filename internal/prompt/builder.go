package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

const (
	// DefaultSeedVibe is substituted when the caller sends no seed
	DefaultSeedVibe = "surprise"

	userRole = "user"
)

// Builder renders the genre prompts
type Builder struct {
	instructions string
	userTmpl     *template.Template
}

// NewPromptBuilder parses the embedded templates once
func NewPromptBuilder() (*Builder, error) {
	loader := NewPromptLoader()

	instructions, err := loader.GetGenreInstructions()
	if err != nil {
		return nil, fmt.Errorf("failed to load genre instructions: %w", err)
	}

	raw, err := loader.GetGenreUserTemplate()
	if err != nil {
		return nil, fmt.Errorf("failed to load genre user template: %w", err)
	}

	tmpl, err := template.New("genre_user").Option("missingkey=error").Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse genre user template: %w", err)
	}

	return &Builder{
		instructions: instructions,
		userTmpl:     tmpl,
	}, nil
}

// Instructions returns the system prompt sent with every generation
func (b *Builder) Instructions() string {
	return b.instructions
}

// BuildUserMessage renders the user message for a seed
func (b *Builder) BuildUserMessage(seed string) (string, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		seed = DefaultSeedVibe
	}

	var sb strings.Builder
	if err := b.userTmpl.Execute(&sb, struct{ Seed string }{Seed: seed}); err != nil {
		return "", fmt.Errorf("failed to render genre user prompt: %w", err)
	}

	return sb.String(), nil
}

// BuildGenreInput returns the input array for a provider request
func (b *Builder) BuildGenreInput(seed string) ([]map[string]any, error) {
	msg, err := b.BuildUserMessage(seed)
	if err != nil {
		return nil, err
	}

	return []map[string]any{
		{"role": userRole, "content": msg},
	}, nil
}
