package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_BuildUserMessage(t *testing.T) {
	builder, err := NewPromptBuilder()
	require.NoError(t, err)

	tests := []struct {
		name string
		seed string
		want string
	}{
		{
			name: "empty seed becomes surprise",
			seed: "",
			want: "Create one entirely new music micro-genre. It must not be an existing genre.\nSeed vibe (optional): surprise.",
		},
		{
			name: "whitespace seed becomes surprise",
			seed: "   ",
			want: "Create one entirely new music micro-genre. It must not be an existing genre.\nSeed vibe (optional): surprise.",
		},
		{
			name: "seed is inserted verbatim",
			seed: "rainy tram rides",
			want: "Create one entirely new music micro-genre. It must not be an existing genre.\nSeed vibe (optional): rainy tram rides.",
		},
		{
			name: "template syntax in seed is not evaluated",
			seed: "{{ .Seed }}",
			want: "Create one entirely new music micro-genre. It must not be an existing genre.\nSeed vibe (optional): {{ .Seed }}.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := builder.BuildUserMessage(tt.seed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuilder_BuildGenreInput(t *testing.T) {
	builder, err := NewPromptBuilder()
	require.NoError(t, err)

	input, err := builder.BuildGenreInput("glitter dust")
	require.NoError(t, err)
	require.Len(t, input, 1)
	assert.Equal(t, "user", input[0]["role"])
	assert.Contains(t, input[0]["content"], "Seed vibe (optional): glitter dust.")

	assert.NotEmpty(t, builder.Instructions())
}
