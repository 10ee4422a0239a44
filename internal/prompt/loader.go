package prompt

import (
	"strings"

	"github.com/Conceptual-Machines/microgenre-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetGenreInstructions loads the system instructions for genre invention
func (l *Loader) GetGenreInstructions() (string, error) {
	return strings.TrimSpace(string(embedded.GenreInstructionsTxt)), nil
}

// GetGenreUserTemplate loads the raw user message template
func (l *Loader) GetGenreUserTemplate() (string, error) {
	return strings.TrimSpace(string(embedded.GenreUserTmpl)), nil
}
