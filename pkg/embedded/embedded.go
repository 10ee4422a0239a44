package embedded

import (
	_ "embed"
)

// Embed all prompt data files
//
//go:embed data/prompts/genre_instructions.txt
var GenreInstructionsTxt []byte

//go:embed data/prompts/genre_user.tmpl
var GenreUserTmpl []byte
