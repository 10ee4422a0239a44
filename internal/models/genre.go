package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// HexColorPattern is the pattern every palette entry must match
const HexColorPattern = "^#([0-9A-Fa-f]{6})$"

// Enum values accepted for the visuals block
var (
	FontStyles  = []string{"sans", "serif", "mono", "display", "hand", "blackletter"}
	FontWeights = []string{"200", "300", "400", "500", "600", "700", "800", "900"}
	Textures    = []string{"grain", "gloss", "paper", "vhs", "nebula", "neon", "linen", "noise"}
	Shapes      = []string{"waves", "grid", "dots", "stripes", "rings", "spray", "burst", "checker"}
)

// PaletteKeys lists the palette slots in display order
var PaletteKeys = []string{"bg", "primary", "secondary", "accent", "text"}

// GenreCard is an invented music micro-genre as returned to the front end
type GenreCard struct {
	Title   string  `json:"title"`
	Tagline string  `json:"tagline"`
	Palette Palette `json:"palette"`
	Visuals Visuals `json:"visuals"`
}

// Palette holds the five card colors as #RRGGBB strings
type Palette struct {
	Bg        string `json:"bg"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
	Text      string `json:"text"`
}

// Visuals describes the typographic and background treatment of a card
type Visuals struct {
	FontStyle string `json:"font_style"`
	Weight    string `json:"weight"`
	Texture   string `json:"texture"`
	Shape     string `json:"shape"`
	Mood      string `json:"mood"`
}

// cardDocument is a model reply before it becomes a GenreCard. Pointer fields
// tell a missing key apart from an empty value; the rules are exactly the
// output schema's: every key present, hex palette entries, enum visuals.
// Free text (title, tagline, mood) is taken as is.
type cardDocument struct {
	Title   *string          `json:"title" validate:"required"`
	Tagline *string          `json:"tagline" validate:"required"`
	Palette *paletteDocument `json:"palette" validate:"required"`
	Visuals *visualsDocument `json:"visuals" validate:"required"`
}

type paletteDocument struct {
	Bg        *string `json:"bg" validate:"required,hexcolor6"`
	Primary   *string `json:"primary" validate:"required,hexcolor6"`
	Secondary *string `json:"secondary" validate:"required,hexcolor6"`
	Accent    *string `json:"accent" validate:"required,hexcolor6"`
	Text      *string `json:"text" validate:"required,hexcolor6"`
}

type visualsDocument struct {
	FontStyle *string `json:"font_style" validate:"required,oneof=sans serif mono display hand blackletter"`
	Weight    *string `json:"weight" validate:"required,oneof=200 300 400 500 600 700 800 900"`
	Texture   *string `json:"texture" validate:"required,oneof=grain gloss paper vhs nebula neon linen noise"`
	Shape     *string `json:"shape" validate:"required,oneof=waves grid dots stripes rings spray burst checker"`
	Mood      *string `json:"mood" validate:"required"`
}

func (d *cardDocument) card() *GenreCard {
	return &GenreCard{
		Title:   *d.Title,
		Tagline: *d.Tagline,
		Palette: Palette{
			Bg:        *d.Palette.Bg,
			Primary:   *d.Palette.Primary,
			Secondary: *d.Palette.Secondary,
			Accent:    *d.Palette.Accent,
			Text:      *d.Palette.Text,
		},
		Visuals: Visuals{
			FontStyle: *d.Visuals.FontStyle,
			Weight:    *d.Visuals.Weight,
			Texture:   *d.Visuals.Texture,
			Shape:     *d.Visuals.Shape,
			Mood:      *d.Visuals.Mood,
		},
	}
}

// ValidationError lists the card fields that failed validation
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("genre card failed validation: %s", strings.Join(e.Fields, ", "))
}

var (
	hexColorRe = regexp.MustCompile(HexColorPattern)

	validateOnce sync.Once
	validate     *validator.Validate
)

func cardValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report JSON names instead of Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
			return hexColorRe.MatchString(fl.Field().String())
		})

		validate = v
	})
	return validate
}

// ParseGenreCard decodes a model reply into a GenreCard. Invalid JSON comes
// back as the decoder error; a reply that breaks the output schema comes back
// as a *ValidationError.
func ParseGenreCard(data []byte) (*GenreCard, error) {
	var doc cardDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	err := cardValidator().Struct(&doc)
	if err == nil {
		return doc.card(), nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace looks like "cardDocument.palette.bg"
		ns := fe.Namespace()
		if idx := strings.Index(ns, "."); idx >= 0 {
			ns = ns[idx+1:]
		}
		fields = append(fields, fmt.Sprintf("%s (%s)", ns, fe.Tag()))
	}
	sort.Strings(fields)

	return nil, &ValidationError{Fields: fields}
}
