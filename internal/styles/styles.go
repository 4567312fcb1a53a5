// Package styles provides the fixed catalog of headshot style presets.
//
// Instruction texts are stored as text files under prompts/ and embedded at
// compile time so they can be edited without touching Go code.
package styles

import (
	_ "embed"
	"strings"
)

// CustomID is the reserved preset whose instruction is supplied by the user
// at generation time.
const CustomID = "custom"

// Style is a named, pre-authored editing instruction plus display metadata.
type Style struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// Instruction is the text sent to the model. Empty for CustomID.
	Instruction string `json:"instruction,omitempty"`
}

// IsCustom reports whether the instruction for this style comes from the user.
func (s Style) IsCustom() bool {
	return s.ID == CustomID
}

//go:embed prompts/corporate.txt
var corporatePrompt string

//go:embed prompts/tech.txt
var techPrompt string

//go:embed prompts/outdoor.txt
var outdoorPrompt string

//go:embed prompts/studio-bw.txt
var studioBWPrompt string

//go:embed prompts/creative.txt
var creativePrompt string

var catalog = []Style{
	{
		ID:          "corporate",
		Name:        "Corporate",
		Description: "Professional grey backdrop, business suit, perfect for LinkedIn.",
		Instruction: strings.TrimSpace(corporatePrompt),
	},
	{
		ID:          "tech",
		Name:        "Modern Tech",
		Description: "Bright modern office background, smart casual attire.",
		Instruction: strings.TrimSpace(techPrompt),
	},
	{
		ID:          "outdoor",
		Name:        "Natural Light",
		Description: "Outdoor setting with soft bokeh, approachable vibe.",
		Instruction: strings.TrimSpace(outdoorPrompt),
	},
	{
		ID:          "studio-bw",
		Name:        "Studio B&W",
		Description: "High contrast black and white artistic portrait.",
		Instruction: strings.TrimSpace(studioBWPrompt),
	},
	{
		ID:          "creative",
		Name:        "Creative",
		Description: "Vibrant colorful background, bold artistic lighting.",
		Instruction: strings.TrimSpace(creativePrompt),
	},
	{
		ID:          CustomID,
		Name:        "Custom Edit",
		Description: "Describe your own style or edit request.",
	},
}

// List returns the presets in display order. The returned slice is a copy.
func List() []Style {
	out := make([]Style, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the preset with the given id.
func Lookup(id string) (Style, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}
