package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownStyle = errors.New("unknown design style")

// Style is one of the fixed interior-design aesthetics a room can be
// redesigned in. The value is the human-readable label that is inserted
// into the generation prompt.
type Style string

const (
	StyleModern       Style = "Modern"
	StyleMinimalist   Style = "Minimalist"
	StyleBohemian     Style = "Bohemian"
	StyleIndustrial   Style = "Industrial"
	StyleScandinavian Style = "Scandinavian"
	StyleMidCentury   Style = "Mid-Century Modern"
	StyleArtDeco      Style = "Art Deco"
	StyleCoastal      Style = "Coastal"
)

// Styles returns the vocabulary in display order.
func Styles() []Style {
	return []Style{
		StyleModern,
		StyleMinimalist,
		StyleBohemian,
		StyleIndustrial,
		StyleScandinavian,
		StyleMidCentury,
		StyleArtDeco,
		StyleCoastal,
	}
}

func (s Style) String() string {
	return string(s)
}

func (s Style) IsValid() bool {
	for _, known := range Styles() {
		if s == known {
			return true
		}
	}
	return false
}

// Prompt is the instruction sent with the current design when restyling.
func (s Style) Prompt() string {
	return fmt.Sprintf("Redesign this room in a %s interior design style. "+
		"Keep the structural layout, windows, and perspective exactly the same. "+
		"Replace furniture and decor to match the %s aesthetic. "+
		"High quality, photorealistic, interior design photography.", s, s)
}

// ParseStyle accepts a label in any case, with spaces, hyphens or nothing
// between words ("art deco", "ArtDeco", "mid-century-modern"). "mid-century"
// and "midcentury" are accepted for Mid-Century Modern.
func ParseStyle(s string) (Style, error) {
	key := styleKey(s)
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknownStyle)
	}
	for _, style := range Styles() {
		if styleKey(style.String()) == key {
			return style, nil
		}
	}
	if key == "midcentury" {
		return StyleMidCentury, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStyle, s)
}

func styleKey(s string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

// EditPrompt wraps a free-text user instruction for the image model.
func EditPrompt(instruction string) string {
	return fmt.Sprintf("Edit this image. Instruction: %s. Maintain photorealism and perspective.", instruction)
}
