package generation

import (
	"fmt"
	"strings"
)

// promptTable maps each style to its base instruction. Templates take the
// optional child's name through BuildPrompt, which appends the
// personalisation clause.
var promptTable = map[Style]string{
	StyleClassic: "Convert this photo into a classic coloring book page: " +
		"clean black outlines on a pure white background, medium line weight, " +
		"no shading, no gray fills, printable at A4.",
	StyleBold: "Convert this photo into a toddler-friendly coloring page: " +
		"very thick bold outlines, large simple shapes, minimal detail, " +
		"pure white background, no shading.",
	StyleKawaii: "Redraw this photo as a cute kawaii-style coloring page: " +
		"rounded simplified shapes, big expressive eyes, clean black outlines " +
		"on a white background, no shading or color.",
	StylePortrait: "Turn this portrait photo into a detailed coloring page: " +
		"faithful facial features traced as clean black line art, " +
		"white background, fine but printable line weight, no shading.",
}

// BuildPrompt resolves the prompt for a style, optionally personalised with
// a child's name rendered as a decorative caption.
func BuildPrompt(style Style, childName string) (string, error) {
	base, ok := promptTable[style]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidStyle, style)
	}

	name := strings.TrimSpace(childName)
	if name == "" {
		return base, nil
	}
	return fmt.Sprintf("%s Add the name %q in large hollow outlined letters suitable for coloring, centered at the top of the page.", base, name), nil
}
