package render

var (
	defaultPalette = []rune(" .:-=+*#%@")
	blocksPalette  = []rune(" ▁▂▃▄▅▆▇█")
	boxPalette     = []rune(" ░▒▓█")
	sparkPalette   = []rune(" ·˙•oO@")
)

// Palette returns the glyph ramp used for bar cells, dimmest first.
func Palette(name string) []rune {
	switch name {
	case "blocks":
		return blocksPalette
	case "box":
		return boxPalette
	case "spark":
		return sparkPalette
	default:
		return defaultPalette
	}
}

// PaletteNames returns all palette identifiers.
func PaletteNames() []string {
	return []string{"default", "blocks", "box", "spark"}
}
