package render

import (
	"math"
	"sort"

	"github.com/guidoenr/beatmeter/internal/params"
)

// patternFunc shades one spectrum cell. level is the column value in [0,1],
// row runs from 0 at the bottom to 1 at the top. The result is a glyph
// brightness in [0,1]; 0 leaves the cell blank.
type patternFunc func(level, row float64, p params.Parameters) float64

var patternRegistry = map[string]patternFunc{
	"bars":   patternBars,
	"mirror": patternMirror,
	"pulse":  patternPulse,
	"peaks":  patternPeaks,
}

// PatternNames returns the available spectrum styles.
func PatternNames() []string {
	names := make([]string, 0, len(patternRegistry))
	for name := range patternRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func patternBars(level, row float64, p params.Parameters) float64 {
	if row > level {
		return 0
	}
	// brighter toward the tip of the bar
	return 0.35 + 0.65*row/math.Max(level, 1e-9)
}

func patternMirror(level, row float64, p params.Parameters) float64 {
	dist := math.Abs(row-0.5) * 2
	if dist > level {
		return 0
	}
	return 1 - 0.6*dist
}

func patternPulse(level, row float64, p params.Parameters) float64 {
	scaled := level * (0.5 + 0.5*p.Pulse)
	if row > scaled {
		return 0
	}
	return clamp01(0.4 + 0.6*p.Pulse)
}

func patternPeaks(level, row float64, p params.Parameters) float64 {
	if level <= 0 {
		return 0
	}
	top := math.Abs(row - level)
	if top < 0.08 {
		return 1
	}
	if row < level {
		return 0.2
	}
	return 0
}
