package render

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/guidoenr/beatmeter/internal/analyzer"
	"github.com/guidoenr/beatmeter/internal/params"
	"github.com/guidoenr/beatmeter/internal/tempo"
)

type colorMode string

const (
	colorModeChromatic colorMode = "chromatic"
	colorModeFire      colorMode = "fire"
	colorModeAurora    colorMode = "aurora"
	colorModeMono      colorMode = "mono"
)

var colorModeNames = []string{
	string(colorModeChromatic),
	string(colorModeFire),
	string(colorModeAurora),
	string(colorModeMono),
}

// ColorModeNames returns the supported color modes.
func ColorModeNames() []string {
	out := make([]string, len(colorModeNames))
	copy(out, colorModeNames)
	sort.Strings(out)
	return out
}

func parseColorMode(name string) colorMode {
	switch strings.ToLower(name) {
	case "fire":
		return colorModeFire
	case "aurora", "cool":
		return colorModeAurora
	case "mono", "monochrome", "bw", "gray":
		return colorModeMono
	default:
		return colorModeChromatic
	}
}

const beatMarkers = 4

// Renderer draws the beat meter: a BPM header, an intensity bar and the
// spectrum underneath.
type Renderer struct {
	width         int
	height        int
	palette       []rune
	paletteName   string
	pattern       patternFunc
	patternName   string
	colorMode     colorMode
	useANSI       bool
	columns       []float64
	statusBuilder strings.Builder
}

// Frame contains the rendered lines and status text.
type Frame struct {
	Lines  []string
	Status string
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

// New creates a Renderer.
func New(width, height int, paletteName, patternName, colorModeName string, useANSI bool) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: width=%d height=%d", width, height)
	}

	r := &Renderer{
		width:   width,
		height:  height,
		useANSI: useANSI,
	}
	r.Configure(paletteName, patternName, colorModeName)
	return r, nil
}

// Configure updates palette, spectrum style and color mode.
func (r *Renderer) Configure(paletteName, patternName, colorModeName string) {
	if paletteName == "" {
		paletteName = "default"
	}
	r.palette = Palette(paletteName)
	r.paletteName = paletteName

	key := strings.ToLower(patternName)
	if fn, ok := patternRegistry[key]; ok {
		r.pattern = fn
		r.patternName = key
	} else {
		r.pattern = patternBars
		r.patternName = "bars"
	}

	r.colorMode = parseColorMode(colorModeName)
}

// Resize updates the frame dimensions. Non-positive values are ignored.
func (r *Renderer) Resize(width, height int) {
	if width > 0 {
		r.width = width
	}
	if height > 0 {
		r.height = height
	}
}

func (r *Renderer) PaletteName() string { return r.paletteName }
func (r *Renderer) PatternName() string { return r.patternName }
func (r *Renderer) ColorModeName() string {
	return string(r.colorMode)
}

// Size returns the current frame dimensions.
func (r *Renderer) Size() (int, int) {
	return r.width, r.height
}

// Render draws one frame.
func (r *Renderer) Render(p params.Parameters, est tempo.Estimate, res analyzer.Result, fps float64) Frame {
	if r.width <= 0 || r.height <= 0 {
		return Frame{}
	}

	lines := make([]string, r.height)
	lines[0] = r.header(p, est)
	if r.height > 1 {
		lines[1] = r.intensityBar(p, est.BeatIntensity)
	}
	if r.height > 2 {
		r.renderSpectrum(lines[2:], p, res.Bins)
	}

	return Frame{
		Lines:  lines,
		Status: r.buildStatus(est, res.Features, fps),
	}
}

func (r *Renderer) header(p params.Parameters, est tempo.Estimate) string {
	var b strings.Builder
	b.WriteString(" ")
	b.WriteString(strconv.Itoa(int(math.Round(est.BPM))))
	b.WriteString(" BPM  ")
	lit := -1
	if p.Beat > 0 {
		lit = (p.Beat - 1) % beatMarkers
	}
	for i := 0; i < beatMarkers; i++ {
		if i == lit {
			b.WriteRune('●')
		} else {
			b.WriteRune('○')
		}
		b.WriteRune(' ')
	}
	if est.Overridden {
		b.WriteString(" [override]")
	}

	line := fit(b.String(), r.width)
	if !r.useANSI {
		return line
	}
	h, s, v := r.colorFromMode(0, clamp01(0.5+0.5*p.Flash), p)
	return colorCode(hsvToANSI(h, s, v)) + line + resetANSI
}

func (r *Renderer) intensityBar(p params.Parameters, intensity float64) string {
	const label = "beat ["
	inner := r.width - len(label) - 1
	if inner < 1 {
		return fit(label, r.width)
	}

	filled := int(math.Round(clamp01(intensity) * float64(inner)))
	glyph := r.palette[len(r.palette)-1]

	var b strings.Builder
	b.Grow(r.width * 4)
	b.WriteString(label)
	if r.useANSI && filled > 0 {
		h, s, v := r.colorFromMode(1, clamp01(0.4+0.6*intensity), p)
		b.WriteString(colorCode(hsvToANSI(h, s, v)))
	}
	for i := 0; i < inner; i++ {
		if i == filled && r.useANSI && filled > 0 {
			b.WriteString(resetANSI)
		}
		if i < filled {
			b.WriteRune(glyph)
		} else {
			b.WriteRune('-')
		}
	}
	if r.useANSI && filled == inner && filled > 0 {
		b.WriteString(resetANSI)
	}
	b.WriteRune(']')
	return b.String()
}

// renderSpectrum fills lines, top row first, with one column per terminal
// cell resampled from bins.
func (r *Renderer) renderSpectrum(lines []string, p params.Parameters, bins []float64) {
	width := r.width
	rows := len(lines)
	r.resampleColumns(bins)
	columns := r.columns
	useANSI := r.useANSI

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > rows {
		numWorkers = rows
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup
	rowJobs := make(chan int, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rowJobs {
				var builder strings.Builder
				builder.Grow(width * 8)
				lastColor := -1
				row := (float64(rows-1-y) + 0.5) / float64(rows)
				for x := 0; x < width; x++ {
					char, fg := r.sampleCell(columns[x], row, float64(x)/float64(width), p)
					if useANSI && fg != lastColor {
						builder.WriteString(colorCode(fg))
						lastColor = fg
					}
					builder.WriteRune(char)
				}
				if useANSI {
					builder.WriteString(resetANSI)
				}
				lines[y] = builder.String()
			}
		}()
	}

	for y := 0; y < rows; y++ {
		rowJobs <- y
	}
	close(rowJobs)
	wg.Wait()
}

func (r *Renderer) resampleColumns(bins []float64) {
	if len(r.columns) != r.width {
		r.columns = make([]float64, r.width)
	}
	if len(bins) == 0 {
		clear(r.columns)
		return
	}
	for x := range r.columns {
		idx := x * len(bins) / r.width
		r.columns[x] = clamp01(bins[idx])
	}
}

func (r *Renderer) sampleCell(level, row, pos float64, p params.Parameters) (rune, int) {
	brightness := clamp01(r.pattern(level, row, p))
	if brightness == 0 {
		return ' ', 15
	}
	index := clampInt(int(brightness*float64(len(r.palette)-1)+0.5), 1, len(r.palette)-1)

	colorIndex := 15
	if r.useANSI {
		h, s, v := r.colorFromMode(pos, brightness*p.Brightness/0.6, p)
		colorIndex = hsvToANSI(h, s, v)
	}
	return r.palette[index], colorIndex
}

// colorFromMode maps a horizontal position in [0,1] and a brightness to HSV.
func (r *Renderer) colorFromMode(pos, brightness float64, p params.Parameters) (float64, float64, float64) {
	brightness = clamp01(brightness)
	var h, s, v float64
	switch r.colorMode {
	case colorModeFire:
		h = clamp01(0.02 + pos*0.1 + p.Pulse*0.03)
		s = clamp01(0.7 + brightness*0.25)
		v = clamp01(0.35 + brightness*0.65)
	case colorModeAurora:
		h = clamp01(0.45 + pos*0.25 + p.Hue*0.1)
		s = clamp01(0.45 + p.Saturation*0.45)
		v = clamp01(0.28 + brightness*0.72)
	case colorModeMono:
		h = 0
		s = 0
		v = brightness
	default:
		h = math.Mod(p.Hue+pos*0.35, 1)
		s = clamp01(0.35 + p.Saturation*0.5)
		v = clamp01(0.2 + brightness*0.8)
	}
	return h, s, v
}

func (r *Renderer) buildStatus(est tempo.Estimate, feat analyzer.Features, fps float64) string {
	builder := &r.statusBuilder
	builder.Reset()
	builder.Grow(128)
	builder.WriteString(colorModeLabel(r.colorMode))
	builder.WriteString(" | palette=")
	builder.WriteString(r.paletteName)
	builder.WriteString(" style=")
	builder.WriteString(r.patternName)
	builder.WriteString(" | bpm ")
	appendFloat(builder, est.BPM, 0)
	if est.Overridden {
		builder.WriteString(" (override)")
	}
	builder.WriteString(" beat ")
	appendFloat(builder, est.BeatIntensity, 2)
	builder.WriteString(" | bass ")
	appendFloat(builder, feat.Bass, 2)
	builder.WriteString(" mid ")
	appendFloat(builder, feat.Mid, 2)
	builder.WriteString(" treble ")
	appendFloat(builder, feat.Treble, 2)
	builder.WriteString(" fps ")
	appendFloat(builder, fps, 1)
	return builder.String()
}

func colorModeLabel(mode colorMode) string {
	switch mode {
	case colorModeFire:
		return "FIRE"
	case colorModeAurora:
		return "AURORA"
	case colorModeMono:
		return "MONO"
	default:
		return "CHROMATIC"
	}
}

// fit pads or truncates s to exactly width runes.
func fit(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index >= len(precomputedANSI) {
		index = len(precomputedANSI) - 1
	}
	return precomputedANSI[index]
}

func hsvToANSI(h, s, v float64) int {
	r, g, b := hsvToRGB(h, s, v)
	return rgbToANSI(r, g, b)
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	h = clamp01(h)
	s = clamp01(s)
	v = clamp01(v)

	if s == 0 {
		return v, v, v
	}

	hv := h * 6.0
	i := math.Floor(hv)
	f := hv - i
	p := v * (1.0 - s)
	q := v * (1.0 - s*f)
	t := v * (1.0 - s*(1.0-f))

	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	// grayscale ramp for unsaturated colors
	if math.Abs(r-g) < 0.02 && math.Abs(g-b) < 0.02 {
		gray := int(clampFloat(math.Round(r*23), 0, 23))
		return 232 + gray
	}

	ri := int(clampFloat(r*5+0.5, 0, 5))
	gi := int(clampFloat(g*5+0.5, 0, 5))
	bi := int(clampFloat(b*5+0.5, 0, 5))

	return 16 + 36*ri + 6*gi + bi
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func appendFloat(builder *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], value, 'f', precision, 64)
	builder.Write(b)
}
