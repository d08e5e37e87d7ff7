package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/guidoenr/beatmeter/internal/analyzer"
	"github.com/guidoenr/beatmeter/internal/params"
	"github.com/guidoenr/beatmeter/internal/tempo"
)

func plainRenderer(t *testing.T, width, height int, pattern string) *Renderer {
	t.Helper()
	r, err := New(width, height, "default", pattern, "chromatic", false)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestNewRejectsInvalidDimensions(t *testing.T) {
	if _, err := New(0, 10, "", "", "", false); err == nil {
		t.Fatal("expected error for zero width")
	}
}

func TestRenderProducesFixedSizeFrame(t *testing.T) {
	r := plainRenderer(t, 40, 10, "bars")
	bins := make([]float64, 64)
	for i := range bins {
		bins[i] = float64(i) / 63
	}
	frame := r.Render(params.Defaults(), tempo.Estimate{BPM: 128, BeatIntensity: 0.5}, analyzer.Result{Bins: bins}, 60)

	if len(frame.Lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(frame.Lines))
	}
	for i, line := range frame.Lines {
		if n := utf8.RuneCountInString(line); n != 40 {
			t.Fatalf("line %d has %d runes: %q", i, n, line)
		}
	}
	if !strings.HasPrefix(frame.Lines[0], " 128 BPM") {
		t.Fatalf("unexpected header %q", frame.Lines[0])
	}
	if !strings.Contains(frame.Status, "bpm 128") {
		t.Fatalf("status missing bpm: %q", frame.Status)
	}
}

func TestHeaderMarksBeatAndOverride(t *testing.T) {
	r := plainRenderer(t, 60, 1, "bars")
	p := params.Defaults()
	p.Beat = 6

	frame := r.Render(p, tempo.Estimate{BPM: 140, Overridden: true}, analyzer.Result{}, 30)
	header := frame.Lines[0]
	if !strings.Contains(header, "○ ● ○ ○") {
		t.Fatalf("expected second marker lit, got %q", header)
	}
	if !strings.Contains(header, "[override]") {
		t.Fatalf("expected override marker, got %q", header)
	}
}

func TestIntensityBarFill(t *testing.T) {
	r := plainRenderer(t, 27, 2, "bars")
	frame := r.Render(params.Defaults(), tempo.Estimate{BPM: 120, BeatIntensity: 0.5}, analyzer.Result{}, 30)

	bar := frame.Lines[1]
	if bar != "beat [@@@@@@@@@@----------]" {
		t.Fatalf("unexpected bar %q", bar)
	}
}

func TestSpectrumColumnHeights(t *testing.T) {
	r := plainRenderer(t, 4, 6, "bars")
	bins := []float64{0, 1, 0.5, 0}
	frame := r.Render(params.Defaults(), tempo.Estimate{BPM: 120}, analyzer.Result{Bins: bins}, 30)

	spectrum := frame.Lines[2:]
	for y, line := range spectrum {
		cells := []rune(line)
		if cells[0] != ' ' || cells[3] != ' ' {
			t.Fatalf("row %d: silent columns should be blank, got %q", y, line)
		}
		if cells[1] == ' ' {
			t.Fatalf("row %d: full column should be lit, got %q", y, line)
		}
	}
	if []rune(spectrum[0])[2] != ' ' {
		t.Fatalf("half column should not reach the top row, got %q", spectrum[0])
	}
	if []rune(spectrum[3])[2] == ' ' {
		t.Fatalf("half column should fill the bottom row, got %q", spectrum[3])
	}
}

func TestRenderWithANSIWrapsColor(t *testing.T) {
	r, err := New(20, 4, "blocks", "mirror", "fire", true)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	frame := r.Render(params.Defaults(), tempo.Estimate{BPM: 120, BeatIntensity: 1}, analyzer.Result{Bins: []float64{1, 1}}, 30)
	for i, line := range frame.Lines {
		if !strings.Contains(line, "\x1b[38;5;") {
			t.Fatalf("line %d missing color code: %q", i, line)
		}
	}
}

func TestConfigureFallsBack(t *testing.T) {
	r := plainRenderer(t, 10, 3, "nope")
	if r.PatternName() != "bars" {
		t.Fatalf("expected bars fallback, got %s", r.PatternName())
	}
	r.Configure("spark", "peaks", "aurora")
	if r.PaletteName() != "spark" || r.PatternName() != "peaks" || r.ColorModeName() != "aurora" {
		t.Fatalf("configure not applied: %s %s %s", r.PaletteName(), r.PatternName(), r.ColorModeName())
	}
	r.Resize(0, 8)
	if w, h := r.Size(); w != 10 || h != 8 {
		t.Fatalf("unexpected size %dx%d", w, h)
	}
}

func TestNames(t *testing.T) {
	if got := strings.Join(PatternNames(), ","); got != "bars,mirror,peaks,pulse" {
		t.Fatalf("unexpected patterns %s", got)
	}
	if got := strings.Join(ColorModeNames(), ","); got != "aurora,chromatic,fire,mono" {
		t.Fatalf("unexpected color modes %s", got)
	}
	for _, name := range PaletteNames() {
		if len(Palette(name)) < 2 {
			t.Fatalf("palette %s too short", name)
		}
	}
}

func TestHSVConversion(t *testing.T) {
	r, g, b := hsvToRGB(0, 1, 1)
	if r != 1 || g != 0 || b != 0 {
		t.Fatalf("expected pure red, got %f %f %f", r, g, b)
	}
	if idx := rgbToANSI(0.5, 0.5, 0.5); idx < 232 {
		t.Fatalf("expected grayscale index, got %d", idx)
	}
	if idx := rgbToANSI(1, 0, 0); idx != 196 {
		t.Fatalf("expected 196 for red, got %d", idx)
	}
}
