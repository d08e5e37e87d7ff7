//go:build sdl

package render

import (
	"fmt"
	"math"

	"github.com/guidoenr/beatmeter/internal/analyzer"
	"github.com/guidoenr/beatmeter/internal/params"
	"github.com/guidoenr/beatmeter/internal/tempo"
	"github.com/veandco/go-sdl2/sdl"
)

// Window draws the meter as filled rectangles in an SDL window.
type Window struct {
	meter       *Renderer
	window      *sdl.Window
	renderer    *sdl.Renderer
	width       int32
	height      int32
	windowTitle string
	rects       []sdl.Rect
}

// OpenWindow creates a window of the given pixel size. meter supplies color
// mode and spectrum style.
func OpenWindow(meter *Renderer, width, height int) (*Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid window size: %dx%d", width, height)
	}
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	window, err := sdl.CreateWindow(
		"beatmeter",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(width), int32(height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE,
	)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("create window: %w", err)
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	return &Window{
		meter:    meter,
		window:   window,
		renderer: renderer,
		width:    int32(width),
		height:   int32(height),
	}, nil
}

// Present draws one frame and pumps window events. It returns ErrWindowClosed
// once the user closes the window.
func (w *Window) Present(p params.Parameters, est tempo.Estimate, res analyzer.Result, status string) error {
	if status != "" && status != w.windowTitle {
		w.window.SetTitle(status)
		w.windowTitle = status
	}
	width, height := w.window.GetSize()
	if width > 0 && height > 0 {
		w.width, w.height = width, height
	}

	bg := uint8(clampFloat(p.Flash*40, 0, 40))
	if err := w.renderer.SetDrawColor(bg, bg, bg, 255); err != nil {
		return err
	}
	if err := w.renderer.Clear(); err != nil {
		return err
	}

	// intensity strip along the top tenth
	strip := w.height / 10
	h, s, v := w.meter.colorFromMode(1, 0.4+0.6*est.BeatIntensity, p)
	if err := w.fill(h, s, v, sdl.Rect{X: 0, Y: 0, W: int32(float64(w.width) * clamp01(est.BeatIntensity)), H: strip}); err != nil {
		return err
	}

	bins := res.Bins
	if n := int32(len(bins)); n > 0 {
		colWidth := w.width / n
		if colWidth < 1 {
			colWidth = 1
		}
		area := float64(w.height - strip)
		for i, level := range bins {
			level = clamp01(level)
			barHeight := int32(math.Round(level * area))
			if barHeight <= 0 {
				continue
			}
			pos := float64(i) / float64(len(bins))
			h, s, v := w.meter.colorFromMode(pos, clamp01(w.meter.pattern(level, level, p)), p)
			rect := sdl.Rect{X: int32(i) * colWidth, Y: w.height - barHeight, W: colWidth - 1, H: barHeight}
			if err := w.fill(h, s, v, rect); err != nil {
				return err
			}
		}
	}

	w.renderer.Present()
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch event.(type) {
		case *sdl.QuitEvent:
			return ErrWindowClosed
		}
	}
	return nil
}

func (w *Window) fill(h, s, v float64, rect sdl.Rect) error {
	rr, gg, bb := hsvToRGB(h, s, v)
	if err := w.renderer.SetDrawColor(uint8(rr*255), uint8(gg*255), uint8(bb*255), 255); err != nil {
		return err
	}
	return w.renderer.FillRect(&rect)
}

// Close destroys the window.
func (w *Window) Close() error {
	if w.renderer != nil {
		w.renderer.Destroy()
		w.renderer = nil
	}
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
	}
	return nil
}

func SupportsSDL() bool { return true }
