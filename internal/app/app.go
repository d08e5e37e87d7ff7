package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/beatmeter/internal/analyzer"
	"github.com/guidoenr/beatmeter/internal/audio"
	"github.com/guidoenr/beatmeter/internal/config"
	"github.com/guidoenr/beatmeter/internal/params"
	"github.com/guidoenr/beatmeter/internal/render"
	"github.com/guidoenr/beatmeter/internal/tempo"
	"golang.org/x/term"
)

// ErrUnknownSource is returned when a source index is out of range.
var ErrUnknownSource = errors.New("app: unknown source")

// ErrInvalidTempo is returned for a negative or non-finite override.
var ErrInvalidTempo = errors.New("app: invalid tempo")

var errQuit = errors.New("quit")

// Config configures the application runtime.
type Config struct {
	DeviceName    string
	WavPath       string
	SyntheticBPM  float64
	DisableAudio  bool
	Width         int
	Height        int
	TargetFPS     float64
	BufferSize    int
	Bins          int
	NoiseFloor    float64
	Tempo         float64
	ShowStatusBar bool
	Palette       string
	Style         string
	ColorMode     string
	UseANSI       bool
	Window        bool
	ProfilePath   string
	Estimator     tempo.Config
	Normalizer    tempo.Normalizer
	// Sources replaces the sources built from the fields above.
	Sources []SourceFactory
	Output  io.Writer
	Log     *log.Logger
}

// SourceFactory opens a fresh instance of one selectable source.
type SourceFactory struct {
	Label string
	Open  func() (audio.Source, error)
}

// Status is the snapshot published to the web layer after every tick.
type Status struct {
	Estimate    tempo.Estimate    `json:"estimate"`
	Features    analyzer.Features `json:"features"`
	FPS         float64           `json:"fps"`
	Source      string            `json:"source"`
	SourceIndex int               `json:"sourceIndex"`
	Override    float64           `json:"override"`
	Onsets      int               `json:"onsets"`
	Beat        int               `json:"beat"`
}

type inputEvent int

const (
	inputEventQuit inputEvent = iota
	inputEventReset
	inputEventNextSource
	inputEventToggleOverride
)

// App ties together a source, analysis, tempo estimation and rendering.
type App struct {
	cfg        Config
	log        *log.Logger
	out        io.Writer
	factories  []SourceFactory
	source     audio.Source
	analyzer   *analyzer.Analyzer
	estimator  *tempo.Estimator
	normalizer tempo.Normalizer
	frame      []float64
	renderer   *render.Renderer
	window     *render.Window
	profiler   *profiler
	last       time.Time

	width        int
	height       int
	renderHeight int
	inputEvents  chan inputEvent

	pendingReset  atomic.Bool
	pendingSource atomic.Int32

	mu       sync.RWMutex
	params   params.Parameters
	status   Status
	override float64
	active   int
}

// New constructs the application and starts its first source.
func New(cfg Config) (*App, error) {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "", log.LstdFlags)
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	if cfg.Height <= 0 {
		cfg.Height = 24
	}
	if cfg.Bins <= 0 {
		cfg.Bins = 64
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 2048
	}
	if cfg.Tempo < 0 || math.IsNaN(cfg.Tempo) || math.IsInf(cfg.Tempo, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTempo, cfg.Tempo)
	}
	if cfg.Normalizer == (tempo.Normalizer{}) {
		cfg.Normalizer = tempo.DefaultNormalizer()
	}
	renderHeight := cfg.Height
	if cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}

	renderer, err := render.New(cfg.Width, renderHeight, cfg.Palette, cfg.Style, cfg.ColorMode, cfg.UseANSI)
	if err != nil {
		return nil, err
	}

	factories := cfg.Sources
	if len(factories) == 0 {
		factories = defaultSources(cfg)
	}

	p := params.Defaults()
	p.Palette = renderer.PaletteName()
	p.Style = renderer.PatternName()
	p.ColorMode = renderer.ColorModeName()

	app := &App{
		cfg:          cfg,
		log:          cfg.Log,
		out:          cfg.Output,
		factories:    factories,
		estimator:    tempo.New(cfg.Estimator),
		normalizer:   cfg.Normalizer,
		renderer:     renderer,
		profiler:     newProfiler(cfg.ProfilePath, cfg.Log),
		width:        cfg.Width,
		height:       cfg.Height,
		renderHeight: renderHeight,
		params:       p,
		override:     cfg.Tempo,
	}
	app.pendingSource.Store(-1)

	if err := app.openFirstSource(); err != nil {
		app.profiler.Close()
		return nil, err
	}

	if cfg.Window {
		window, err := render.OpenWindow(renderer, cfg.Width*8, cfg.Height*16)
		if err != nil {
			app.log.Printf("window disabled: %v", err)
		} else {
			app.window = window
		}
	}

	app.last = time.Now()
	return app, nil
}

// defaultSources lists the WAV file, the microphone and the synthetic
// generator in that order, skipping what the config disables.
func defaultSources(cfg Config) []SourceFactory {
	var out []SourceFactory
	if cfg.WavPath != "" {
		path := cfg.WavPath
		out = append(out, SourceFactory{
			Label: "wav",
			Open: func() (audio.Source, error) {
				return audio.OpenWav(audio.WavConfig{Path: path, Window: cfg.BufferSize})
			},
		})
	}
	if !cfg.DisableAudio {
		out = append(out, SourceFactory{
			Label: "mic",
			Open: func() (audio.Source, error) {
				return audio.NewCapture(audio.Config{
					DeviceName: cfg.DeviceName,
					BufferSize: cfg.BufferSize,
					Channels:   2,
				})
			},
		})
	}
	out = append(out, SourceFactory{
		Label: "synthetic",
		Open: func() (audio.Source, error) {
			return audio.NewSynthetic(audio.SyntheticConfig{BPM: cfg.SyntheticBPM, Window: cfg.BufferSize}), nil
		},
	})
	return out
}

func (a *App) openFirstSource() error {
	var errs []error
	for i, f := range a.factories {
		src, err := a.startSource(f)
		if err != nil {
			a.log.Printf("source %s unavailable: %v", f.Label, err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Label, err))
			continue
		}
		a.attach(i, src)
		return nil
	}
	if len(errs) == 0 {
		return fmt.Errorf("%w: no sources configured", ErrUnknownSource)
	}
	return fmt.Errorf("open source: %w", errors.Join(errs...))
}

func (a *App) startSource(f SourceFactory) (audio.Source, error) {
	src, err := f.Open()
	if err != nil {
		return nil, err
	}
	if err := src.Start(); err != nil {
		_ = src.Disconnect()
		return nil, err
	}
	return src, nil
}

// attach makes src the active source. Tick goroutine only.
func (a *App) attach(index int, src audio.Source) {
	a.source = src
	a.analyzer = analyzer.New(analyzer.Config{
		SampleRate: src.SampleRate(),
		Bins:       a.cfg.Bins,
	})
	a.estimator.Reset()

	a.mu.Lock()
	a.active = index
	a.status.Source = src.Name()
	a.status.SourceIndex = index
	a.params.ResetBeat()
	a.mu.Unlock()

	a.log.Printf("source %q started @ %.0f Hz", src.Name(), src.SampleRate())
}

func (a *App) switchSource(index int) {
	if index < 0 || index >= len(a.factories) {
		return
	}
	next, err := a.startSource(a.factories[index])
	if err != nil {
		a.log.Printf("switch to %s failed: %v", a.factories[index].Label, err)
		return
	}
	if a.source != nil {
		if err := a.source.Stop(); err != nil {
			a.log.Printf("stop %s: %v", a.source.Name(), err)
		}
		if err := a.source.Disconnect(); err != nil {
			a.log.Printf("disconnect %s: %v", a.source.Name(), err)
		}
	}
	a.attach(index, next)
}

// Run starts the render loop until context cancellation or quit.
func (a *App) Run(ctx context.Context) error {
	frameSeconds := 1.0 / a.cfg.TargetFPS
	frameDuration := time.Duration(frameSeconds * float64(time.Second))
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	a.enterAltScreen()
	a.clearScreen()
	a.hideCursor()
	defer func() {
		a.showCursor()
		a.exitAltScreen()
	}()

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	a.startInputListener(inputCtx)

	for {
		select {
		case <-ctx.Done():
			a.moveCursorHome()
			return ctx.Err()
		case evt, ok := <-a.inputEvents:
			if !ok {
				a.inputEvents = nil
				continue
			}
			if a.handleInput(evt) {
				a.moveCursorHome()
				return nil
			}
		case now := <-ticker.C:
			a.ensureDimensions()
			if err := a.step(now); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
		}
	}
}

// handleInput applies a key event and reports whether to quit.
func (a *App) handleInput(evt inputEvent) bool {
	switch evt {
	case inputEventQuit:
		return true
	case inputEventReset:
		a.RequestReset()
	case inputEventNextSource:
		a.mu.RLock()
		next := (a.active + 1) % len(a.factories)
		a.mu.RUnlock()
		a.pendingSource.Store(int32(next))
	case inputEventToggleOverride:
		a.toggleOverride()
	}
	return false
}

func (a *App) toggleOverride() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.override > 0 {
		a.override = 0
		a.log.Printf("tempo override cleared")
		return
	}
	bpm := a.cfg.Tempo
	if bpm <= 0 {
		bpm = math.Round(a.status.Estimate.BPM)
	}
	if bpm <= 0 {
		bpm = tempo.DefaultBPM
	}
	a.override = bpm
	a.log.Printf("tempo locked at %.0f BPM", bpm)
}

// Close releases held resources.
func (a *App) Close() error {
	var errs []error
	if a.window != nil {
		errs = append(errs, a.window.Close())
	}
	if a.source != nil {
		errs = append(errs, a.source.Stop(), a.source.Disconnect())
	}
	errs = append(errs, a.profiler.Close())
	return errors.Join(errs...)
}

func (a *App) applyPending() {
	if idx := a.pendingSource.Swap(-1); idx >= 0 {
		a.switchSource(int(idx))
	}
	if a.pendingReset.Swap(false) {
		a.estimator.Reset()
		a.mu.Lock()
		a.params.ResetBeat()
		a.mu.Unlock()
	}
}

func (a *App) step(now time.Time) error {
	a.profiler.beginFrame()
	defer a.profiler.endFrame()

	a.applyPending()

	delta := now.Sub(a.last).Seconds()
	if delta <= 0 {
		delta = 1.0 / a.cfg.TargetFPS
	}
	a.last = now

	res := a.analyzer.Analyze(a.source.Samples())
	feat := analyzer.GateFeatures(res.Features, a.cfg.NoiseFloor)
	a.profiler.markSection("analyze")

	var err error
	a.frame, err = a.normalizer.Normalize(a.frame, res.Bins)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	a.mu.RLock()
	override := a.override
	a.mu.RUnlock()

	est, err := a.estimator.Process(a.frame, now, override)
	if err != nil {
		return fmt.Errorf("estimate: %w", err)
	}
	a.profiler.markSection("estimate")

	fps := 1.0 / delta
	a.mu.Lock()
	a.params.ApplyEstimate(est, feat, delta)
	a.params.UpdateTime(delta)
	p := a.params
	a.status.Estimate = est
	a.status.Features = feat
	a.status.FPS = fps
	a.status.Override = override
	a.status.Onsets = a.estimator.OnsetCount()
	a.status.Beat = p.Beat
	source := a.status.Source
	a.mu.Unlock()

	shown := analyzer.Result{Bins: a.frame, Features: feat}
	frame := a.renderer.Render(p, est, shown, fps)
	statusText := "src=" + source + " | " + frame.Status
	a.profiler.markSection("render")

	a.moveCursorHome()
	var b strings.Builder
	for _, line := range frame.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if a.cfg.ShowStatusBar {
		b.WriteString(statusBar(statusText, a.width))
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(a.out, b.String()); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	if a.window != nil {
		if err := a.window.Present(p, est, shown, statusText); err != nil {
			if errors.Is(err, render.ErrWindowClosed) {
				return errQuit
			}
			return fmt.Errorf("present: %w", err)
		}
	}
	a.profiler.markSection("present")
	return nil
}

// Status returns the latest published snapshot.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := a.status
	st.Override = a.override
	return st
}

// Params returns the current display parameters.
func (a *App) Params() params.Parameters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.params
}

// Sources lists the selectable source labels in index order.
func (a *App) Sources() []string {
	out := make([]string, len(a.factories))
	for i, f := range a.factories {
		out[i] = f.Label
	}
	return out
}

// RequestReset asks the tick loop to clear estimator state before the next
// frame.
func (a *App) RequestReset() {
	a.pendingReset.Store(true)
}

// SetOverride fixes the reported tempo; 0 returns to detection.
func (a *App) SetOverride(bpm float64) error {
	if bpm < 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}
	a.mu.Lock()
	a.override = bpm
	a.mu.Unlock()
	return nil
}

// SelectSource switches to the source at index on the next tick.
func (a *App) SelectSource(index int) error {
	if index < 0 || index >= len(a.factories) {
		return fmt.Errorf("%w: %d", ErrUnknownSource, index)
	}
	a.pendingSource.Store(int32(index))
	return nil
}

// Settings returns the current tunables in their persisted form.
func (a *App) Settings() config.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return config.Settings{
		Estimator:  a.estimator.Config(),
		Normalizer: a.normalizer,
		Palette:    a.params.Palette,
		Style:      a.params.Style,
		ColorMode:  a.params.ColorMode,
		TargetFPS:  a.cfg.TargetFPS,
		BufferSize: a.cfg.BufferSize,
		Bins:       a.cfg.Bins,
		NoiseFloor: a.cfg.NoiseFloor,
		Tempo:      a.override,
	}
}

func (a *App) ensureDimensions() {
	fd := int(os.Stdout.Fd())
	if fd < 0 || !term.IsTerminal(fd) {
		return
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return
	}

	renderHeight := h
	if a.cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}

	if w == a.width && h == a.height && renderHeight == a.renderHeight {
		return
	}

	a.width = w
	a.height = h
	a.renderHeight = renderHeight
	a.renderer.Resize(w, renderHeight)
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Printf("keyboard input disabled: %v", err)
		a.inputEvents = nil
		return
	}

	events := make(chan inputEvent, 16)
	a.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			evt, ok := keyEvent(char, key)
			if !ok {
				continue
			}
			if evt == inputEventQuit {
				events <- evt
				return
			}
			select {
			case events <- evt:
			default:
			}
		}
	}()
}

func keyEvent(char rune, key keyboard.Key) (inputEvent, bool) {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return inputEventQuit, true
	case char == 'q' || char == 'Q':
		return inputEventQuit, true
	case char == 'r' || char == 'R':
		return inputEventReset, true
	case char == 'n' || char == 'N':
		return inputEventNextSource, true
	case char == 'o' || char == 'O':
		return inputEventToggleOverride, true
	}
	return 0, false
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	if len(text) >= width {
		return text[:width]
	}
	padding := width - len(text)
	return text + strings.Repeat(" ", padding)
}

func (a *App) clearScreen() {
	fmt.Fprint(a.out, "\x1b[2J")
	a.moveCursorHome()
}

func (a *App) moveCursorHome() {
	fmt.Fprint(a.out, "\x1b[H")
}

func (a *App) hideCursor() {
	fmt.Fprint(a.out, "\x1b[?25l")
}

func (a *App) showCursor() {
	fmt.Fprint(a.out, "\x1b[?25h")
}

func (a *App) enterAltScreen() {
	fmt.Fprint(a.out, "\x1b[?1049h")
}

func (a *App) exitAltScreen() {
	fmt.Fprint(a.out, "\x1b[?1049l\x1b[0m")
}
