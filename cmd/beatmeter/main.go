package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guidoenr/beatmeter/internal/app"
	"github.com/guidoenr/beatmeter/internal/audio"
	"github.com/guidoenr/beatmeter/internal/config"
	"github.com/guidoenr/beatmeter/internal/web"
	"golang.org/x/term"
)

func main() {
	defaults := config.Defaults()
	var (
		deviceName   = flag.String("audio-device", "", "Optional PortAudio device name (substring match)")
		wavPath      = flag.String("wav", "", "Play a WAV file instead of capturing (loops)")
		noAudio      = flag.Bool("no-audio", false, "Skip the microphone and run the synthetic kick pattern")
		syntheticBPM = flag.Float64("synthetic-bpm", 120, "Tempo of the synthetic kick pattern")
		tempoBPM     = flag.Float64("tempo", 0, "Fixed tempo override in BPM (0 detects)")
		width        = flag.Int("width", 80, "Meter width")
		height       = flag.Int("height", 24, "Meter height")
		targetFPS    = flag.Float64("fps", defaults.TargetFPS, "Target frames per second")
		bufferSize   = flag.Int("buffer-size", defaults.BufferSize, "Analysis window in samples (power of two recommended)")
		bins         = flag.Int("bins", defaults.Bins, "Spectrum bins fed to the tempo estimator")
		noiseFloor   = flag.Float64("noise-floor", defaults.NoiseFloor, "Band level below which the meter treats input as silence")
		palette      = flag.String("palette", defaults.Palette, "Glyph palette (default|blocks|box|spark)")
		style        = flag.String("style", defaults.Style, "Spectrum style (bars|mirror|pulse|peaks)")
		colorMode    = flag.String("color-mode", defaults.ColorMode, "Color mode (chromatic|fire|aurora|mono)")
		window       = flag.Bool("window", false, "Also draw the meter in an SDL window (needs -tags sdl)")
		webPort      = flag.Int("web-port", 0, "Serve the control API on this port (0 disables)")
		configPath   = flag.String("config", "", "Settings file to load and save (default next to the binary)")
		profilePath  = flag.String("profile", "", "Append per-tick timings as CSV to this file")
		debug        = flag.Bool("debug", false, "Enable verbose logging")
		listDevs     = flag.Bool("list-audio-devices", false, "List available audio input devices and exit")
		noColor      = flag.Bool("no-color", false, "Disable ANSI color output")
		showStatus   = flag.Bool("status", true, "Display status bar")
	)

	flag.Parse()

	logger := log.New(os.Stdout, "[beatmeter] ", log.LstdFlags)
	if !*debug {
		logger.SetOutput(os.Stderr)
		logger.SetFlags(0)
	}

	settingsPath := *configPath
	if settingsPath == "" {
		settingsPath = config.Path()
	}
	settings, err := config.Load(settingsPath)
	switch {
	case err == nil:
		logger.Printf("settings loaded from %s", settingsPath)
	case errors.Is(err, os.ErrNotExist):
		settings = defaults
	default:
		logger.Fatalf("load settings: %v", err)
	}

	// explicit flags win over the settings file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "fps":
			settings.TargetFPS = *targetFPS
		case "buffer-size":
			settings.BufferSize = *bufferSize
		case "bins":
			settings.Bins = *bins
		case "noise-floor":
			settings.NoiseFloor = *noiseFloor
		case "palette":
			settings.Palette = *palette
		case "style":
			settings.Style = *style
		case "color-mode":
			settings.ColorMode = *colorMode
		case "tempo":
			settings.Tempo = *tempoBPM
		}
	})
	if err := settings.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	if *width <= 0 || *height <= 0 {
		logger.Fatalf("invalid dimensions: width=%d height=%d", *width, *height)
	}

	if fd := int(os.Stdout.Fd()); fd >= 0 && term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil {
			if w > 0 {
				*width = w
			}
			if h > 0 {
				*height = h
			}
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	needAudio := !*noAudio || *listDevs
	if needAudio {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}

	if *listDevs {
		devices, err := audio.ListDevices()
		if err != nil {
			logger.Fatalf("list devices: %v", err)
		}
		fmt.Printf("\n=== Audio Input Devices ===\n\n")
		for _, dev := range devices {
			if !dev.CanCapture() {
				continue
			}
			fmt.Println(dev)
		}
		if dev, err := audio.AutoDetectDevice(); err == nil && dev != nil {
			fmt.Printf("\nAuto-detected input: %s (%.0f Hz, %d channels)\n", dev.Name, dev.DefaultSampleRate, dev.MaxInputChannels)
		}
		return
	}

	a, err := app.New(app.Config{
		DeviceName:    *deviceName,
		WavPath:       *wavPath,
		SyntheticBPM:  *syntheticBPM,
		DisableAudio:  *noAudio,
		Width:         *width,
		Height:        *height,
		TargetFPS:     settings.TargetFPS,
		BufferSize:    settings.BufferSize,
		Bins:          settings.Bins,
		NoiseFloor:    settings.NoiseFloor,
		Tempo:         settings.Tempo,
		ShowStatusBar: *showStatus,
		Palette:       settings.Palette,
		Style:         settings.Style,
		ColorMode:     settings.ColorMode,
		UseANSI:       !*noColor,
		Window:        *window,
		ProfilePath:   *profilePath,
		Estimator:     settings.Estimator,
		Normalizer:    settings.Normalizer,
		Log:           logger,
	})
	if err != nil {
		logger.Fatalf("failed to create app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	if *webPort > 0 {
		srv := web.NewServer(a, web.Options{ConfigPath: settingsPath, Log: logger})
		go func() {
			if err := srv.Run(ctx, *webPort); err != nil {
				logger.Printf("web server: %v", err)
			}
		}()
	}

	if err := a.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return
		}
		logger.Fatalf("runtime error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
}
