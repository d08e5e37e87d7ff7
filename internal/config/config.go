// Package config persists beatmeter settings as JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/guidoenr/beatmeter/internal/tempo"
)

const fileName = "beatmeter-config.json"

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("config: invalid settings")

// Settings are the tunables that survive a restart.
type Settings struct {
	Estimator  tempo.Config     `json:"estimator"`
	Normalizer tempo.Normalizer `json:"normalizer"`
	Palette    string           `json:"palette"`
	Style      string           `json:"style"`
	ColorMode  string           `json:"colorMode"`
	TargetFPS  float64          `json:"targetFPS"`
	BufferSize int              `json:"bufferSize"`
	Bins       int              `json:"bins"`
	NoiseFloor float64          `json:"noiseFloor"`
	// Tempo is the override BPM; 0 means detect.
	Tempo float64 `json:"tempo"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	return Settings{
		Estimator:  tempo.DefaultConfig(),
		Normalizer: tempo.DefaultNormalizer(),
		Palette:    "default",
		Style:      "bars",
		ColorMode:  "chromatic",
		TargetFPS:  60,
		BufferSize: 2048,
		Bins:       64,
		NoiseFloor: 0.05,
	}
}

// Validate rejects values the runtime cannot use.
func (s Settings) Validate() error {
	switch {
	case !finite(s.TargetFPS), !finite(s.NoiseFloor), !finite(s.Tempo):
		return fmt.Errorf("%w: targetFPS, noiseFloor and tempo must be finite", ErrInvalidSettings)
	case s.TargetFPS <= 0:
		return fmt.Errorf("%w: targetFPS must be positive (got %.2f)", ErrInvalidSettings, s.TargetFPS)
	case s.BufferSize <= 0:
		return fmt.Errorf("%w: bufferSize must be positive (got %d)", ErrInvalidSettings, s.BufferSize)
	case s.Bins <= 0:
		return fmt.Errorf("%w: bins must be positive (got %d)", ErrInvalidSettings, s.Bins)
	case s.NoiseFloor < 0 || s.NoiseFloor >= 1:
		return fmt.Errorf("%w: noiseFloor must be in [0,1) (got %.2f)", ErrInvalidSettings, s.NoiseFloor)
	case s.Tempo < 0:
		return fmt.Errorf("%w: tempo must not be negative (got %.2f)", ErrInvalidSettings, s.Tempo)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Path returns the default settings location: next to the binary, or the
// home directory when the executable path is unknown.
func Path() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), fileName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+fileName)
}

// Load reads path over Defaults, so a partial file only changes the fields it
// names. A missing file yields an error matching os.ErrNotExist.
func Load(path string) (Settings, error) {
	s := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Defaults(), err
	}
	return s, nil
}

// Save writes s as indented JSON, creating parent directories.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
