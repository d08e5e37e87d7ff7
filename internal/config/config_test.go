package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	want := Defaults()
	want.Tempo = 128
	want.Palette = "blocks"
	want.Estimator.KickBoost = 1.8

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"colorMode":"fire","estimator":{"onsetGain":3}}`), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fire", got.ColorMode)
	assert.Equal(t, 3.0, got.Estimator.OnsetGain)
	assert.Equal(t, Defaults().Estimator.LowBandGain, got.Estimator.LowBandGain)
	assert.Equal(t, 60.0, got.TargetFPS)
}

func TestLoadMissingFile(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, Defaults(), got)
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{"), 0o644))
	_, err := Load(garbage)
	require.Error(t, err)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"targetFPS":-1}`), 0o644))
	_, err = Load(invalid)
	require.ErrorIs(t, err, ErrInvalidSettings)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())

	for name, mutate := range map[string]func(*Settings){
		"fps":        func(s *Settings) { s.TargetFPS = 0 },
		"buffer":     func(s *Settings) { s.BufferSize = -1 },
		"bins":       func(s *Settings) { s.Bins = 0 },
		"noiseFloor": func(s *Settings) { s.NoiseFloor = 1 },
		"tempo":      func(s *Settings) { s.Tempo = -5 },
		"nanTempo":   func(s *Settings) { s.Tempo = math.NaN() },
		"infTempo":   func(s *Settings) { s.Tempo = math.Inf(1) },
		"nanFPS":     func(s *Settings) { s.TargetFPS = math.NaN() },
		"nanFloor":   func(s *Settings) { s.NoiseFloor = math.NaN() },
	} {
		t.Run(name, func(t *testing.T) {
			s := Defaults()
			mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
			assert.ErrorIs(t, Save(filepath.Join(t.TempDir(), "s.json"), s), ErrInvalidSettings)
		})
	}
}

func TestPathEndsWithFileName(t *testing.T) {
	assert.Contains(t, filepath.Base(Path()), fileName)
}
