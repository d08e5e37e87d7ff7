package audio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peakAbs(samples []float32) float64 {
	peak := 0.0
	for _, v := range samples {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	return peak
}

func TestSyntheticDefaults(t *testing.T) {
	s := NewSynthetic(SyntheticConfig{})
	assert.Equal(t, 120.0, s.BPM())
	assert.Equal(t, 44100.0, s.SampleRate())
	assert.Equal(t, "synthetic:120bpm", s.Name())
	assert.Len(t, s.Samples(), defaultWindow)
}

func TestSyntheticKickLandsOnBeat(t *testing.T) {
	clock := newFakeClock()
	s := NewSynthetic(SyntheticConfig{
		BPM:        120,
		SampleRate: 8000,
		Window:     800,
		Noise:      -1,
		Seed:       7,
		Now:        clock.Now,
	})
	require.NoError(t, s.Start())

	// window covers 450ms..550ms, the second kick starts at 500ms
	clock.Advance(550 * time.Millisecond)
	window := s.Samples()
	require.Len(t, window, 800)
	assert.Less(t, peakAbs(window[:400]), 0.01)
	assert.Greater(t, peakAbs(window[400:]), 0.5)
}

func TestSyntheticStopAndDisconnect(t *testing.T) {
	clock := newFakeClock()
	s := NewSynthetic(SyntheticConfig{Window: 256, Seed: 1, Now: clock.Now})
	require.NoError(t, s.Start())
	clock.Advance(time.Second)
	assert.NotZero(t, peakAbs(s.Samples()))

	require.NoError(t, s.Stop())
	assert.Zero(t, peakAbs(s.Samples()))

	require.NoError(t, s.Disconnect())
	assert.ErrorIs(t, s.Start(), ErrDisconnected)
}

func TestSourcesSatisfyInterface(t *testing.T) {
	var _ Source = (*Capture)(nil)
	var _ Source = (*WavSource)(nil)
	var _ Source = (*Synthetic)(nil)
}
