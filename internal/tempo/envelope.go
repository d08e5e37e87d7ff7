package tempo

import (
	"math"
	"time"
)

// beatIntensity spikes on a strong onset and otherwise fades linearly over a
// window tied to the current beat period.
func (c Config) beatIntensity(s *state, onset Onset, hit bool, now time.Time, bpm float64) float64 {
	if hit && onset.Strength > c.MinStrength {
		s.lastBeat = now
		return math.Min(onset.Strength*c.OnsetGain, 1)
	}
	if s.lastBeat.IsZero() || bpm <= 0 {
		return 0
	}
	return c.fade(now.Sub(s.lastBeat), bpm)
}

func (c Config) fadeWindow(bpm float64) time.Duration {
	beat := time.Duration(60000 / bpm * float64(time.Millisecond))
	return min(time.Duration(float64(beat)*c.FadeFraction), c.MaxFade)
}

func (c Config) fade(elapsed time.Duration, bpm float64) float64 {
	window := c.fadeWindow(bpm)
	if window <= 0 || elapsed >= window {
		return 0
	}
	return clamp01(1 - float64(elapsed)/float64(window))
}
