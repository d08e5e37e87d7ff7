package tempo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFrame reports a spectrum frame the estimator refuses to process:
// empty, of a different length than the session's first frame, or holding
// NaN/Inf values. Finite values outside [0,1] are clamped instead.
var ErrInvalidFrame = errors.New("tempo: invalid frame")

// Normalizer maps raw linear bin magnitudes onto a [0,1] decibel scale.
type Normalizer struct {
	MinDecibels float64 `json:"minDecibels"`
	MaxDecibels float64 `json:"maxDecibels"`
	// LowEmphasis multiplies the lowest LowFraction of bins after scaling.
	// Values <= 1 disable emphasis.
	LowEmphasis float64 `json:"lowEmphasis"`
	LowFraction float64 `json:"lowFraction"`
}

// DefaultNormalizer mirrors the range of a browser analyser node.
func DefaultNormalizer() Normalizer {
	return Normalizer{
		MinDecibels: -100,
		MaxDecibels: -30,
		LowEmphasis: 1,
		LowFraction: 0.1,
	}
}

// Normalize writes the normalized spectrum into dst (grown as needed) and
// returns it.
func (n Normalizer) Normalize(dst, raw []float64) ([]float64, error) {
	if len(raw) == 0 {
		return dst[:0], fmt.Errorf("%w: empty spectrum", ErrInvalidFrame)
	}
	lo, hi := n.MinDecibels, n.MaxDecibels
	if hi <= lo {
		d := DefaultNormalizer()
		lo, hi = d.MinDecibels, d.MaxDecibels
	}
	span := hi - lo

	if cap(dst) < len(raw) {
		dst = make([]float64, len(raw))
	}
	dst = dst[:len(raw)]

	emphasized := 0
	if n.LowEmphasis > 1 && n.LowFraction > 0 {
		emphasized = int(math.Ceil(float64(len(raw)) * math.Min(n.LowFraction, 1)))
	}

	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dst[:0], fmt.Errorf("%w: bin %d is %v", ErrInvalidFrame, i, v)
		}
		mag := math.Abs(v)
		if mag == 0 {
			dst[i] = 0
			continue
		}
		db := 20 * math.Log10(mag)
		out := clamp01((db - lo) / span)
		if i < emphasized {
			out = clamp01(out * n.LowEmphasis)
		}
		dst[i] = out
	}
	return dst, nil
}

// checkFrame validates a normalized frame against the session length (0 when
// not yet fixed) and copies it, clamped, into dst.
func checkFrame(dst, frame []float64, bins int) ([]float64, error) {
	if len(frame) == 0 {
		return dst, fmt.Errorf("%w: empty spectrum", ErrInvalidFrame)
	}
	if bins > 0 && len(frame) != bins {
		return dst, fmt.Errorf("%w: got %d bins, session uses %d", ErrInvalidFrame, len(frame), bins)
	}
	for i, v := range frame {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dst, fmt.Errorf("%w: bin %d is %v", ErrInvalidFrame, i, v)
		}
	}
	if cap(dst) < len(frame) {
		dst = make([]float64, len(frame))
	}
	dst = dst[:len(frame)]
	for i, v := range frame {
		dst[i] = clamp01(v)
	}
	return dst, nil
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

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
