package tempo

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const defaultSpacing = 100 * time.Millisecond

// detectOnset runs one step of the weighted spectral flux detector. The first
// frame of a session only primes the previous spectrum.
func (s *state) detectOnset(spectrum []float64, now time.Time) (Onset, bool) {
	s.pruneOnsets(now)

	if s.prev == nil {
		s.prev = append(make([]float64, 0, len(spectrum)), spectrum...)
		return Onset{}, false
	}

	flux := weightedFlux(s.prev, spectrum)
	copy(s.prev, spectrum)
	s.pushFlux(flux)

	threshold := s.threshold()
	if flux <= threshold {
		return Onset{}, false
	}
	if !s.lastOnset.IsZero() && now.Sub(s.lastOnset) <= s.minSpacing() {
		return Onset{}, false
	}

	strength := 1.0
	if threshold > 0 {
		strength = math.Min((flux-threshold)/(threshold*0.8), 1)
	}
	s.lastOnset = now
	s.onsets = append(s.onsets, now)
	return Onset{At: now, Strength: strength}, true
}

// weightedFlux sums the positive per-bin increase, weighting bins by their
// position in the spectrum, and divides by the total weight.
func weightedFlux(prev, cur []float64) float64 {
	n := len(cur)
	sum, total := 0.0, 0.0
	for i, v := range cur {
		w := binWeight(i, n)
		total += w
		if d := v - prev[i]; d > 0 {
			sum += d * w
		}
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

func binWeight(i, n int) float64 {
	pos := float64(i) / float64(n)
	switch {
	case pos < 0.1:
		return 0.8
	case pos < 0.5:
		return 1.2
	case pos < 0.8:
		return 1.0
	default:
		return 0.6
	}
}

func (s *state) pushFlux(v float64) {
	s.flux = append(s.flux, v)
	if len(s.flux) > fluxHistorySize {
		copy(s.flux, s.flux[1:])
		s.flux = s.flux[:len(s.flux)-1]
	}
}

// threshold is the flux median scaled by a factor in [1.2, 1.8] that shrinks
// as the history gets more variable.
func (s *state) threshold() float64 {
	if len(s.flux) == 0 {
		return 0
	}
	s.sorted = append(s.sorted[:0], s.flux...)
	sort.Float64s(s.sorted)
	median := stat.Quantile(0.5, stat.Empirical, s.sorted, nil)

	variance := 0.0
	for _, v := range s.flux {
		d := v - median
		variance += d * d
	}
	variance /= float64(len(s.flux))

	var normalized float64
	switch {
	case median > 0:
		normalized = math.Min(math.Sqrt(variance)/median, 1)
	case variance > 0:
		normalized = 1
	}
	return median * (1.8 - 0.6*normalized)
}

// minSpacing narrows the refractory period once a tempo is known.
func (s *state) minSpacing() time.Duration {
	if len(s.bpms) == 0 {
		return defaultSpacing
	}
	last := s.bpms[len(s.bpms)-1]
	ms := clamp(60000/(last*2.5), 60, 150)
	return time.Duration(ms * float64(time.Millisecond))
}

func (s *state) pruneOnsets(now time.Time) {
	idx := 0
	for _, ts := range s.onsets {
		if now.Sub(ts) < onsetWindow {
			s.onsets[idx] = ts
			idx++
		}
	}
	s.onsets = s.onsets[:idx]
}
