package tempo

import "math"

// overrideIntensity derives beat intensity from low band energy alone, with a
// boost when the kick drum band is hot.
func (c Config) overrideIntensity(spectrum []float64) float64 {
	base := math.Min(bandAverage(spectrum, 0, c.LowBandFraction)*c.LowBandGain, 1)
	if bandAverage(spectrum, c.KickBandStart, c.KickBandEnd) > c.KickThreshold {
		base = math.Min(base*c.KickBoost, 1)
	}
	return base
}

// bandAverage averages the bins between the from and to fractions of the
// spectrum. At least one bin is always covered.
func bandAverage(spectrum []float64, from, to float64) float64 {
	n := len(spectrum)
	if n == 0 {
		return 0
	}
	lo := int(math.Floor(from * float64(n)))
	hi := int(math.Ceil(to * float64(n)))
	if lo >= n {
		lo = n - 1
	}
	if hi > n {
		hi = n
	}
	if hi <= lo {
		hi = lo + 1
	}
	sum := 0.0
	for _, v := range spectrum[lo:hi] {
		sum += v
	}
	return sum / float64(hi-lo)
}
