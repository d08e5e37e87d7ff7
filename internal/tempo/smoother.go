package tempo

import "math"

func (s *state) pushBPM(bpm float64) {
	s.bpms = append(s.bpms, bpm)
	if len(s.bpms) > bpmHistorySize {
		copy(s.bpms, s.bpms[1:])
		s.bpms = s.bpms[:len(s.bpms)-1]
	}
}

// smoothedBPM is a linearly recency-weighted average of the BPM history:
// entry i (oldest first) weighs (i+1)/len.
func (s *state) smoothedBPM() float64 {
	n := len(s.bpms)
	if n == 0 {
		return DefaultBPM
	}
	sum, weights := 0.0, 0.0
	for i, bpm := range s.bpms {
		w := float64(i+1) / float64(n)
		sum += bpm * w
		weights += w
	}
	return math.Round(sum / weights)
}
