package tempo

import (
	"math"
	"time"
)

// scoreEpsilon absorbs rounding noise so equal scores keep the lower tempo.
const scoreEpsilon = 1e-9

// selectTempo picks the winning candidate. With enough onsets each candidate
// is scored against the onset pairs; otherwise the bucket tempos vote.
func selectTempo(candidates []int, votes []vote, onsets []time.Time) int {
	if len(onsets) < minScoredOnsets || len(candidates) == 0 {
		return majority(votes)
	}
	best := candidates[0]
	bestScore := pairScore(float64(best), onsets)
	for _, c := range candidates[1:] {
		if score := pairScore(float64(c), onsets); score > bestScore+scoreEpsilon {
			best, bestScore = c, score
		}
	}
	return best
}

// pairScore measures how close every onset pair lands to a whole number of
// beats at bpm, normalized by the pair count.
func pairScore(bpm float64, onsets []time.Time) float64 {
	n := len(onsets)
	if n < minPairOnsets || bpm <= 0 {
		return 0
	}
	beat := 60000 / bpm
	score := 0.0
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			gap := float64(onsets[j].Sub(onsets[i])) / float64(time.Millisecond)
			ratio := math.Abs(gap) / beat
			nearest := math.Round(ratio)
			if nearest <= 0 {
				continue
			}
			if e := math.Abs(ratio-nearest) / nearest; e < beatTolerance {
				score += 1 / (1 + e)
			}
		}
	}
	return score / float64(n*(n-1)/2)
}

// majority returns the tempo with the largest summed weight, earliest
// occurrence on ties.
func majority(votes []vote) int {
	if len(votes) == 0 {
		return DefaultBPM
	}
	totals := make(map[int]float64, len(votes))
	for _, v := range votes {
		totals[v.bpm] += v.weight
	}
	best, bestWeight := DefaultBPM, 0.0
	for _, v := range votes {
		if w := totals[v.bpm]; w > bestWeight+scoreEpsilon {
			best, bestWeight = v.bpm, w
		}
	}
	return best
}
