package tempo

import (
	"math"
	"sort"
	"time"
)

// histogram is a decaying inter-onset interval histogram over fixed 10 ms
// buckets covering 300..2000 ms. A zero weight marks an empty bucket; decay
// drops any bucket whose weight falls below pruneWeight.
type histogram struct {
	weights [histogramBuckets]float64
	live    int
}

func bucketIndex(interval time.Duration) (int, bool) {
	ms := float64(interval) / float64(time.Millisecond)
	if ms < minIntervalMs || ms > maxIntervalMs {
		return 0, false
	}
	rounded := math.Round(ms/bucketWidthMs) * bucketWidthMs
	return int(rounded-minIntervalMs) / bucketWidthMs, true
}

func bucketInterval(idx int) int {
	return minIntervalMs + idx*bucketWidthMs
}

// observe adds the intervals between at and every prior onset, then decays.
func (h *histogram) observe(at time.Time, prior []time.Time) {
	for _, ts := range prior {
		idx, ok := bucketIndex(at.Sub(ts))
		if !ok {
			continue
		}
		if h.weights[idx] == 0 {
			h.live++
		}
		h.weights[idx]++
	}
	h.decay()
}

func (h *histogram) decay() {
	h.live = 0
	for i, w := range h.weights {
		if w == 0 {
			continue
		}
		w *= histogramDecay
		if w < pruneWeight {
			w = 0
		} else {
			h.live++
		}
		h.weights[i] = w
	}
}

// weight returns the weight of the bucket holding intervalMs.
func (h *histogram) weight(intervalMs int) float64 {
	idx, ok := bucketIndex(time.Duration(intervalMs) * time.Millisecond)
	if !ok {
		return 0
	}
	return h.weights[idx]
}

// vote is one heavy bucket's tempo, weighted by the bucket.
type vote struct {
	bpm    int
	weight float64
}

// candidates converts the heaviest buckets and their harmonics into BPM
// values. sorted is deduplicated and ascending; votes holds only the bucket
// tempos themselves, heaviest first, for the fallback vote. Both are empty
// while no bucket has enough weight.
func (h *histogram) candidates() (sorted []int, votes []vote) {
	var top []int
	for i, w := range h.weights {
		if w > 1 {
			top = append(top, i)
		}
	}
	sort.SliceStable(top, func(a, b int) bool {
		return h.weights[top[a]] > h.weights[top[b]]
	})
	if len(top) > topBuckets {
		top = top[:topBuckets]
	}

	seen := make(map[int]bool)
	for _, idx := range top {
		base := 60000 / float64(bucketInterval(idx))
		if bpm := int(math.Round(base)); bpm >= MinBPM && bpm <= MaxBPM {
			votes = append(votes, vote{bpm: bpm, weight: h.weights[idx]})
		}
		for _, v := range []float64{base, base * 2, base / 2, base * 1.5, base * 4 / 3} {
			bpm := int(math.Round(v))
			if bpm < MinBPM || bpm > MaxBPM || seen[bpm] {
				continue
			}
			seen[bpm] = true
			sorted = append(sorted, bpm)
		}
	}
	if len(votes) == 0 && len(top) > 0 {
		// every heavy bucket is slower than MinBPM: fold the heaviest up
		base := 60000 / float64(bucketInterval(top[0]))
		for base < MinBPM {
			base *= 2
		}
		votes = append(votes, vote{bpm: int(math.Round(base)), weight: h.weights[top[0]]})
	}
	sort.Ints(sorted)
	return sorted, votes
}
