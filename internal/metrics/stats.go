package metrics

import (
	"math"
	"sort"
)

// Summary holds descriptive statistics for a set of latency samples
type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	P95    float64
}

// Median returns the upper median of the samples (the element at index n/2
// of the sorted slice). Benchmark comparisons use this value exclusively.
func Median(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := sortedCopy(samples)
	return sorted[len(sorted)/2]
}

// Percentile returns the value at the given percentile (0 < p <= 1)
// using nearest-rank selection
func Percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := sortedCopy(samples)

	rank := int(math.Ceil(float64(len(sorted)) * p))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// Summarize computes a full summary for the samples
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	sorted := sortedCopy(samples)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   sum / float64(len(sorted)),
		Median: sorted[len(sorted)/2],
		P95:    Percentile(sorted, 0.95),
	}
}

func sortedCopy(samples []float64) []float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return sorted
}
