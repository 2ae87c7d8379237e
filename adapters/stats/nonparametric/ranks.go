package nonparametric

import (
	"context"
	"math"
	"sort"
)

// cancelCheckEvery bounds how many ranking iterations run between cancellation checks
const cancelCheckEvery = 256

// rankedValues holds average ranks aligned to the input plus the sizes of tie groups
type rankedValues struct {
	ranks     []float64
	tieGroups []int
}

// tieCorrection returns Σ(t³ - t) over all tie groups
func (r rankedValues) tieCorrection() float64 {
	sum := 0.0
	for _, t := range r.tieGroups {
		tf := float64(t)
		sum += tf*tf*tf - tf
	}
	return sum
}

// rankAbsolute ranks |values| ascending. Tied magnitudes share the mean of the ranks
// they would occupy. The context is polled while ranks are assigned.
func rankAbsolute(ctx context.Context, values []float64) (rankedValues, error) {
	n := len(values)
	if err := ctx.Err(); err != nil {
		return rankedValues{}, err
	}
	if n == 0 {
		return rankedValues{ranks: []float64{}}, nil
	}

	type pair struct {
		magnitude float64
		index     int
	}

	pairs := make([]pair, n)
	for i, v := range values {
		pairs[i] = pair{magnitude: math.Abs(v), index: i}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].magnitude < pairs[j].magnitude
	})

	if err := ctx.Err(); err != nil {
		return rankedValues{}, err
	}

	ranks := make([]float64, n)
	var tieGroups []int

	i := 0
	for i < n {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return rankedValues{}, err
			}
		}

		// Find the end of the tie group
		j := i + 1
		for j < n && pairs[j].magnitude == pairs[i].magnitude {
			j++
		}

		groupSize := j - i
		avgRank := float64(i+1) + float64(groupSize-1)/2.0
		for k := i; k < j; k++ {
			ranks[pairs[k].index] = avgRank
		}
		if groupSize > 1 {
			tieGroups = append(tieGroups, groupSize)
		}

		i = j
	}

	return rankedValues{ranks: ranks, tieGroups: tieGroups}, nil
}

// pairedDifferences applies casewise deletion and returns x[i] - y[i] for every
// case where both values are present.
func pairedDifferences(x, y []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, lengthMismatch(len(x), len(y))
	}
	diffs := make([]float64, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		diffs = append(diffs, x[i]-y[i])
	}
	return diffs, nil
}

// validValues drops missing values
func validValues(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func floatPtr(v float64) *float64 {
	return &v
}
