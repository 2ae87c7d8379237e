package nonparametric

import (
	"context"
	"math"

	"rankstat/domain/stats"
)

// SignTest is the sign test for two related samples
type SignTest struct{}

// NewSignTest creates a new sign test
func NewSignTest() *SignTest {
	return &SignTest{}
}

// Kind returns the job kind
func (t *SignTest) Kind() stats.JobKind {
	return stats.JobSign
}

// Description returns a human-readable description
func (t *SignTest) Description() string {
	return "Compares two related samples by counting positive and negative differences"
}

// Run counts signs of the nonzero differences. For n <= 25 the p-value is exact
// binomial, otherwise it is the normal approximation of Z.
func (t *SignTest) Run(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
	result := in.NewResult()

	diffs, err := pairedDifferences(in.X, in.Y)
	if err != nil {
		return result, err
	}

	rf := &stats.RanksFrequencies{Total: stats.CountGroup{N: len(diffs)}}
	for i, d := range diffs {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}
		switch {
		case d < 0:
			rf.Negative.N++
		case d > 0:
			rf.Positive.N++
		default:
			rf.Ties.N++
		}
	}
	result.N = len(diffs)
	result.RanksFrequencies = rf

	n := rf.Negative.N + rf.Positive.N
	switch n {
	case 0:
		result.Metadata.Flag(stats.InsufficientEmpty)
		return result, nil
	case 1:
		result.Metadata.Flag(stats.InsufficientSingle)
	}

	larger := rf.Positive.N
	smaller := rf.Negative.N
	if smaller > larger {
		larger, smaller = smaller, larger
	}

	nf := float64(n)
	statistic := &stats.TestStatistic{
		Z: (float64(larger) - nf/2) / (math.Sqrt(nf) / 2),
	}
	if n <= exactSignTestLimit {
		statistic.Exact = true
		statistic.PValue = binomialTwoTailed(smaller, n)
	} else {
		statistic.PValue = normalTwoTailed(statistic.Z)
	}
	result.TestStatistic = statistic

	return result, nil
}
