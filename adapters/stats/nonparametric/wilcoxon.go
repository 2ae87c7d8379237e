package nonparametric

import (
	"context"
	"math"

	"rankstat/domain/stats"
)

// WilcoxonTest is the Wilcoxon signed-rank test for two related samples
type WilcoxonTest struct{}

// NewWilcoxonTest creates a new Wilcoxon signed-rank test
func NewWilcoxonTest() *WilcoxonTest {
	return &WilcoxonTest{}
}

// Kind returns the job kind
func (t *WilcoxonTest) Kind() stats.JobKind {
	return stats.JobWilcoxon
}

// Description returns a human-readable description
func (t *WilcoxonTest) Description() string {
	return "Compares two related samples using the signed ranks of their differences"
}

// Run ranks the nonzero paired differences and computes a tie-corrected Z
func (t *WilcoxonTest) Run(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
	result := in.NewResult()

	diffs, err := pairedDifferences(in.X, in.Y)
	if err != nil {
		return result, err
	}

	nonzero := make([]float64, 0, len(diffs))
	for _, d := range diffs {
		if d != 0 {
			nonzero = append(nonzero, d)
		}
	}

	rf := &stats.RanksFrequencies{
		Ties:  stats.CountGroup{N: len(diffs) - len(nonzero)},
		Total: stats.CountGroup{N: len(diffs)},
	}
	result.N = len(diffs)
	result.RanksFrequencies = rf

	nr := len(nonzero)
	if nr == 0 {
		result.Metadata.Flag(stats.InsufficientEmpty)
		return result, nil
	}

	ranked, err := rankAbsolute(ctx, nonzero)
	if err != nil {
		return result, err
	}

	for i, d := range nonzero {
		if d < 0 {
			rf.Negative.N++
			rf.Negative.SumOfRanks += ranked.ranks[i]
		} else {
			rf.Positive.N++
			rf.Positive.SumOfRanks += ranked.ranks[i]
		}
	}
	if rf.Negative.N > 0 {
		rf.Negative.MeanRank = floatPtr(rf.Negative.SumOfRanks / float64(rf.Negative.N))
	}
	if rf.Positive.N > 0 {
		rf.Positive.MeanRank = floatPtr(rf.Positive.SumOfRanks / float64(rf.Positive.N))
	}

	if nr == 1 {
		result.Metadata.Flag(stats.InsufficientSingle)
	}

	statistic := &stats.TestStatistic{}
	switch {
	case rf.Negative.SumOfRanks == rf.Positive.SumOfRanks:
		result.Metadata.Flag(stats.InsufficientNoDifference)
	case rf.Negative.SumOfRanks < rf.Positive.SumOfRanks:
		statistic.BasedOn = stats.BasedOnNegativeRanks
	default:
		statistic.BasedOn = stats.BasedOnPositiveRanks
	}

	n := float64(nr)
	variance := n*(n+1)*(2*n+1)/24 - ranked.tieCorrection()/48
	if variance > 0 {
		statistic.Z = (rf.Positive.SumOfRanks - n*(n+1)/4) / math.Sqrt(variance)
		statistic.PValue = normalTwoTailed(statistic.Z)
	} else {
		statistic.PValue = 1.0
	}
	result.TestStatistic = statistic

	return result, nil
}
