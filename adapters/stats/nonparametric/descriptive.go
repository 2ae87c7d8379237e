package nonparametric

import (
	"context"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	domainstats "rankstat/domain/stats"
)

// DescriptiveJob summarises one variable
type DescriptiveJob struct{}

// NewDescriptiveJob creates a new descriptive statistics job
func NewDescriptiveJob() *DescriptiveJob {
	return &DescriptiveJob{}
}

// Kind returns the job kind
func (j *DescriptiveJob) Kind() domainstats.JobKind {
	return domainstats.JobDescriptive
}

// Description returns a human-readable description
func (j *DescriptiveJob) Description() string {
	return "N, mean, standard deviation, minimum, maximum and optional quartiles"
}

// Run computes the summary over non-missing values
func (j *DescriptiveJob) Run(ctx context.Context, in domainstats.JobInput) (domainstats.RawComputeResult, error) {
	result := in.NewResult()
	if err := ctx.Err(); err != nil {
		return result, err
	}

	values := validValues(in.X)
	desc := &domainstats.Descriptive{N: len(values)}
	result.N = len(values)
	result.Descriptive = desc

	if len(values) == 0 {
		result.Metadata.Flag(domainstats.InsufficientEmpty)
		return result, nil
	}

	data := stats.Float64Data(values)
	if mean, err := stats.Mean(data); err == nil {
		desc.Mean = floatPtr(mean)
	}
	if len(values) > 1 {
		if sd, err := stats.StandardDeviationSample(data); err == nil {
			desc.StdDev = floatPtr(sd)
		}
	}
	if minimum, err := stats.Min(data); err == nil {
		desc.Min = floatPtr(minimum)
	}
	if maximum, err := stats.Max(data); err == nil {
		desc.Max = floatPtr(maximum)
	}

	if in.Options.Quartiles {
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		desc.Percentiles = &domainstats.Percentiles{
			P25: weightedAveragePercentile(sorted, 0.25),
			P50: weightedAveragePercentile(sorted, 0.50),
			P75: weightedAveragePercentile(sorted, 0.75),
		}
	}

	return result, nil
}

// weightedAveragePercentile interpolates at position (n+1)p between order statistics,
// clamped to the smallest and largest value. sorted must be ascending and non-empty.
func weightedAveragePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	pos := float64(n+1) * p
	if pos <= 1 {
		return sorted[0]
	}
	if pos >= float64(n) {
		return sorted[n-1]
	}
	lower := math.Floor(pos)
	frac := pos - lower
	i := int(lower) - 1
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}
