package nonparametric

import (
	"context"
	"math"
	"sort"

	"rankstat/domain/stats"
)

// minExpectedPerCell is the expected count below which a cell is reported in the footnote
const minExpectedPerCell = 5.0

// ChiSquareTest is the chi-square goodness-of-fit test for one variable
type ChiSquareTest struct{}

// NewChiSquareTest creates a new goodness-of-fit test
func NewChiSquareTest() *ChiSquareTest {
	return &ChiSquareTest{}
}

// Kind returns the job kind
func (t *ChiSquareTest) Kind() stats.JobKind {
	return stats.JobChiSquare
}

// Description returns a human-readable description
func (t *ChiSquareTest) Description() string {
	return "Compares observed category frequencies with an expected distribution"
}

// Run builds the frequency table, derives expected counts and computes χ² with k-1 df
func (t *ChiSquareTest) Run(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
	result := in.NewResult()
	if err := ctx.Err(); err != nil {
		return result, err
	}

	categories, n, err := observedFrequencies(ctx, in.X, in.Options.ExpectedRange)
	if err != nil {
		return result, err
	}
	result.N = n

	chi := &stats.ChiSquareResult{Categories: categories}
	result.ChiSquare = chi

	k := len(categories)
	if k < 2 {
		result.Metadata.Flag(stats.InsufficientEmpty)
		return result, nil
	}

	expected, ok := expectedFrequencies(k, n, in.Options.ExpectedValues)
	if !ok {
		result.Metadata.Flag(stats.InsufficientEmpty)
		return result, nil
	}

	chi.MinExpected = math.Inf(1)
	for i := range categories {
		e := expected[i]
		if e == 0 {
			result.Metadata.Flag(stats.InsufficientEmpty)
			chi.MinExpected = 0
			return result, nil
		}
		c := &categories[i]
		c.Expected = e
		c.Residual = float64(c.Observed) - e
		chi.ChiSquare += c.Residual * c.Residual / e
		if e < minExpectedPerCell {
			chi.CellsBelowFive++
		}
		if e < chi.MinExpected {
			chi.MinExpected = e
		}
	}

	chi.DF = k - 1
	chi.PValue = chiSquareUpperTail(chi.ChiSquare, chi.DF)
	return result, nil
}

// observedFrequencies counts each category. Categories are the distinct observed values
// in ascending order, or every integer in [Lower, Upper] when a specific range is used;
// values outside the range or not integral are left out of N.
func observedFrequencies(ctx context.Context, data []float64, rng stats.ExpectedRange) ([]stats.Category, int, error) {
	values := validValues(data)

	if rng.UsesSpecificRange() {
		width := rng.Width()
		if width <= 0 {
			return nil, 0, nil
		}
		categories := make([]stats.Category, width)
		for i := range categories {
			categories[i].Value = float64(rng.Lower + i)
		}
		n := 0
		for i, v := range values {
			if i%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, 0, err
				}
			}
			if v != math.Trunc(v) || v < float64(rng.Lower) || v > float64(rng.Upper) {
				continue
			}
			categories[int(v)-rng.Lower].Observed++
			n++
		}
		return categories, n, nil
	}

	counts := make(map[float64]int)
	for i, v := range values {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		counts[v]++
	}
	keys := make([]float64, 0, len(counts))
	for v := range counts {
		keys = append(keys, v)
	}
	sort.Float64s(keys)

	categories := make([]stats.Category, len(keys))
	for i, v := range keys {
		categories[i] = stats.Category{Value: v, Observed: counts[v]}
	}
	return categories, len(values), nil
}

// expectedFrequencies returns N/k per category, or the supplied weights scaled to sum to N.
// It reports false when the weights do not match the categories.
func expectedFrequencies(k, n int, policy stats.ExpectedValues) ([]float64, bool) {
	expected := make([]float64, k)

	if policy.Equal() {
		for i := range expected {
			expected[i] = float64(n) / float64(k)
		}
		return expected, true
	}

	if len(policy.Values) != k {
		return nil, false
	}
	total := 0.0
	for _, w := range policy.Values {
		if w < 0 || math.IsNaN(w) {
			return nil, false
		}
		total += w
	}
	if total == 0 {
		return nil, false
	}
	for i, w := range policy.Values {
		expected[i] = w / total * float64(n)
	}
	return expected, true
}
