package stats

import (
	"fmt"

	"rankstat/domain/core"
	"rankstat/domain/variable"
)

// ============================================================================
// JOB SELECTION
// ============================================================================

// JobKind selects the algorithm a compute job runs
type JobKind string

const (
	JobWilcoxon    JobKind = "wilcoxon"
	JobSign        JobKind = "sign"
	JobChiSquare   JobKind = "chi_square"
	JobDescriptive JobKind = "descriptive"
)

// IsPaired reports whether the job consumes two aligned sequences
func (k JobKind) IsPaired() bool {
	return k == JobWilcoxon || k == JobSign
}

// MaxRangeCategories caps how many integer categories a specific range may hold
const MaxRangeCategories = 1000

// ExpectedRange decides which categories a chi-square test counts. The zero value
// takes the categories from the data.
type ExpectedRange struct {
	Specific bool `json:"use_specific_range"`
	Lower    int  `json:"lower,omitempty"`
	Upper    int  `json:"upper,omitempty"`
}

// UsesSpecificRange reports whether categories come from [Lower, Upper]
func (r ExpectedRange) UsesSpecificRange() bool {
	return r.Specific
}

// TooWide reports whether [Lower, Upper] holds more than MaxRangeCategories integers
func (r ExpectedRange) TooWide() bool {
	if !r.Specific || r.Upper < r.Lower {
		return false
	}
	// unsigned difference cannot overflow for any Lower <= Upper
	return uint64(r.Upper)-uint64(r.Lower) >= MaxRangeCategories
}

// Width is the number of integer categories in the range. Ranges wider than
// MaxRangeCategories have no categories.
func (r ExpectedRange) Width() int {
	if !r.Specific || r.Upper < r.Lower || r.TooWide() {
		return 0
	}
	return r.Upper - r.Lower + 1
}

// ExpectedValues decides the expected frequency per category.
// Values are relative weights, normalized so that they sum to N. The zero value,
// with no weights listed, means every category is expected equally often.
type ExpectedValues struct {
	AllCategoriesEqual bool      `json:"all_categories_equal"`
	Values             []float64 `json:"values,omitempty"`
}

// Equal reports whether every category gets N/k
func (v ExpectedValues) Equal() bool {
	return v.AllCategoriesEqual || len(v.Values) == 0
}

// TestOptions selects which tests and auxiliary statistics run for a submission
type TestOptions struct {
	Wilcoxon               bool           `json:"wilcoxon"`
	Sign                   bool           `json:"sign"`
	ChiSquareGoodnessOfFit bool           `json:"chi_square_goodness_of_fit"`
	Descriptive            bool           `json:"descriptive"`
	Quartiles              bool           `json:"quartiles"`
	ExpectedRange          ExpectedRange  `json:"expected_range"`
	ExpectedValues         ExpectedValues `json:"expected_values"`
}

// PairedKinds returns the paired test families selected, in output order
func (o TestOptions) PairedKinds() []JobKind {
	var kinds []JobKind
	if o.Wilcoxon {
		kinds = append(kinds, JobWilcoxon)
	}
	if o.Sign {
		kinds = append(kinds, JobSign)
	}
	return kinds
}

// WantsDescriptives reports whether a descriptive job is needed per variable
func (o TestOptions) WantsDescriptives() bool {
	return o.Descriptive || o.Quartiles
}

// ============================================================================
// RAW RESULTS (produced by compute jobs, consumed by the formatter)
// ============================================================================

// InsufficientType marks why a test produced no meaningful statistic
type InsufficientType string

const (
	InsufficientEmpty        InsufficientType = "empty"
	InsufficientSingle       InsufficientType = "single"
	InsufficientNoDifference InsufficientType = "no_difference"
)

// RankGroup summarises the ranks on one side of zero
type RankGroup struct {
	N          int      `json:"N"`
	MeanRank   *float64 `json:"meanRank"`
	SumOfRanks float64  `json:"sumOfRanks"`
}

// CountGroup holds a bare case count
type CountGroup struct {
	N int `json:"N"`
}

// RanksFrequencies is the per-pair rank or sign breakdown.
// INVARIANT: Negative.N + Positive.N + Ties.N == Total.N
type RanksFrequencies struct {
	Negative RankGroup  `json:"negative"`
	Positive RankGroup  `json:"positive"`
	Ties     CountGroup `json:"ties"`
	Total    CountGroup `json:"total"`
}

// Direction names the rank sum Z is computed from
type Direction string

const (
	BasedOnNegativeRanks Direction = "negative"
	BasedOnPositiveRanks Direction = "positive"
)

// TestStatistic is the normal-approximation (or exact) outcome of a paired test
type TestStatistic struct {
	Z       float64   `json:"Z"`
	PValue  float64   `json:"pValue"`
	Exact   bool      `json:"exact,omitempty"`
	BasedOn Direction `json:"basedOn,omitempty"`
}

// Percentiles holds the quartiles of a variable
type Percentiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
}

// Descriptive holds the summary statistics of one variable
type Descriptive struct {
	N           int          `json:"N"`
	Mean        *float64     `json:"mean"`
	StdDev      *float64     `json:"stdDev"`
	Min         *float64     `json:"min"`
	Max         *float64     `json:"max"`
	Percentiles *Percentiles `json:"percentiles,omitempty"`
}

// Category is one cell of a goodness-of-fit table
type Category struct {
	Value    float64 `json:"value"`
	Observed int     `json:"observed"`
	Expected float64 `json:"expected"`
	Residual float64 `json:"residual"`
}

// ChiSquareResult is the goodness-of-fit outcome for one variable
type ChiSquareResult struct {
	Categories     []Category `json:"categories"`
	ChiSquare      float64    `json:"chiSquare"`
	DF             int        `json:"df"`
	PValue         float64    `json:"pValue"`
	CellsBelowFive int        `json:"cellsBelowFive"`
	MinExpected    float64    `json:"minExpected"`
}

// Metadata carries insufficient-data flags and display names
type Metadata struct {
	HasInsufficientData bool               `json:"hasInsufficientData"`
	InsufficientType    []InsufficientType `json:"insufficientType"`
	Variable1Name       string             `json:"variable1Name"`
	Variable2Name       string             `json:"variable2Name,omitempty"`
}

// Flag records an insufficient-data condition once
func (m *Metadata) Flag(t InsufficientType) {
	m.HasInsufficientData = true
	if m.Has(t) {
		return
	}
	m.InsufficientType = append(m.InsufficientType, t)
}

// Has reports whether a flag was recorded
func (m Metadata) Has(t InsufficientType) bool {
	for _, existing := range m.InsufficientType {
		if existing == t {
			return true
		}
	}
	return false
}

// RawComputeResult is the output of a single compute job
type RawComputeResult struct {
	JobID            core.JobID        `json:"jobId"`
	Kind             JobKind           `json:"kind"`
	Variable1        variable.Ref      `json:"variable1"`
	Variable2        *variable.Ref     `json:"variable2,omitempty"`
	N                int               `json:"N"`
	Descriptive      *Descriptive      `json:"descriptive,omitempty"`
	RanksFrequencies *RanksFrequencies `json:"ranksFrequencies,omitempty"`
	TestStatistic    *TestStatistic    `json:"testStatistic,omitempty"`
	ChiSquare        *ChiSquareResult  `json:"chiSquare,omitempty"`
	Metadata         Metadata          `json:"metadata"`
}

// PairLabel renders "Var1 - Var2" for paired results and the variable name otherwise
func (r RawComputeResult) PairLabel() string {
	if r.Variable2 == nil {
		return r.Variable1.Name()
	}
	return variable.Pair{First: r.Variable1, Second: *r.Variable2}.Label()
}

// Validate checks the structural invariants of a result
func (r RawComputeResult) Validate() error {
	if r.Kind.IsPaired() && r.Variable2 == nil {
		return fmt.Errorf("%w: %s result without second variable", core.ErrMalformedResult, r.Kind)
	}
	if rf := r.RanksFrequencies; rf != nil {
		if rf.Negative.N+rf.Positive.N+rf.Ties.N != rf.Total.N {
			return fmt.Errorf("%w: negative %d + positive %d + ties %d != total %d",
				core.ErrMalformedResult, rf.Negative.N, rf.Positive.N, rf.Ties.N, rf.Total.N)
		}
		if rf.Total.N != r.N {
			return fmt.Errorf("%w: total %d != N %d", core.ErrMalformedResult, rf.Total.N, r.N)
		}
	}
	if r.Kind == JobDescriptive && r.Descriptive == nil {
		return fmt.Errorf("%w: descriptive result without statistics", core.ErrMalformedResult)
	}
	return nil
}

// Notes returns the footnotes an output table attaches for this result
func (r RawComputeResult) Notes() []string {
	if !r.Metadata.HasInsufficientData || r.Kind == JobDescriptive {
		return nil
	}
	label := r.PairLabel()
	var notes []string
	for _, t := range r.Metadata.InsufficientType {
		switch t {
		case InsufficientEmpty:
			if r.Kind == JobChiSquare {
				notes = append(notes, fmt.Sprintf("Fewer than two categories or an expected frequency of zero for %s. Chi-Square cannot be computed.", label))
			} else {
				notes = append(notes, fmt.Sprintf("There are no valid cases with a nonzero difference for %s. Statistics cannot be computed.", label))
			}
		case InsufficientSingle:
			notes = append(notes, fmt.Sprintf("Only one nonzero difference for %s. The test statistic is unreliable.", label))
		case InsufficientNoDifference:
			notes = append(notes, fmt.Sprintf("The sum of negative ranks equals the sum of positive ranks for %s.", label))
		}
	}
	return notes
}

// ============================================================================
// JOB PAYLOAD (immutable input of a compute job)
// ============================================================================

// JobInput is the message handed to a compute job. X and Y are owned by the job.
type JobInput struct {
	JobID     core.JobID    `json:"jobId"`
	Kind      JobKind       `json:"kind"`
	Variable1 variable.Ref  `json:"variable1"`
	Variable2 *variable.Ref `json:"variable2,omitempty"`
	X         []float64     `json:"x"`
	Y         []float64     `json:"y,omitempty"`
	Options   TestOptions   `json:"options"`
}

// NewResult seeds a result with the identity of the job that produces it
func (in JobInput) NewResult() RawComputeResult {
	r := RawComputeResult{
		JobID:     in.JobID,
		Kind:      in.Kind,
		Variable1: in.Variable1,
		Metadata: Metadata{
			InsufficientType: []InsufficientType{},
			Variable1Name:    in.Variable1.Name(),
		},
	}
	if in.Variable2 != nil {
		second := *in.Variable2
		r.Variable2 = &second
		r.Metadata.Variable2Name = second.Name()
	}
	return r
}
