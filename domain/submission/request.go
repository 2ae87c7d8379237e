package submission

import (
	"fmt"
	"strings"

	"rankstat/domain/core"
	"rankstat/domain/stats"
	"rankstat/domain/variable"
)

// DisplayStatistics selects the auxiliary statistics shown alongside a test
type DisplayStatistics struct {
	Descriptive bool `json:"descriptive"`
	Quartiles   bool `json:"quartiles"`
}

// TestType selects the paired test families
type TestType struct {
	Wilcoxon bool `json:"wilcoxon"`
	Sign     bool `json:"sign"`
}

// JobSpec describes one compute job before its data is attached
type JobSpec struct {
	Kind   stats.JobKind
	First  variable.Ref
	Second *variable.Ref
}

// Request is a validated-on-submit unit of work
type Request interface {
	// Validate rejects malformed submissions before any job is dispatched
	Validate() error
	// Options flattens the request into compute options
	Options() stats.TestOptions
	// Variables lists every distinct variable whose data must be fetched
	Variables() []variable.Ref
	// Plan lists the jobs to dispatch, in output order
	Plan() []JobSpec
	// Title names the analytic the output is stored under
	Title() string
	// Syntax renders the command log entry
	Syntax() string
}

// PairedRequest runs two-related-samples tests over variable pairs
type PairedRequest struct {
	Pairs             []variable.Pair   `json:"pairs"`
	TestType          TestType          `json:"testType"`
	DisplayStatistics DisplayStatistics `json:"displayStatistics"`
}

// Validate implements Request
func (r PairedRequest) Validate() error {
	if len(r.Pairs) == 0 {
		return core.NewValidationError("pairs", "at least one variable pair must be selected")
	}
	if !r.TestType.Wilcoxon && !r.TestType.Sign {
		return core.NewValidationError("testType", "at least one test type must be selected")
	}

	seen := make(map[[2]int]bool, len(r.Pairs))
	for i, p := range r.Pairs {
		if p.First.SameColumn(p.Second) {
			return core.NewValidationError(fmt.Sprintf("pairs[%d]", i),
				fmt.Sprintf("variable %s cannot be paired with itself", p.First.Name()))
		}
		if seen[p.Key()] {
			return core.NewValidationError(fmt.Sprintf("pairs[%d]", i),
				fmt.Sprintf("pair %s is selected more than once", p.Label()))
		}
		seen[p.Key()] = true

		for _, ref := range []variable.Ref{p.First, p.Second} {
			if !ref.IsNumeric() {
				return core.NewValidationError(fmt.Sprintf("pairs[%d]", i),
					fmt.Sprintf("variable %s is not numeric", ref.Name()))
			}
		}
	}
	return nil
}

// Options implements Request
func (r PairedRequest) Options() stats.TestOptions {
	return stats.TestOptions{
		Wilcoxon:    r.TestType.Wilcoxon,
		Sign:        r.TestType.Sign,
		Descriptive: r.DisplayStatistics.Descriptive,
		Quartiles:   r.DisplayStatistics.Quartiles,
	}
}

// Variables implements Request
func (r PairedRequest) Variables() []variable.Ref {
	return variable.Distinct(r.Pairs)
}

// Plan implements Request: one job per pair per test family, then one descriptive
// job per distinct variable when requested.
func (r PairedRequest) Plan() []JobSpec {
	opts := r.Options()
	var plan []JobSpec
	for _, kind := range opts.PairedKinds() {
		for _, p := range r.Pairs {
			second := p.Second
			plan = append(plan, JobSpec{Kind: kind, First: p.First, Second: &second})
		}
	}
	if opts.WantsDescriptives() {
		for _, ref := range r.Variables() {
			plan = append(plan, JobSpec{Kind: stats.JobDescriptive, First: ref})
		}
	}
	return plan
}

// Title implements Request
func (r PairedRequest) Title() string {
	return "Two-Related-Samples Tests"
}

// Syntax implements Request
func (r PairedRequest) Syntax() string {
	firsts := make([]string, len(r.Pairs))
	seconds := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		firsts[i] = p.First.Key.String()
		seconds[i] = p.Second.Key.String()
	}
	spec := fmt.Sprintf("%s WITH %s (PAIRED)", strings.Join(firsts, " "), strings.Join(seconds, " "))

	var b strings.Builder
	b.WriteString("NPAR TESTS")
	if r.TestType.Wilcoxon {
		b.WriteString("\n  /WILCOXON=" + spec)
	}
	if r.TestType.Sign {
		b.WriteString("\n  /SIGN=" + spec)
	}
	writeStatistics(&b, r.DisplayStatistics)
	b.WriteString("\n  /MISSING ANALYSIS.")
	return b.String()
}

// ChiSquareRequest runs a goodness-of-fit test per variable
type ChiSquareRequest struct {
	Vars              []variable.Ref       `json:"variables"`
	ExpectedRange     stats.ExpectedRange  `json:"expectedRange"`
	ExpectedValue     stats.ExpectedValues `json:"expectedValue"`
	DisplayStatistics DisplayStatistics    `json:"displayStatistics"`
}

// Validate implements Request
func (r ChiSquareRequest) Validate() error {
	if len(r.Vars) == 0 {
		return core.NewValidationError("variables", "at least one variable must be selected")
	}

	seen := make(map[int]bool, len(r.Vars))
	for i, ref := range r.Vars {
		if seen[ref.Column] {
			return core.NewValidationError(fmt.Sprintf("variables[%d]", i),
				fmt.Sprintf("variable %s is selected more than once", ref.Name()))
		}
		seen[ref.Column] = true
		if !ref.IsNumeric() {
			return core.NewValidationError(fmt.Sprintf("variables[%d]", i),
				fmt.Sprintf("variable %s is not numeric", ref.Name()))
		}
	}

	if r.ExpectedRange.UsesSpecificRange() && r.ExpectedRange.Lower >= r.ExpectedRange.Upper {
		return core.NewValidationError("expectedRange", "lower bound must be less than upper bound")
	}
	if r.ExpectedRange.TooWide() {
		return core.NewValidationError("expectedRange",
			fmt.Sprintf("range may hold at most %d categories", stats.MaxRangeCategories))
	}

	if !r.ExpectedValue.Equal() {
		for i, v := range r.ExpectedValue.Values {
			if v <= 0 {
				return core.NewValidationError(fmt.Sprintf("expectedValue.values[%d]", i), "expected values must be positive")
			}
		}
		if w := r.ExpectedRange.Width(); w > 0 && w != len(r.ExpectedValue.Values) {
			return core.NewValidationError("expectedValue",
				fmt.Sprintf("%d expected values given for %d categories", len(r.ExpectedValue.Values), w))
		}
	}
	return nil
}

// Options implements Request
func (r ChiSquareRequest) Options() stats.TestOptions {
	return stats.TestOptions{
		ChiSquareGoodnessOfFit: true,
		Descriptive:            r.DisplayStatistics.Descriptive,
		Quartiles:              r.DisplayStatistics.Quartiles,
		ExpectedRange:          r.ExpectedRange,
		ExpectedValues:         r.ExpectedValue,
	}
}

// Variables implements Request
func (r ChiSquareRequest) Variables() []variable.Ref {
	return r.Vars
}

// Plan implements Request
func (r ChiSquareRequest) Plan() []JobSpec {
	plan := make([]JobSpec, 0, len(r.Vars)*2)
	for _, ref := range r.Vars {
		plan = append(plan, JobSpec{Kind: stats.JobChiSquare, First: ref})
	}
	if r.Options().WantsDescriptives() {
		for _, ref := range r.Vars {
			plan = append(plan, JobSpec{Kind: stats.JobDescriptive, First: ref})
		}
	}
	return plan
}

// Title implements Request
func (r ChiSquareRequest) Title() string {
	return "Chi-Square Test"
}

// Syntax implements Request
func (r ChiSquareRequest) Syntax() string {
	keys := make([]string, len(r.Vars))
	for i, ref := range r.Vars {
		keys[i] = ref.Key.String()
	}

	var b strings.Builder
	b.WriteString("NPAR TESTS\n  /CHISQUARE=" + strings.Join(keys, " "))
	if r.ExpectedRange.UsesSpecificRange() {
		fmt.Fprintf(&b, " (%d,%d)", r.ExpectedRange.Lower, r.ExpectedRange.Upper)
	}
	if r.ExpectedValue.Equal() {
		b.WriteString("\n  /EXPECTED=EQUAL")
	} else {
		values := make([]string, len(r.ExpectedValue.Values))
		for i, v := range r.ExpectedValue.Values {
			values[i] = fmt.Sprintf("%g", v)
		}
		b.WriteString("\n  /EXPECTED=" + strings.Join(values, " "))
	}
	writeStatistics(&b, r.DisplayStatistics)
	b.WriteString("\n  /MISSING ANALYSIS.")
	return b.String()
}

func writeStatistics(b *strings.Builder, ds DisplayStatistics) {
	var parts []string
	if ds.Descriptive {
		parts = append(parts, "DESCRIPTIVES")
	}
	if ds.Quartiles {
		parts = append(parts, "QUARTILES")
	}
	if len(parts) > 0 {
		b.WriteString("\n  /STATISTICS " + strings.Join(parts, " "))
	}
}
