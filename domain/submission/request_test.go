package submission

import (
	"testing"

	"rankstat/domain/core"
	"rankstat/domain/stats"
	"rankstat/domain/variable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numeric(key string, column int) variable.Ref {
	return variable.Ref{Key: core.VariableKey(key), Type: variable.TypeNumeric, Measurement: variable.LevelScale, Column: column}
}

func TestPairedRequest_Validate(t *testing.T) {
	a, b, c := numeric("a", 0), numeric("b", 1), numeric("c", 2)
	text := variable.Ref{Key: "name", Type: variable.TypeString, Column: 3}

	tests := []struct {
		name    string
		req     PairedRequest
		wantErr bool
	}{
		{"no pairs", PairedRequest{TestType: TestType{Wilcoxon: true}}, true},
		{"no test type", PairedRequest{Pairs: []variable.Pair{{First: a, Second: b}}}, true},
		{"same variable twice", PairedRequest{Pairs: []variable.Pair{{First: a, Second: a}}, TestType: TestType{Sign: true}}, true},
		{"duplicate pair", PairedRequest{Pairs: []variable.Pair{{First: a, Second: b}, {First: c, Second: b}, {First: a, Second: b}}, TestType: TestType{Wilcoxon: true}}, true},
		{"string variable", PairedRequest{Pairs: []variable.Pair{{First: a, Second: text}}, TestType: TestType{Wilcoxon: true}}, true},
		{"reversed pair is distinct", PairedRequest{Pairs: []variable.Pair{{First: a, Second: b}, {First: b, Second: a}}, TestType: TestType{Wilcoxon: true}}, false},
		{"valid", PairedRequest{Pairs: []variable.Pair{{First: a, Second: b}}, TestType: TestType{Wilcoxon: true, Sign: true}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsValidationError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPairedRequest_PlanCountsJobs(t *testing.T) {
	a, b, c, d := numeric("a", 0), numeric("b", 1), numeric("c", 2), numeric("d", 3)
	req := PairedRequest{
		Pairs:             []variable.Pair{{First: a, Second: b}, {First: c, Second: b}, {First: d, Second: a}},
		TestType:          TestType{Wilcoxon: true},
		DisplayStatistics: DisplayStatistics{Descriptive: true},
	}

	plan := req.Plan()

	// 3 wilcoxon jobs + 4 distinct variables
	require.Len(t, plan, 7)
	for _, spec := range plan[:3] {
		assert.Equal(t, stats.JobWilcoxon, spec.Kind)
		assert.NotNil(t, spec.Second)
	}
	for _, spec := range plan[3:] {
		assert.Equal(t, stats.JobDescriptive, spec.Kind)
		assert.Nil(t, spec.Second)
	}

	req.TestType.Sign = true
	req.DisplayStatistics = DisplayStatistics{}
	assert.Len(t, req.Plan(), 6)
}

func TestPairedRequest_Syntax(t *testing.T) {
	req := PairedRequest{
		Pairs:             []variable.Pair{{First: numeric("pre", 0), Second: numeric("post", 1)}},
		TestType:          TestType{Wilcoxon: true},
		DisplayStatistics: DisplayStatistics{Descriptive: true, Quartiles: true},
	}

	syntax := req.Syntax()
	assert.Contains(t, syntax, "/WILCOXON=pre WITH post (PAIRED)")
	assert.Contains(t, syntax, "/STATISTICS DESCRIPTIVES QUARTILES")
	assert.NotContains(t, syntax, "/SIGN")
}

func TestChiSquareRequest_Validate(t *testing.T) {
	x, y := numeric("x", 0), numeric("y", 1)
	equal := stats.ExpectedValues{AllCategoriesEqual: true}

	tests := []struct {
		name    string
		req     ChiSquareRequest
		wantErr bool
	}{
		{"no variables", ChiSquareRequest{ExpectedRange: stats.ExpectedRange{}, ExpectedValue: equal}, true},
		{"duplicate variable", ChiSquareRequest{Vars: []variable.Ref{x, x}, ExpectedRange: stats.ExpectedRange{}, ExpectedValue: equal}, true},
		{"inverted range", ChiSquareRequest{Vars: []variable.Ref{x}, ExpectedRange: stats.ExpectedRange{Specific: true, Lower: 5, Upper: 1}, ExpectedValue: equal}, true},
		{"defaults to data categories and equal values", ChiSquareRequest{Vars: []variable.Ref{x}}, false},
		{"non positive value", ChiSquareRequest{Vars: []variable.Ref{x}, ExpectedRange: stats.ExpectedRange{}, ExpectedValue: stats.ExpectedValues{Values: []float64{1, 0}}}, true},
		{"values do not match range", ChiSquareRequest{Vars: []variable.Ref{x}, ExpectedRange: stats.ExpectedRange{Specific: true, Lower: 1, Upper: 3}, ExpectedValue: stats.ExpectedValues{Values: []float64{1, 2}}}, true},
		{"valid range", ChiSquareRequest{Vars: []variable.Ref{x, y}, ExpectedRange: stats.ExpectedRange{Specific: true, Lower: 1, Upper: 3}, ExpectedValue: stats.ExpectedValues{Values: []float64{1, 2, 1}}}, false},
		{"range too wide", ChiSquareRequest{Vars: []variable.Ref{x}, ExpectedRange: stats.ExpectedRange{Specific: true, Lower: 0, Upper: 20_000_000}, ExpectedValue: equal}, true},
		{"valid from data", ChiSquareRequest{Vars: []variable.Ref{x}, ExpectedRange: stats.ExpectedRange{}, ExpectedValue: equal}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.True(t, core.IsValidationError(err), "expected validation error, got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestChiSquareRequest_PlanAndSyntax(t *testing.T) {
	req := ChiSquareRequest{
		Vars:              []variable.Ref{numeric("x", 0), numeric("y", 1)},
		ExpectedRange:     stats.ExpectedRange{Specific: true, Lower: 1, Upper: 4},
		ExpectedValue:     stats.ExpectedValues{AllCategoriesEqual: true},
		DisplayStatistics: DisplayStatistics{Quartiles: true},
	}

	plan := req.Plan()
	require.Len(t, plan, 4)
	assert.Equal(t, stats.JobChiSquare, plan[0].Kind)
	assert.Equal(t, stats.JobDescriptive, plan[3].Kind)

	syntax := req.Syntax()
	assert.Contains(t, syntax, "/CHISQUARE=x y (1,4)")
	assert.Contains(t, syntax, "/EXPECTED=EQUAL")
	assert.True(t, req.Options().ChiSquareGoodnessOfFit)
}
