package formatter

import (
	"fmt"
	"math"

	"rankstat/domain/stats"
	"rankstat/domain/table"
)

// Result is everything a submission produces for the result sink
type Result struct {
	Tables []table.Output
	Notes  []string
}

// Format builds the output tables from successful job results. Results must be in
// plan order; the tables then do not depend on the order the jobs finished in.
func Format(results []stats.RawComputeResult, opts stats.TestOptions) Result {
	var (
		descriptives []stats.RawComputeResult
		wilcoxon     []stats.RawComputeResult
		sign         []stats.RawComputeResult
		chiSquare    []stats.RawComputeResult
	)
	for _, r := range results {
		switch r.Kind {
		case stats.JobDescriptive:
			descriptives = append(descriptives, r)
		case stats.JobWilcoxon:
			wilcoxon = append(wilcoxon, r)
		case stats.JobSign:
			sign = append(sign, r)
		case stats.JobChiSquare:
			chiSquare = append(chiSquare, r)
		}
	}

	var out Result
	if len(descriptives) > 0 {
		out.Tables = append(out.Tables, table.Output{
			Component: table.ComponentDescriptive,
			Table:     DescriptiveTable(descriptives, opts.Quartiles),
		})
	}
	if len(wilcoxon) > 0 {
		out.Tables = append(out.Tables,
			table.Output{Component: table.ComponentWilcoxon, Table: RanksTable(wilcoxon)},
			table.Output{Component: table.ComponentWilcoxon, Table: PairedStatisticsTable(wilcoxon)},
		)
	}
	if len(sign) > 0 {
		out.Tables = append(out.Tables,
			table.Output{Component: table.ComponentSign, Table: FrequenciesTable(sign)},
			table.Output{Component: table.ComponentSign, Table: PairedStatisticsTable(sign)},
		)
	}
	if len(chiSquare) > 0 {
		for _, r := range chiSquare {
			out.Tables = append(out.Tables, table.Output{
				Component: table.ComponentChiSquare,
				Table:     CategoryTable(r),
			})
		}
		out.Tables = append(out.Tables, table.Output{
			Component: table.ComponentChiSquare,
			Table:     ChiSquareStatisticsTable(chiSquare),
		})
	}

	for _, r := range results {
		out.Notes = appendUnique(out.Notes, r.Notes()...)
	}
	return out
}

// FormatPValue renders p below .001 as "<.001" and otherwise with three decimals
func FormatPValue(p float64) string {
	if p < 0.001 {
		return "<.001"
	}
	return fmt.Sprintf("%.3f", p)
}

// round keeps d decimals so serialized tables carry display precision
func round(v float64, d int) float64 {
	scale := math.Pow(10, float64(d))
	return math.Round(v*scale) / scale
}

func roundPtr(v *float64, d int) interface{} {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return round(*v, d)
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}

func pairColumnKey(i int) string {
	return fmt.Sprintf("col_%d", i)
}
