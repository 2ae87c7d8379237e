package formatter

import (
	"fmt"

	"rankstat/domain/stats"
	"rankstat/domain/table"
)

const (
	rowZ     = "Z"
	rowAsymp = "Asymp. Sig. (2-tailed)"
	rowExact = "Exact Sig. (2-tailed)"
)

// RanksTable lists negative ranks, positive ranks, ties and total per Wilcoxon pair
func RanksTable(results []stats.RawComputeResult) table.Table {
	t := table.Table{
		Title: "Ranks",
		ColumnHeaders: []table.ColumnHeader{
			{Header: "N", Key: "n"},
			{Header: "Mean Rank", Key: "mean_rank"},
			{Header: "Sum of Ranks", Key: "sum_of_ranks"},
		},
	}

	for _, r := range results {
		rf := r.RanksFrequencies
		if rf == nil {
			continue
		}
		label := r.PairLabel()
		first, second := r.Variable1.Name(), r.Variable2.Name()
		t.Rows = append(t.Rows,
			rankRow(label, "Negative Ranks", rf.Negative),
			rankRow(label, "Positive Ranks", rf.Positive),
			table.Row{RowHeader: []string{label, "Ties"}, Cells: map[string]interface{}{"n": rf.Ties.N}},
			table.Row{RowHeader: []string{label, "Total"}, Cells: map[string]interface{}{"n": rf.Total.N}},
		)
		t.Footnotes = appendUnique(t.Footnotes, directionFootnotes(first, second)...)
	}
	return t
}

func rankRow(label, kind string, g stats.RankGroup) table.Row {
	cells := map[string]interface{}{
		"n":            g.N,
		"mean_rank":    roundPtr(g.MeanRank, 2),
		"sum_of_ranks": round(g.SumOfRanks, 2),
	}
	return table.Row{RowHeader: []string{label, kind}, Cells: cells}
}

// FrequenciesTable lists negative and positive differences, ties and total per sign-test pair
func FrequenciesTable(results []stats.RawComputeResult) table.Table {
	t := table.Table{
		Title:         "Frequencies",
		ColumnHeaders: []table.ColumnHeader{{Header: "N", Key: "n"}},
	}

	for _, r := range results {
		rf := r.RanksFrequencies
		if rf == nil {
			continue
		}
		label := r.PairLabel()
		t.Rows = append(t.Rows,
			table.Row{RowHeader: []string{label, "Negative Differences"}, Cells: map[string]interface{}{"n": rf.Negative.N}},
			table.Row{RowHeader: []string{label, "Positive Differences"}, Cells: map[string]interface{}{"n": rf.Positive.N}},
			table.Row{RowHeader: []string{label, "Ties"}, Cells: map[string]interface{}{"n": rf.Ties.N}},
			table.Row{RowHeader: []string{label, "Total"}, Cells: map[string]interface{}{"n": rf.Total.N}},
		)
		t.Footnotes = appendUnique(t.Footnotes, directionFootnotes(r.Variable1.Name(), r.Variable2.Name())...)
	}
	return t
}

func directionFootnotes(first, second string) []string {
	return []string{
		fmt.Sprintf("%s < %s", first, second),
		fmt.Sprintf("%s > %s", first, second),
		fmt.Sprintf("%s = %s", first, second),
	}
}

// PairedStatisticsTable has one column per pair and rows Z and significance.
// Pairs without a statistic leave their cells empty.
func PairedStatisticsTable(results []stats.RawComputeResult) table.Table {
	t := table.Table{Title: "Test Statistics"}

	z := table.Row{RowHeader: []string{rowZ}, Cells: map[string]interface{}{}}
	asymp := table.Row{RowHeader: []string{rowAsymp}, Cells: map[string]interface{}{}}
	exact := table.Row{RowHeader: []string{rowExact}, Cells: map[string]interface{}{}}
	anyAsymp, anyExact := false, false

	for i, r := range results {
		key := pairColumnKey(i)
		t.ColumnHeaders = append(t.ColumnHeaders, table.ColumnHeader{Header: r.PairLabel(), Key: key})

		ts := r.TestStatistic
		if ts == nil {
			z.Cells[key] = nil
			asymp.Cells[key] = nil
			exact.Cells[key] = nil
			t.Footnotes = appendUnique(t.Footnotes, r.Notes()...)
			continue
		}

		z.Cells[key] = round(ts.Z, 3)
		if ts.Exact {
			anyExact = true
			exact.Cells[key] = FormatPValue(ts.PValue)
			asymp.Cells[key] = nil
		} else {
			anyAsymp = true
			asymp.Cells[key] = FormatPValue(ts.PValue)
			exact.Cells[key] = nil
		}

		switch ts.BasedOn {
		case stats.BasedOnNegativeRanks:
			t.Footnotes = appendUnique(t.Footnotes, "Based on negative ranks.")
		case stats.BasedOnPositiveRanks:
			t.Footnotes = appendUnique(t.Footnotes, "Based on positive ranks.")
		}
		if ts.Exact {
			t.Footnotes = appendUnique(t.Footnotes, "Binomial distribution used.")
		}
		t.Footnotes = appendUnique(t.Footnotes, r.Notes()...)
	}

	t.Rows = append(t.Rows, z)
	if anyAsymp || !anyExact {
		t.Rows = append(t.Rows, asymp)
	}
	if anyExact {
		t.Rows = append(t.Rows, exact)
	}
	if len(results) > 0 {
		switch results[0].Kind {
		case stats.JobWilcoxon:
			t.Footnotes = appendUnique(t.Footnotes, "Wilcoxon Signed Ranks Test")
		case stats.JobSign:
			t.Footnotes = appendUnique(t.Footnotes, "Sign Test")
		}
	}
	return t
}
