package formatter

import (
	"fmt"
	"strconv"

	"rankstat/domain/stats"
	"rankstat/domain/table"
)

// CategoryTable lists observed, expected and residual counts for one variable
func CategoryTable(r stats.RawComputeResult) table.Table {
	name := r.Variable1.Name()
	t := table.Table{
		Title: name,
		ColumnHeaders: []table.ColumnHeader{
			{Header: "Observed N", Key: "observed"},
			{Header: "Expected N", Key: "expected"},
			{Header: "Residual", Key: "residual"},
		},
	}

	chi := r.ChiSquare
	if chi == nil {
		return t
	}
	computed := !r.Metadata.HasInsufficientData
	for _, c := range chi.Categories {
		cells := map[string]interface{}{"observed": c.Observed, "expected": nil, "residual": nil}
		if computed {
			cells["expected"] = round(c.Expected, 1)
			cells["residual"] = round(c.Residual, 1)
		}
		t.Rows = append(t.Rows, table.Row{
			RowHeader: []string{categoryLabel(c.Value)},
			Cells:     cells,
		})
	}
	t.Rows = append(t.Rows, table.Row{
		RowHeader: []string{"Total"},
		Cells:     map[string]interface{}{"observed": r.N},
	})
	return t
}

// ChiSquareStatisticsTable has one column per variable and rows Chi-Square, df and significance
func ChiSquareStatisticsTable(results []stats.RawComputeResult) table.Table {
	t := table.Table{Title: "Test Statistics"}

	chiRow := table.Row{RowHeader: []string{"Chi-Square"}, Cells: map[string]interface{}{}}
	dfRow := table.Row{RowHeader: []string{"df"}, Cells: map[string]interface{}{}}
	sigRow := table.Row{RowHeader: []string{rowAsymp}, Cells: map[string]interface{}{}}

	for i, r := range results {
		key := pairColumnKey(i)
		t.ColumnHeaders = append(t.ColumnHeaders, table.ColumnHeader{Header: r.Variable1.Name(), Key: key})

		chi := r.ChiSquare
		if chi == nil || r.Metadata.HasInsufficientData {
			chiRow.Cells[key], dfRow.Cells[key], sigRow.Cells[key] = nil, nil, nil
			t.Footnotes = appendUnique(t.Footnotes, r.Notes()...)
			continue
		}

		chiRow.Cells[key] = round(chi.ChiSquare, 3)
		dfRow.Cells[key] = chi.DF
		sigRow.Cells[key] = FormatPValue(chi.PValue)
		t.Footnotes = appendUnique(t.Footnotes, expectedCellFootnote(chi))
	}

	t.Rows = []table.Row{chiRow, dfRow, sigRow}
	return t
}

func expectedCellFootnote(chi *stats.ChiSquareResult) string {
	pct := 0.0
	if k := len(chi.Categories); k > 0 {
		pct = float64(chi.CellsBelowFive) / float64(k) * 100
	}
	return fmt.Sprintf("%d cells (%.1f%%) have expected frequencies less than 5. The minimum expected cell frequency is %.1f.",
		chi.CellsBelowFive, pct, chi.MinExpected)
}

func categoryLabel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
