package formatter

import (
	"rankstat/domain/stats"
	"rankstat/domain/table"
)

// DescriptiveTable has one row per distinct variable
func DescriptiveTable(results []stats.RawComputeResult, quartiles bool) table.Table {
	t := table.Table{
		Title: "Descriptive Statistics",
		ColumnHeaders: []table.ColumnHeader{
			{Header: "N", Key: "n"},
			{Header: "Mean", Key: "mean"},
			{Header: "Std. Deviation", Key: "std_dev"},
			{Header: "Minimum", Key: "min"},
			{Header: "Maximum", Key: "max"},
		},
	}
	if quartiles {
		t.ColumnHeaders = append(t.ColumnHeaders, table.ColumnHeader{
			Header: "Percentiles",
			Children: []table.ColumnHeader{
				{Header: "25th", Key: "p25"},
				{Header: "50th (Median)", Key: "p50"},
				{Header: "75th", Key: "p75"},
			},
		})
	}

	seen := make(map[int]bool)
	for _, r := range results {
		if r.Descriptive == nil || seen[r.Variable1.Column] {
			continue
		}
		seen[r.Variable1.Column] = true

		d := r.Descriptive
		decimals := r.Variable1.Decimals
		cells := map[string]interface{}{
			"n":       d.N,
			"mean":    roundPtr(d.Mean, decimals+2),
			"std_dev": roundPtr(d.StdDev, decimals+3),
			"min":     roundPtr(d.Min, decimals),
			"max":     roundPtr(d.Max, decimals),
		}
		if quartiles {
			if p := d.Percentiles; p != nil {
				cells["p25"] = round(p.P25, decimals+2)
				cells["p50"] = round(p.P50, decimals+2)
				cells["p75"] = round(p.P75, decimals+2)
			} else {
				cells["p25"], cells["p50"], cells["p75"] = nil, nil, nil
			}
		}
		t.Rows = append(t.Rows, table.Row{RowHeader: []string{r.Variable1.Name()}, Cells: cells})
	}
	return t
}
