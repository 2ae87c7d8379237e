package formatter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"rankstat/domain/core"
	"rankstat/domain/stats"
	"rankstat/domain/table"
	"rankstat/domain/variable"
)

func ref(name string, column int) variable.Ref {
	return variable.Ref{Key: core.VariableKey(name), Type: variable.TypeNumeric, Column: column}
}

func fp(v float64) *float64 { return &v }

func wilcoxonResult(first, second variable.Ref, z, p float64) stats.RawComputeResult {
	return stats.RawComputeResult{
		Kind:      stats.JobWilcoxon,
		Variable1: first,
		Variable2: &second,
		N:         5,
		RanksFrequencies: &stats.RanksFrequencies{
			Negative: stats.RankGroup{N: 1, MeanRank: fp(2), SumOfRanks: 2},
			Positive: stats.RankGroup{N: 3, MeanRank: fp(8.0 / 3.0), SumOfRanks: 8},
			Ties:     stats.CountGroup{N: 1},
			Total:    stats.CountGroup{N: 5},
		},
		TestStatistic: &stats.TestStatistic{Z: z, PValue: p, BasedOn: stats.BasedOnNegativeRanks},
		Metadata:      stats.Metadata{Variable1Name: first.Name(), Variable2Name: second.Name()},
	}
}

func descriptiveResult(v variable.Ref, n int, mean float64) stats.RawComputeResult {
	return stats.RawComputeResult{
		Kind:      stats.JobDescriptive,
		Variable1: v,
		N:         n,
		Descriptive: &stats.Descriptive{
			N: n, Mean: fp(mean), StdDev: fp(1.5), Min: fp(0), Max: fp(9),
			Percentiles: &stats.Percentiles{P25: 1, P50: 2, P75: 3},
		},
	}
}

func TestFormatPValue(t *testing.T) {
	assert.Equal(t, "<.001", FormatPValue(0.0004))
	assert.Equal(t, "0.001", FormatPValue(0.001))
	assert.Equal(t, "0.273", FormatPValue(0.2733))
	assert.Equal(t, "1.000", FormatPValue(1))
}

func TestFormat_PairedTablesInOrder(t *testing.T) {
	a, b, c := ref("A", 0), ref("B", 1), ref("C", 2)
	results := []stats.RawComputeResult{
		wilcoxonResult(a, b, 1.134, 0.257),
		wilcoxonResult(a, c, -2.5, 0.0002),
		descriptiveResult(a, 5, 3.4),
		descriptiveResult(b, 5, 2.1),
		descriptiveResult(c, 5, 1.0),
	}

	out := Format(results, stats.TestOptions{Wilcoxon: true, Descriptive: true, Quartiles: true})

	require.Len(t, out.Tables, 3)
	assert.Equal(t, table.ComponentDescriptive, out.Tables[0].Component)
	assert.Equal(t, "Ranks", out.Tables[1].Table.Title)
	assert.Equal(t, "Test Statistics", out.Tables[2].Table.Title)

	desc := out.Tables[0].Table
	assert.Len(t, desc.Rows, 3)
	assert.Equal(t, 2, desc.Depth())
	assert.Equal(t, []string{"n", "mean", "std_dev", "min", "max", "p25", "p50", "p75"}, desc.LeafKeys())

	ranks := out.Tables[1].Table
	require.Len(t, ranks.Rows, 8)
	assert.Equal(t, []string{"A - B", "Negative Ranks"}, ranks.Rows[0].RowHeader)
	assert.Equal(t, []string{"A - C", "Total"}, ranks.Rows[7].RowHeader)
	assert.Equal(t, 2.67, ranks.Rows[1].Cells["mean_rank"])

	ts := out.Tables[2].Table
	require.Len(t, ts.ColumnHeaders, 2)
	assert.Equal(t, "A - C", ts.ColumnHeaders[1].Header)
	require.Len(t, ts.Rows, 2)
	assert.Equal(t, 1.134, ts.Rows[0].Cells["col_0"])
	assert.Equal(t, "<.001", ts.Rows[1].Cells["col_1"])
	assert.Contains(t, ts.Footnotes, "Based on negative ranks.")
	assert.Empty(t, out.Notes)
}

func TestFormat_DeduplicatesDescriptiveRows(t *testing.T) {
	a := ref("A", 0)
	tbl := DescriptiveTable([]stats.RawComputeResult{
		descriptiveResult(a, 5, 3.4),
		descriptiveResult(a, 5, 3.4),
	}, false)

	assert.Len(t, tbl.Rows, 1)
	assert.Equal(t, 1, tbl.Depth())
	_, hasQuartile := tbl.Rows[0].Cells["p25"]
	assert.False(t, hasQuartile)
}

func TestFormat_InsufficientPairLeavesEmptyCellsAndNote(t *testing.T) {
	a, b := ref("A", 0), ref("B", 1)
	empty := stats.RawComputeResult{
		Kind:      stats.JobSign,
		Variable1: a,
		Variable2: &b,
		N:         3,
		RanksFrequencies: &stats.RanksFrequencies{
			Ties:  stats.CountGroup{N: 3},
			Total: stats.CountGroup{N: 3},
		},
		Metadata: stats.Metadata{
			HasInsufficientData: true,
			InsufficientType:    []stats.InsufficientType{stats.InsufficientEmpty},
		},
	}

	out := Format([]stats.RawComputeResult{empty}, stats.TestOptions{Sign: true})

	require.Len(t, out.Tables, 2)
	freq := out.Tables[0].Table
	assert.Equal(t, "Frequencies", freq.Title)
	assert.Equal(t, 3, freq.Rows[2].Cells["n"])

	ts := out.Tables[1].Table
	assert.Nil(t, ts.Rows[0].Cells["col_0"])
	require.Len(t, out.Notes, 1)
	assert.Contains(t, out.Notes[0], "A - B")
	assert.Contains(t, ts.Footnotes, out.Notes[0])
}

func TestFormat_ExactSignTestRow(t *testing.T) {
	a, b := ref("A", 0), ref("B", 1)
	r := wilcoxonResult(a, b, 1, 0.625)
	r.Kind = stats.JobSign
	r.TestStatistic.Exact = true
	r.TestStatistic.BasedOn = ""

	ts := PairedStatisticsTable([]stats.RawComputeResult{r})

	require.Len(t, ts.Rows, 2)
	assert.Equal(t, rowExact, ts.Rows[1].RowHeader[0])
	assert.Equal(t, "0.625", ts.Rows[1].Cells["col_0"])
	assert.Contains(t, ts.Footnotes, "Binomial distribution used.")
}

func TestFormat_ChiSquareTables(t *testing.T) {
	v := ref("grade", 0)
	r := stats.RawComputeResult{
		Kind:      stats.JobChiSquare,
		Variable1: v,
		N:         30,
		ChiSquare: &stats.ChiSquareResult{
			Categories: []stats.Category{
				{Value: 1, Observed: 10, Expected: 7.5, Residual: 2.5},
				{Value: 2, Observed: 10, Expected: 7.5, Residual: 2.5},
				{Value: 3, Observed: 5, Expected: 7.5, Residual: -2.5},
				{Value: 4, Observed: 5, Expected: 7.5, Residual: -2.5},
			},
			ChiSquare:   10.0 / 3.0,
			DF:          3,
			PValue:      0.343,
			MinExpected: 7.5,
		},
	}

	out := Format([]stats.RawComputeResult{r}, stats.TestOptions{ChiSquareGoodnessOfFit: true})

	require.Len(t, out.Tables, 2)
	freq := out.Tables[0].Table
	assert.Equal(t, "grade", freq.Title)
	require.Len(t, freq.Rows, 5)
	assert.Equal(t, []string{"Total"}, freq.Rows[4].RowHeader)
	assert.Equal(t, 30, freq.Rows[4].Cells["observed"])

	ts := out.Tables[1].Table
	assert.Equal(t, 3.333, ts.Rows[0].Cells["col_0"])
	assert.Equal(t, 3, ts.Rows[1].Cells["col_0"])
	assert.Equal(t, "0.343", ts.Rows[2].Cells["col_0"])
	require.Len(t, ts.Footnotes, 1)
	assert.Equal(t, "0 cells (0.0%) have expected frequencies less than 5. The minimum expected cell frequency is 7.5.", ts.Footnotes[0])
}

func TestFormat_SerializedTableShape(t *testing.T) {
	a, b := ref("A", 0), ref("B", 1)
	out := Format([]stats.RawComputeResult{wilcoxonResult(a, b, 1.134, 0.257)}, stats.TestOptions{Wilcoxon: true})

	data, err := out.Tables[0].Table.Serialize()
	require.NoError(t, err)

	assert.Equal(t, "Ranks", gjson.Get(data, "tables.0.title").String())
	assert.Equal(t, "A - B", gjson.Get(data, "tables.0.rows.0.rowHeader.0").String())
	assert.Equal(t, int64(1), gjson.Get(data, "tables.0.rows.0.cells.n").Int())
}

func TestRender_DrawsHeadersRowsAndFootnotes(t *testing.T) {
	a, b := ref("A", 0), ref("B", 1)
	out := Format([]stats.RawComputeResult{
		wilcoxonResult(a, b, 1.134, 0.257),
		descriptiveResult(a, 5, 3.4),
		descriptiveResult(b, 5, 2.1),
	}, stats.TestOptions{Wilcoxon: true, Descriptive: true, Quartiles: true})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, out.Tables))
	text := buf.String()

	assert.Contains(t, text, "Descriptive Statistics")
	assert.Contains(t, text, "Percentiles")
	assert.Contains(t, text, "Negative Ranks")
	assert.Contains(t, text, "Based on negative ranks.")
	assert.Contains(t, text, "0.257")
}

func TestHeaderRows_ExpandsGroups(t *testing.T) {
	rows := headerRows([]table.ColumnHeader{
		{Header: "N", Key: "n"},
		{Header: "Percentiles", Children: []table.ColumnHeader{
			{Header: "25th", Key: "p25"},
			{Header: "75th", Key: "p75"},
		}},
	}, 2)

	assert.Equal(t, []string{"N", "Percentiles", "Percentiles"}, rows[0])
	assert.Equal(t, []string{"N", "25th", "75th"}, rows[1])
}
