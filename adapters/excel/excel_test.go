package excel

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rankstat/domain/core"
	"rankstat/domain/variable"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad_Workbook(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"Before", "After Score", "Group"},
		{10, 12.5, "a"},
		{8, "", "b"},
		{11, 9.25, "a"},
	})

	p, err := Load(Config{FilePath: path, MaxDecimals: 4}, nil)
	require.NoError(t, err)

	refs, err := p.ListVariables(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, core.VariableKey("before"), refs[0].Key)
	assert.Equal(t, variable.TypeNumeric, refs[0].Type)
	assert.Equal(t, variable.LevelOrdinal, refs[0].Measurement)

	assert.Equal(t, core.VariableKey("after_score"), refs[1].Key)
	assert.Equal(t, "After Score", refs[1].Label)
	assert.Equal(t, variable.LevelScale, refs[1].Measurement)
	assert.Equal(t, 2, refs[1].Decimals)

	assert.Equal(t, variable.TypeString, refs[2].Type)

	after, err := p.GetVariableData(context.Background(), refs[1])
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, 12.5, after[0])
	assert.True(t, math.IsNaN(after[1]))
	assert.Equal(t, 9.25, after[2])

	group, err := p.GetVariableData(context.Background(), refs[2])
	require.NoError(t, err)
	for _, v := range group {
		assert.True(t, math.IsNaN(v))
	}
}

func TestLoad_NamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Responses", [][]interface{}{
		{"q1"},
		{1},
		{2},
	})

	_, err := Load(Config{FilePath: path, Sheet: "Missing"}, nil)
	assert.Error(t, err)

	p, err := Load(Config{FilePath: path, Sheet: "Responses"}, nil)
	require.NoError(t, err)
	ref, err := p.LookupVariable(context.Background(), "q1")
	require.NoError(t, err)
	values, err := p.GetVariableData(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, values)
}

func TestLoad_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "pre,post,,pre\n1,2,3,4\n5,,6\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := Load(Config{FilePath: path}, nil)
	require.NoError(t, err)

	refs, err := p.ListVariables(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 4)
	assert.Equal(t, core.VariableKey("var00003"), refs[2].Key)
	assert.Equal(t, core.VariableKey("pre_2"), refs[3].Key)

	post, err := p.GetVariableData(context.Background(), refs[1])
	require.NoError(t, err)
	assert.Equal(t, 2.0, post[0])
	assert.True(t, math.IsNaN(post[1]))

	last, err := p.GetVariableData(context.Background(), refs[3])
	require.NoError(t, err)
	assert.True(t, math.IsNaN(last[1]))
}

func TestReadSheet_Errors(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "none.xlsx"), "", nil).ReadSheet()
	assert.ErrorContains(t, err, "not found")

	path := filepath.Join(t.TempDir(), "header.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))
	_, err = NewDataReader(path, "", nil).ReadSheet()
	assert.ErrorContains(t, err, "at least a header row")
}

func TestVariableKey(t *testing.T) {
	assert.Equal(t, "score_t1", variableKey("  Score (T1) ", 0))
	assert.Equal(t, "var00002", variableKey("%%", 1))
}
