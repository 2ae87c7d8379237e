package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankstat/domain/stats"
)

func TestParsePairs(t *testing.T) {
	pairs, err := parsePairs([]string{"pre:post", "a:b"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"pre", "post"}, {"a", "b"}}, pairs)

	_, err = parsePairs([]string{"pre"})
	assert.Error(t, err)
	_, err = parsePairs([]string{"pre:"})
	assert.Error(t, err)
}

func TestParseRangeAndExpected(t *testing.T) {
	r, err := parseRange("")
	require.NoError(t, err)
	assert.Equal(t, stats.ExpectedRange{}, r)

	r, err = parseRange("1, 4")
	require.NoError(t, err)
	assert.Equal(t, stats.ExpectedRange{Specific: true, Lower: 1, Upper: 4}, r)

	_, err = parseRange("1")
	assert.Error(t, err)

	e, err := parseExpected("")
	require.NoError(t, err)
	assert.True(t, e.AllCategoriesEqual)

	e, err = parseExpected("1,2.5")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, e.Values)

	_, err = parseExpected("1,x")
	assert.Error(t, err)
}

func TestRunSubmission_PrintsTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte("pre,post\n1,2\n3,2\n5,4\n2,2\n6,1\n"), 0o644))

	opts := &globalOptions{file: path, workers: 2, timeout: defaultTestTimeout}
	cmd := newPairedCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"pre:post", "--sign"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Frequencies")
	assert.Contains(t, out.String(), "Test Statistics")
}

func TestStatisticsCmd_RoundTripsThroughSQLite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grades.csv")
	require.NoError(t, os.WriteFile(path, []byte("grade\n1\n2\n2\n3\n3\n"), 0o644))
	dbPath := filepath.Join(dir, "results.db")

	opts := &globalOptions{file: path, sqlitePath: dbPath, workers: 2, timeout: defaultTestTimeout}
	cmd := newChiSquareCmd(opts)
	var stderr bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"grade"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, stderr.String(), "saved as analytic ")

	var analyticID string
	_, err := fmt.Sscanf(stderr.String(), "saved as analytic %s", &analyticID)
	require.NoError(t, err)

	readCmd := newStatisticsCmd(opts)
	var out bytes.Buffer
	readCmd.SetOut(&out)
	readCmd.SetArgs([]string{analyticID})
	require.NoError(t, readCmd.Execute())
	assert.Contains(t, out.String(), "Test Statistics")
}

const defaultTestTimeout = 10 * time.Second

func TestLoadEnv_FeedsFlagDefaults(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("EXCEL_SHEET=Scores\nSQLITE_PATH=results.db\n"), 0o600))

	// registered so the variables are restored after the test
	t.Setenv("EXCEL_SHEET", "")
	t.Setenv("SQLITE_PATH", "")
	require.NoError(t, os.Unsetenv("EXCEL_SHEET"))
	require.NoError(t, os.Unsetenv("SQLITE_PATH"))

	loadEnv(envPath)
	loadEnv(filepath.Join(dir, "missing.env"))

	root := newRootCmd()
	assert.Equal(t, "Scores", root.PersistentFlags().Lookup("sheet").DefValue)
	assert.Equal(t, "results.db", root.PersistentFlags().Lookup("sqlite").DefValue)
}
