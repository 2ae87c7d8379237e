package memory

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankstat/domain/core"
	"rankstat/domain/variable"
	"rankstat/ports"
)

func TestProvider_ReturnsCopies(t *testing.T) {
	ref := variable.Ref{Key: "age", Type: variable.TypeNumeric, Column: 2}
	p := NewProvider(Column{Ref: ref, Values: []float64{1, math.NaN(), 3}})

	got, err := p.GetVariableData(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, math.IsNaN(got[1]))

	got[0] = 100
	again, _ := p.GetVariableData(context.Background(), ref)
	assert.Equal(t, 1.0, again[0])
}

func TestProvider_Catalog(t *testing.T) {
	p := NewProvider(
		Column{Ref: variable.Ref{Key: "b", Column: 1}},
		Column{Ref: variable.Ref{Key: "a", Column: 0}},
	)

	refs, err := p.ListVariables(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, core.VariableKey("a"), refs[0].Key)

	ref, err := p.LookupVariable(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, 1, ref.Column)

	_, err = p.LookupVariable(context.Background(), "zzz")
	assert.True(t, core.IsNotFoundError(err))

	_, err = p.GetVariableData(context.Background(), variable.Ref{Column: 9})
	assert.ErrorIs(t, err, core.ErrVariableNotFound)
}

func TestSink_EnforcesParentOrder(t *testing.T) {
	ctx := context.Background()
	s := NewSink()

	_, err := s.AddAnalytic(ctx, "missing", ports.Analytic{Title: "x"})
	assert.True(t, core.IsNotFoundError(err))

	logID, err := s.AddLog(ctx, "NPAR TESTS")
	require.NoError(t, err)
	analyticID, err := s.AddAnalytic(ctx, logID, ports.Analytic{Title: "Chi-Square Test"})
	require.NoError(t, err)
	_, err = s.AddStatistic(ctx, analyticID, ports.Statistic{Title: "Test Statistics"})
	require.NoError(t, err)

	assert.Len(t, s.Logs(), 1)
	assert.Equal(t, logID, s.Analytics()[0].LogID)
	stored, err := s.Statistics(ctx, analyticID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Test Statistics", stored[0].Title)
}
