package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankstat/adapters/memory"
	"rankstat/adapters/stats/nonparametric"
	"rankstat/domain/core"
	"rankstat/domain/submission"
	"rankstat/domain/variable"
	"rankstat/internal"
	"rankstat/internal/errors"
	"rankstat/internal/executor"
	"rankstat/ports"
)

func newTestService(t *testing.T, listener ports.SubmissionListener) (*SubmissionService, *memory.Sink) {
	t.Helper()
	provider := memory.NewProvider(
		memory.Column{Ref: variable.Ref{Key: "pre", Type: variable.TypeNumeric, Column: 0}, Values: []float64{1, 3, 5, 2, 6}},
		memory.Column{Ref: variable.Ref{Key: "post", Type: variable.TypeNumeric, Column: 1}, Values: []float64{2, 2, 4, 2, 1}},
		memory.Column{Ref: variable.Ref{Key: "grade", Type: variable.TypeNumeric, Column: 2}, Values: []float64{1, 2, 2, 3, 3}},
		memory.Column{Ref: variable.Ref{Key: "name", Type: variable.TypeString, Column: 3}},
	)
	sink := memory.NewSink()
	logger := internal.NewNopLogger()
	svc := NewSubmissionService(ServiceDeps{
		Data:     provider,
		Catalog:  provider,
		Sink:     sink,
		Runner:   executor.NewRunner(2, nonparametric.NewEngine().Compute, logger),
		Listener: listener,
		Logger:   logger,
	}, time.Minute)
	return svc, sink
}

func waitDone(t *testing.T, svc *SubmissionService, id core.SubmissionID) submission.Outcome {
	t.Helper()
	orch, err := svc.Get(id)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, _ := orch.Wait(ctx)
	require.True(t, out.State.IsTerminal(), "submission never finished")
	return out
}

func TestSubmissionService_PairedByKey(t *testing.T) {
	own := make(chan submission.State, 1)
	completed := make(chan submission.Outcome, 1)
	svc, sink := newTestService(t, ports.ListenerFuncs{
		Complete: func(o submission.Outcome) { completed <- o },
	})

	orch, err := svc.SubmitPaired(context.Background(), PairedCommand{
		Pairs:    [][2]string{{"pre", "post"}},
		TestType: submission.TestType{Wilcoxon: true},
	}, ports.ListenerFuncs{
		Complete: func(o submission.Outcome) { own <- o.State },
	})
	require.NoError(t, err)

	out := waitDone(t, svc, orch.ID())
	assert.Equal(t, submission.StateCompleted, out.State)
	require.NotNil(t, out.Persisted)

	select {
	case o := <-completed:
		assert.Equal(t, orch.ID(), o.SubmissionID)
	case <-time.After(time.Second):
		t.Fatal("service listener not called")
	}
	select {
	case state := <-own:
		assert.Equal(t, submission.StateCompleted, state)
	case <-time.After(time.Second):
		t.Fatal("submission listener not called")
	}

	assert.Len(t, sink.Logs(), 1)
	stored, err := sink.Statistics(context.Background(), out.Persisted.AnalyticID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestSubmissionService_ChiSquareByKey(t *testing.T) {
	svc, _ := newTestService(t, nil)

	orch, err := svc.SubmitChiSquare(context.Background(), ChiSquareCommand{
		Variables: []string{"grade"},
	}, nil)
	require.NoError(t, err)

	out := waitDone(t, svc, orch.ID())
	assert.Equal(t, submission.StateCompleted, out.State)

	summaries := svc.List()
	require.Len(t, summaries, 1)
	assert.Equal(t, "Chi-Square Test", summaries[0].Title)
	assert.Equal(t, submission.StateCompleted, summaries[0].Machine.State)
}

func TestSubmissionService_Rejections(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.SubmitPaired(ctx, PairedCommand{
		Pairs:    [][2]string{{"pre", "missing"}},
		TestType: submission.TestType{Sign: true},
	}, nil)
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.SubmitPaired(ctx, PairedCommand{
		Pairs:    [][2]string{{"pre", "name"}},
		TestType: submission.TestType{Sign: true},
	}, nil)
	assert.True(t, errors.IsValidation(err))

	_, err = svc.SubmitChiSquare(ctx, ChiSquareCommand{}, nil)
	assert.True(t, errors.IsValidation(err))

	assert.Empty(t, svc.List())
}

func TestSubmissionService_GetCancelForget(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Get("nope")
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(svc.Cancel("nope")))

	orch, err := svc.SubmitPaired(context.Background(), PairedCommand{
		Pairs:    [][2]string{{"pre", "post"}},
		TestType: submission.TestType{Sign: true},
	}, nil)
	require.NoError(t, err)
	waitDone(t, svc, orch.ID())

	// cancelling a finished submission is a no-op
	require.NoError(t, svc.Cancel(orch.ID()))
	assert.True(t, orch.State().IsTerminal())

	assert.Equal(t, 0, svc.Forget(time.Hour))
	assert.Equal(t, 1, svc.Forget(0))
	assert.Empty(t, svc.List())
}

func TestSubmissionService_Variables(t *testing.T) {
	svc, _ := newTestService(t, nil)

	refs, err := svc.Variables(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 4)
	assert.Equal(t, core.VariableKey("pre"), refs[0].Key)
}
