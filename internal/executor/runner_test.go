package executor

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankstat/domain/core"
	"rankstat/domain/stats"
	"rankstat/domain/variable"
	"rankstat/internal"
	"rankstat/internal/errors"
)

func makeJobs(n int) []stats.JobInput {
	jobs := make([]stats.JobInput, n)
	for i := range jobs {
		jobs[i] = stats.JobInput{
			JobID:     core.NewJobID(),
			Kind:      stats.JobDescriptive,
			Variable1: variable.Ref{Key: "v", Type: variable.TypeNumeric},
			X:         []float64{float64(i), 1, 2},
		}
	}
	return jobs
}

func echo(_ context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
	r := in.NewResult()
	r.N = len(in.X)
	r.Descriptive = &stats.Descriptive{N: len(in.X)}
	return r, nil
}

func collect(t *testing.T, exec *Execution) []Outcome {
	t.Helper()
	var outcomes []Outcome
	timeout := time.After(5 * time.Second)
	for {
		select {
		case o, ok := <-exec.Outcomes():
			if !ok {
				return outcomes
			}
			outcomes = append(outcomes, o)
		case <-timeout:
			t.Fatal("outcomes channel never closed")
		}
	}
}

func TestRunner_DeliversOneOutcomePerJob(t *testing.T) {
	runner := NewRunner(2, echo, internal.NewNopLogger())
	jobs := makeJobs(10)

	outcomes := collect(t, runner.Start(context.Background(), jobs, 0))

	require.Len(t, outcomes, 10)
	seen := make(map[core.JobID]bool)
	for _, o := range outcomes {
		assert.True(t, o.Success())
		seen[o.JobID] = true
	}
	for _, j := range jobs {
		assert.True(t, seen[j.JobID])
	}
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	compute := func(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return echo(ctx, in)
	}

	runner := NewRunner(3, compute, nil)
	outcomes := collect(t, runner.Start(context.Background(), makeJobs(12), 0))

	assert.Len(t, outcomes, 12)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 3, runner.PoolSize())
}

func TestRunner_IsolatesInputData(t *testing.T) {
	jobs := makeJobs(1)
	original := jobs[0].X

	compute := func(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
		in.X[0] = 999
		return echo(ctx, in)
	}
	collect(t, NewRunner(1, compute, nil).Start(context.Background(), jobs, 0))

	assert.Equal(t, 0.0, original[0])
}

func TestRunner_ErrorsAndPanicsBecomeOutcomes(t *testing.T) {
	jobs := makeJobs(2)
	boom := stderrors.New("boom")
	compute := func(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
		if in.JobID == jobs[0].JobID {
			return stats.RawComputeResult{}, boom
		}
		panic("index out of range")
	}

	outcomes := collect(t, NewRunner(2, compute, nil).Start(context.Background(), jobs, 0))

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.False(t, o.Success())
		if o.JobID == jobs[0].JobID {
			assert.ErrorIs(t, o.Err, boom)
		} else {
			assert.Contains(t, o.Err.Error(), "panicked")
		}
	}
}

func TestRunner_CancelIsIdempotentAndSilencesJobs(t *testing.T) {
	started := make(chan struct{}, 4)
	compute := func(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
		started <- struct{}{}
		<-ctx.Done()
		return stats.RawComputeResult{}, ctx.Err()
	}

	exec := NewRunner(2, compute, nil).Start(context.Background(), makeJobs(4), 0)
	<-started

	assert.NotPanics(t, func() {
		exec.Cancel()
		exec.Cancel()
	})

	assert.Empty(t, collect(t, exec))
}

func TestRunner_TimeoutExpiresBatch(t *testing.T) {
	compute := func(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
		<-ctx.Done()
		return stats.RawComputeResult{}, ctx.Err()
	}

	exec := NewRunner(1, compute, nil).Start(context.Background(), makeJobs(3), 20*time.Millisecond)

	select {
	case <-exec.Expired():
	case <-time.After(5 * time.Second):
		t.Fatal("watchdog never fired")
	}
	assert.Empty(t, collect(t, exec))
	assert.True(t, errors.IsTimeout(exec.TimeoutError()))
}

func TestRunner_CancelRacingTimeout(t *testing.T) {
	compute := func(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
		<-ctx.Done()
		return stats.RawComputeResult{}, ctx.Err()
	}
	runner := NewRunner(2, compute, nil)

	for i := 0; i < 20; i++ {
		exec := runner.Start(context.Background(), makeJobs(2), time.Millisecond)
		go exec.Cancel()
		time.Sleep(time.Millisecond)
		exec.Cancel()
		assert.Empty(t, collect(t, exec))
	}
}

func TestRunner_CompletedBatchDoesNotExpire(t *testing.T) {
	exec := NewRunner(2, echo, nil).Start(context.Background(), makeJobs(2), 50*time.Millisecond)
	collect(t, exec)

	select {
	case <-exec.Expired():
		t.Fatal("completed batch expired")
	case <-time.After(100 * time.Millisecond):
	}
}
