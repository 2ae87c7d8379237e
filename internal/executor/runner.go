package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"rankstat/domain/core"
	"rankstat/domain/stats"
	"rankstat/internal"
	"rankstat/internal/errors"
)

// ComputeFunc runs one compute job. It must poll ctx in long loops.
type ComputeFunc func(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error)

// Outcome is the message a job sends back: a result on success, an error otherwise
type Outcome struct {
	JobID    core.JobID
	Kind     stats.JobKind
	Result   stats.RawComputeResult
	Err      error
	Duration time.Duration
}

// Success reports whether the job produced a result
func (o Outcome) Success() bool {
	return o.Err == nil
}

// Runner executes compute jobs on a pool bounded by a weighted semaphore.
// One runner is shared by every submission, so the bound is global.
type Runner struct {
	sem      *semaphore.Weighted
	poolSize int
	compute  ComputeFunc
	logger   *internal.Logger
}

// NewRunner creates a runner allowing at most poolSize concurrent jobs
func NewRunner(poolSize int, compute ComputeFunc, logger *internal.Logger) *Runner {
	if poolSize <= 0 {
		poolSize = 1
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Runner{
		sem:      semaphore.NewWeighted(int64(poolSize)),
		poolSize: poolSize,
		compute:  compute,
		logger:   logger,
	}
}

// PoolSize returns the concurrency bound
func (r *Runner) PoolSize() int {
	return r.poolSize
}

// Execution is one batch of jobs started together. Outcomes is closed once every
// job has either reported or been abandoned.
type Execution struct {
	outcomes chan Outcome
	expired  chan struct{}
	finished chan struct{}
	cancel   context.CancelFunc

	cancelOnce sync.Once
	expireOnce sync.Once
	timeout    time.Duration
}

// Outcomes delivers one message per job that finished before cancellation
func (e *Execution) Outcomes() <-chan Outcome {
	return e.outcomes
}

// Expired is closed when the batch timeout fired
func (e *Execution) Expired() <-chan struct{} {
	return e.expired
}

// TimeoutError returns the error reported when the batch timeout fired
func (e *Execution) TimeoutError() error {
	return errors.Timeout(e.timeout)
}

// Cancel stops every outstanding job. Safe to call more than once.
func (e *Execution) Cancel() {
	e.cancelOnce.Do(e.cancel)
}

func (e *Execution) expire() {
	e.expireOnce.Do(func() {
		close(e.expired)
		e.Cancel()
	})
}

// watch fires expire once timeout elapses, unless the batch finished or was cancelled first
func (e *Execution) watch(ctx context.Context, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		e.expire()
	case <-e.finished:
	case <-ctx.Done():
	}
}

// Start dispatches every job and returns immediately. A positive timeout arms one
// watchdog for the whole batch; when it fires all outstanding jobs are cancelled
// and Expired is closed.
func (r *Runner) Start(ctx context.Context, jobs []stats.JobInput, timeout time.Duration) *Execution {
	execCtx, cancel := context.WithCancel(ctx)
	exec := &Execution{
		outcomes: make(chan Outcome, len(jobs)),
		expired:  make(chan struct{}),
		finished: make(chan struct{}),
		cancel:   cancel,
		timeout:  timeout,
	}
	if timeout > 0 {
		go exec.watch(execCtx, timeout)
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(in stats.JobInput) {
			defer wg.Done()
			r.run(execCtx, isolate(in), exec.outcomes)
		}(job)
	}

	go func() {
		wg.Wait()
		close(exec.finished)
		close(exec.outcomes)
		exec.Cancel()
	}()

	r.logger.Debug("[Runner] dispatched %d jobs (pool %d, timeout %s)", len(jobs), r.poolSize, timeout)
	return exec
}

func (r *Runner) run(ctx context.Context, in stats.JobInput, out chan<- Outcome) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.logger.Trace("[Runner] job %s abandoned before start: %v", in.JobID, err)
		return
	}
	defer r.sem.Release(1)

	start := time.Now()
	result, err := r.safeCompute(ctx, in)
	duration := time.Since(start)

	// Cancelled jobs report nothing.
	if ctx.Err() != nil {
		r.logger.Trace("[Runner] job %s discarded after cancellation", in.JobID)
		return
	}

	if err != nil {
		r.logger.Warn("[Runner] job %s (%s) failed after %v: %v", in.JobID, in.Kind, duration, err)
	} else {
		r.logger.Debug("[Runner] job %s (%s) finished in %v", in.JobID, in.Kind, duration)
	}

	out <- Outcome{
		JobID:    in.JobID,
		Kind:     in.Kind,
		Result:   result,
		Err:      err,
		Duration: duration,
	}
}

func (r *Runner) safeCompute(ctx context.Context, in stats.JobInput) (result stats.RawComputeResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("[Runner] job %s panicked: %v\n%s", in.JobID, rec, debug.Stack())
			err = fmt.Errorf("job %s panicked: %v", in.JobID, rec)
		}
	}()
	return r.compute(ctx, in)
}

// isolate gives the job its own copy of the data so no memory is shared between jobs
func isolate(in stats.JobInput) stats.JobInput {
	in.X = append([]float64(nil), in.X...)
	if in.Y != nil {
		in.Y = append([]float64(nil), in.Y...)
	}
	if in.Variable2 != nil {
		second := *in.Variable2
		in.Variable2 = &second
	}
	in.Options.ExpectedValues.Values = append([]float64(nil), in.Options.ExpectedValues.Values...)
	return in
}
