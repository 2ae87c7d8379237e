package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rankstat/domain/core"
	"rankstat/domain/stats"
	"rankstat/domain/submission"
	"rankstat/domain/variable"
	"rankstat/internal"
	"rankstat/internal/errors"
	"rankstat/internal/executor"
	"rankstat/internal/formatter"
	"rankstat/ports"
)

// Deps are the collaborators of an orchestrator. Sink may be nil, in which case
// results are not persisted.
type Deps struct {
	Data     ports.DataProvider
	Sink     ports.ResultSink
	Runner   *executor.Runner
	Listener ports.SubmissionListener
	Logger   *internal.Logger
}

// Orchestrator supervises one submission from dispatch to its terminal state
type Orchestrator struct {
	id       core.SubmissionID
	deps     Deps
	timeout  time.Duration
	logger   *internal.Logger
	listener ports.SubmissionListener

	mu        sync.Mutex
	machine   submission.Machine
	request   submission.Request
	jobs      map[core.JobID]int
	labels    []string
	seen      map[core.JobID]bool
	results   map[int]stats.RawComputeResult
	jobErrors []string
	exec      *executor.Execution
	runCtx    context.Context
	stopRun   context.CancelFunc
	outcome   submission.Outcome
	done      chan struct{}
}

// New creates an idle orchestrator. timeout bounds the whole submission; zero disables it.
func New(deps Deps, timeout time.Duration) *Orchestrator {
	id := core.NewSubmissionID()
	logger := deps.Logger
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	listener := deps.Listener
	if listener == nil {
		listener = ports.ListenerFuncs{}
	}
	return &Orchestrator{
		id:       id,
		deps:     deps,
		timeout:  timeout,
		logger:   logger.With("submission_id", id.String()),
		listener: listener,
		machine:  submission.NewMachine(),
		jobs:     make(map[core.JobID]int),
		seen:     make(map[core.JobID]bool),
		results:  make(map[int]stats.RawComputeResult),
		done:     make(chan struct{}),
	}
}

// ID returns the submission identifier
func (o *Orchestrator) ID() core.SubmissionID {
	return o.id
}

// Machine returns a snapshot of the state machine
func (o *Orchestrator) Machine() submission.Machine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine
}

// Request returns the submitted request, or nil before Submit
func (o *Orchestrator) Request() submission.Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.request
}

// State returns the current state
func (o *Orchestrator) State() submission.State {
	return o.Machine().State
}

// Done is closed once the submission reaches a terminal state
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Outcome returns the terminal outcome, and false while the submission is still running
func (o *Orchestrator) Outcome() (submission.Outcome, bool) {
	select {
	case <-o.done:
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.outcome, true
	default:
		return submission.Outcome{}, false
	}
}

// Wait blocks until the submission finishes or ctx is done
func (o *Orchestrator) Wait(ctx context.Context) (submission.Outcome, error) {
	select {
	case <-o.done:
		out, _ := o.Outcome()
		return out, out.Err
	case <-ctx.Done():
		return submission.Outcome{}, ctx.Err()
	}
}

// Submit validates req, fetches the data of every referenced variable and dispatches
// all jobs. It returns once the jobs are running; completion is signalled through
// the listener and Done.
func (o *Orchestrator) Submit(ctx context.Context, req submission.Request) error {
	if err := req.Validate(); err != nil {
		o.logger.Warn("[Orchestrator] rejected submission: %v", err)
		return errors.Validation(err)
	}

	o.mu.Lock()
	next, err := o.machine.Apply(submission.EventSubmit)
	if err != nil {
		o.mu.Unlock()
		return errors.Wrap(err, "submission already started")
	}
	o.machine = next
	o.request = req
	runCtx, stopRun := context.WithCancel(context.WithoutCancel(ctx))
	o.runCtx = runCtx
	o.stopRun = stopRun
	o.mu.Unlock()

	o.logger.Info("[Orchestrator] %s: fetching %d variables", req.Title(), len(req.Variables()))

	data, err := o.fetch(runCtx, req.Variables())
	if err != nil {
		o.fail(err)
		return err
	}

	plan := req.Plan()
	opts := req.Options()
	inputs := make([]stats.JobInput, len(plan))
	for i, spec := range plan {
		in := stats.JobInput{
			JobID:     core.NewJobID(),
			Kind:      spec.Kind,
			Variable1: spec.First,
			X:         data[spec.First.Column],
			Options:   opts,
		}
		if spec.Second != nil {
			second := *spec.Second
			in.Variable2 = &second
			in.Y = data[second.Column]
		}
		inputs[i] = in
	}

	o.mu.Lock()
	if o.machine.State != submission.StateDispatching {
		// cancelled while data was being fetched
		o.mu.Unlock()
		return errors.Cancelled()
	}
	o.labels = make([]string, len(inputs))
	for i, in := range inputs {
		o.jobs[in.JobID] = i
		o.labels[i] = in.NewResult().PairLabel()
	}
	o.machine.Expected = len(inputs)
	o.exec = o.deps.Runner.Start(runCtx, inputs, o.timeout)
	o.machine, _ = o.machine.Apply(submission.EventDispatched)
	exec := o.exec
	o.mu.Unlock()

	o.logger.Info("[Orchestrator] dispatched %d jobs", len(inputs))
	go o.supervise(exec)
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, refs []variable.Ref) (map[int][]float64, error) {
	data := make(map[int][]float64, len(refs))
	for _, ref := range refs {
		values, err := o.deps.Data.GetVariableData(ctx, ref)
		if err != nil {
			return nil, errors.DataUnavailable(ref.Name(), err)
		}
		data[ref.Column] = values
	}
	return data, nil
}

// batch is the part of a running execution the supervisor reads
type batch interface {
	Outcomes() <-chan executor.Outcome
	Expired() <-chan struct{}
	TimeoutError() error
}

func (o *Orchestrator) supervise(exec batch) {
	for {
		select {
		case out, ok := <-exec.Outcomes():
			if !ok {
				return
			}
			o.HandleOutcome(out)
		case <-exec.Expired():
			// outcomes buffered before the deadline still count
			o.drain(exec)
			o.expire(exec.TimeoutError())
			return
		}
	}
}

func (o *Orchestrator) drain(exec batch) {
	for {
		select {
		case out, ok := <-exec.Outcomes():
			if !ok {
				return
			}
			o.HandleOutcome(out)
		default:
			return
		}
	}
}

// HandleOutcome records one job outcome. Outcomes for unknown jobs, repeated
// outcomes and outcomes arriving after the submission left AwaitingResults are ignored.
func (o *Orchestrator) HandleOutcome(out executor.Outcome) {
	o.mu.Lock()
	if o.machine.State != submission.StateAwaitingResults {
		o.mu.Unlock()
		o.logger.Debug("[Orchestrator] ignoring job %s in state %s", out.JobID, o.State())
		return
	}
	idx, known := o.jobs[out.JobID]
	if !known || o.seen[out.JobID] {
		o.mu.Unlock()
		o.logger.Debug("[Orchestrator] ignoring duplicate or unknown job %s", out.JobID)
		return
	}
	o.seen[out.JobID] = true

	if out.Success() {
		o.results[idx] = out.Result
	} else {
		o.jobErrors = append(o.jobErrors, fmt.Sprintf("%s %s: %v", out.Kind, o.labels[idx], out.Err))
	}

	var complete bool
	o.machine, complete = o.machine.Record(out.Success())
	progress := submission.Progress{
		SubmissionID: o.id,
		State:        o.machine.State,
		Processed:    o.machine.Processed,
		Expected:     o.machine.Expected,
	}
	o.mu.Unlock()

	o.listener.OnProgress(progress)
	if complete {
		o.aggregate()
	}
}

func (o *Orchestrator) aggregate() {
	o.mu.Lock()
	if o.machine.State != submission.StateAwaitingResults {
		o.mu.Unlock()
		return
	}

	if o.machine.Succeeded == 0 {
		o.machine, _ = o.machine.Apply(submission.EventAllFailed)
		err := errors.Compute(o.jobErrors...)
		outcome := o.finishLocked(submission.Outcome{
			JobErrors: append([]string(nil), o.jobErrors...),
			Err:       err,
		})
		o.mu.Unlock()

		o.logger.Error("[Orchestrator] every job failed")
		o.listener.OnError(outcome)
		return
	}

	o.machine, _ = o.machine.Apply(submission.EventAllProcessed)
	ordered := o.orderedResultsLocked()
	req := o.request
	jobErrors := append([]string(nil), o.jobErrors...)
	o.mu.Unlock()

	formatted := formatter.Format(ordered, req.Options())
	persisted, persistErr := o.persist(req, formatted)

	o.mu.Lock()
	if o.machine.State != submission.StateAggregating {
		// cancelled while persisting
		o.mu.Unlock()
		return
	}

	outcome := submission.Outcome{
		Tables:    formatted.Tables,
		Notes:     formatted.Notes,
		JobErrors: jobErrors,
		Persisted: persisted,
	}
	if persistErr != nil {
		o.machine, _ = o.machine.Apply(submission.EventFail)
		outcome.Err = persistErr
		outcome = o.finishLocked(outcome)
		o.mu.Unlock()

		o.logger.Error("[Orchestrator] persistence failed: %v", persistErr)
		o.listener.OnError(outcome)
		return
	}

	o.machine, _ = o.machine.Apply(submission.EventAggregated)
	outcome = o.finishLocked(outcome)
	o.mu.Unlock()

	if len(jobErrors) > 0 {
		o.logger.Warn("[Orchestrator] completed with %d failed jobs", len(jobErrors))
	} else {
		o.logger.Info("[Orchestrator] completed with %d tables", len(outcome.Tables))
	}
	o.listener.OnComplete(outcome)
}

func (o *Orchestrator) orderedResultsLocked() []stats.RawComputeResult {
	indexes := make([]int, 0, len(o.results))
	for idx := range o.results {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	ordered := make([]stats.RawComputeResult, len(indexes))
	for i, idx := range indexes {
		ordered[i] = o.results[idx]
	}
	return ordered
}

// persist stores log, analytic and statistics in that order
func (o *Orchestrator) persist(req submission.Request, formatted formatter.Result) (*submission.Persisted, error) {
	sink := o.deps.Sink
	if sink == nil {
		return nil, nil
	}

	o.mu.Lock()
	ctx := o.runCtx
	o.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	logID, err := sink.AddLog(ctx, req.Syntax())
	if err != nil {
		return nil, errors.Persistence("log", err)
	}
	persisted := &submission.Persisted{LogID: logID}

	analyticID, err := sink.AddAnalytic(ctx, logID, ports.Analytic{
		Title: req.Title(),
		Note:  strings.Join(formatted.Notes, "\n"),
	})
	if err != nil {
		return persisted, errors.Persistence("analytic", err)
	}
	persisted.AnalyticID = analyticID

	for _, out := range formatted.Tables {
		data, err := out.Table.Serialize()
		if err != nil {
			return persisted, errors.Persistence("statistic", err)
		}
		statID, err := sink.AddStatistic(ctx, analyticID, ports.Statistic{
			Title:       out.Table.Title,
			OutputData:  data,
			Components:  string(out.Component),
			Description: strings.Join(out.Table.Footnotes, "\n"),
		})
		if err != nil {
			return persisted, errors.Persistence("statistic", err)
		}
		persisted.StatisticIDs = append(persisted.StatisticIDs, statID)
	}

	o.logger.Debug("[Orchestrator] persisted %d statistics under analytic %s", len(persisted.StatisticIDs), analyticID)
	return persisted, nil
}

// Cancel stops the submission from any non-terminal state, discarding all results.
// Calling it again, or after completion, has no effect.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	next, err := o.machine.Apply(submission.EventCancel)
	if err != nil {
		o.mu.Unlock()
		return
	}
	o.machine = next
	o.stopLocked()
	outcome := o.finishLocked(submission.Outcome{Err: errors.Cancelled()})
	o.mu.Unlock()

	o.logger.Info("[Orchestrator] cancelled")
	o.listener.OnCancelled(outcome)
}

func (o *Orchestrator) expire(timeoutErr error) {
	o.mu.Lock()
	next, err := o.machine.Apply(submission.EventTimeout)
	if err != nil {
		o.mu.Unlock()
		return
	}
	o.machine = next
	o.stopLocked()
	outcome := o.finishLocked(submission.Outcome{Err: timeoutErr})
	o.mu.Unlock()

	o.logger.Warn("[Orchestrator] timed out after %s", o.timeout)
	o.listener.OnCancelled(outcome)
	o.listener.OnError(outcome)
}

func (o *Orchestrator) fail(err error) {
	o.mu.Lock()
	next, applyErr := o.machine.Apply(submission.EventFail)
	if applyErr != nil {
		o.mu.Unlock()
		return
	}
	o.machine = next
	o.stopLocked()
	outcome := o.finishLocked(submission.Outcome{Err: err})
	o.mu.Unlock()

	o.logger.Error("[Orchestrator] failed: %v", err)
	o.listener.OnError(outcome)
}

// stopLocked tears down running jobs and drops collected results
func (o *Orchestrator) stopLocked() {
	if o.exec != nil {
		o.exec.Cancel()
	}
	if o.stopRun != nil {
		o.stopRun()
	}
	o.results = make(map[int]stats.RawComputeResult)
}

// finishLocked stamps identity and state onto the outcome and closes Done
func (o *Orchestrator) finishLocked(outcome submission.Outcome) submission.Outcome {
	outcome.SubmissionID = o.id
	outcome.State = o.machine.State
	if outcome.Err != nil {
		outcome.Error = outcome.Err.Error()
	}
	o.outcome = outcome
	if o.stopRun != nil {
		o.stopRun()
	}
	close(o.done)
	return outcome
}
