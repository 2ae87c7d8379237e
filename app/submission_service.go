package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"rankstat/domain/core"
	"rankstat/domain/stats"
	"rankstat/domain/submission"
	"rankstat/domain/variable"
	"rankstat/internal"
	"rankstat/internal/errors"
	"rankstat/internal/executor"
	"rankstat/internal/orchestrator"
	"rankstat/ports"
)

// PairedCommand asks for two-related-samples tests over variables named by key
type PairedCommand struct {
	Pairs             [][2]string                  `json:"pairs"`
	TestType          submission.TestType          `json:"testType"`
	DisplayStatistics submission.DisplayStatistics `json:"displayStatistics"`
}

// ChiSquareCommand asks for goodness-of-fit tests over variables named by key
type ChiSquareCommand struct {
	Variables         []string                     `json:"variables"`
	ExpectedRange     stats.ExpectedRange          `json:"expectedRange"`
	ExpectedValue     stats.ExpectedValues         `json:"expectedValue"`
	DisplayStatistics submission.DisplayStatistics `json:"displayStatistics"`
}

// SubmissionSummary is a listing entry for a submission
type SubmissionSummary struct {
	ID          core.SubmissionID  `json:"id"`
	Title       string             `json:"title"`
	Machine     submission.Machine `json:"machine"`
	SubmittedAt time.Time          `json:"submittedAt"`
}

// ServiceDeps wires the collaborators shared by every submission
type ServiceDeps struct {
	Data     ports.DataProvider
	Catalog  ports.VariableCatalog
	Sink     ports.ResultSink
	Runner   *executor.Runner
	Listener ports.SubmissionListener
	Logger   *internal.Logger
}

type entry struct {
	orch        *orchestrator.Orchestrator
	submittedAt time.Time
}

// SubmissionService accepts submissions and keeps a registry of their orchestrators
type SubmissionService struct {
	deps    ServiceDeps
	timeout time.Duration
	logger  *internal.Logger

	mu          sync.RWMutex
	submissions map[core.SubmissionID]entry
}

// NewSubmissionService creates a submission service. timeout bounds each submission.
func NewSubmissionService(deps ServiceDeps, timeout time.Duration) *SubmissionService {
	logger := deps.Logger
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &SubmissionService{
		deps:        deps,
		timeout:     timeout,
		logger:      logger,
		submissions: make(map[core.SubmissionID]entry),
	}
}

// Submit dispatches req on a new orchestrator. listener, when not nil, receives this
// submission's signals after the service-wide listener.
func (s *SubmissionService) Submit(ctx context.Context, req submission.Request, listener ports.SubmissionListener) (*orchestrator.Orchestrator, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Validation(err)
	}

	var listeners ports.MultiListener
	if s.deps.Listener != nil {
		listeners = append(listeners, s.deps.Listener)
	}
	if listener != nil {
		listeners = append(listeners, listener)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Data:     s.deps.Data,
		Sink:     s.deps.Sink,
		Runner:   s.deps.Runner,
		Listener: listeners,
		Logger:   s.logger,
	}, s.timeout)

	s.mu.Lock()
	s.submissions[orch.ID()] = entry{orch: orch, submittedAt: time.Now()}
	s.mu.Unlock()

	if err := orch.Submit(ctx, req); err != nil {
		return orch, err
	}
	s.logger.Info("[SubmissionService] submission %s accepted: %s", orch.ID(), req.Title())
	return orch, nil
}

// SubmitPaired resolves cmd against the catalog and submits it
func (s *SubmissionService) SubmitPaired(ctx context.Context, cmd PairedCommand, listener ports.SubmissionListener) (*orchestrator.Orchestrator, error) {
	req, err := s.ResolvePaired(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, req, listener)
}

// SubmitChiSquare resolves cmd against the catalog and submits it
func (s *SubmissionService) SubmitChiSquare(ctx context.Context, cmd ChiSquareCommand, listener ports.SubmissionListener) (*orchestrator.Orchestrator, error) {
	req, err := s.ResolveChiSquare(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, req, listener)
}

// ResolvePaired turns variable keys into a paired request
func (s *SubmissionService) ResolvePaired(ctx context.Context, cmd PairedCommand) (submission.PairedRequest, error) {
	req := submission.PairedRequest{
		TestType:          cmd.TestType,
		DisplayStatistics: cmd.DisplayStatistics,
	}
	for _, keys := range cmd.Pairs {
		first, err := s.lookup(ctx, keys[0])
		if err != nil {
			return submission.PairedRequest{}, err
		}
		second, err := s.lookup(ctx, keys[1])
		if err != nil {
			return submission.PairedRequest{}, err
		}
		req.Pairs = append(req.Pairs, variable.Pair{First: first, Second: second})
	}
	return req, nil
}

// ResolveChiSquare turns variable keys into a chi-square request
func (s *SubmissionService) ResolveChiSquare(ctx context.Context, cmd ChiSquareCommand) (submission.ChiSquareRequest, error) {
	req := submission.ChiSquareRequest{
		ExpectedRange:     cmd.ExpectedRange,
		ExpectedValue:     cmd.ExpectedValue,
		DisplayStatistics: cmd.DisplayStatistics,
	}
	for _, key := range cmd.Variables {
		ref, err := s.lookup(ctx, key)
		if err != nil {
			return submission.ChiSquareRequest{}, err
		}
		req.Vars = append(req.Vars, ref)
	}
	return req, nil
}

// Variables lists the variables available for testing
func (s *SubmissionService) Variables(ctx context.Context) ([]variable.Ref, error) {
	if s.deps.Catalog == nil {
		return nil, nil
	}
	return s.deps.Catalog.ListVariables(ctx)
}

// Get returns the orchestrator of a submission
func (s *SubmissionService) Get(id core.SubmissionID) (*orchestrator.Orchestrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.submissions[id]
	if !ok {
		return nil, errors.NotFound("submission " + id.String())
	}
	return e.orch, nil
}

// Cancel cancels a submission. Cancelling a finished submission is a no-op.
func (s *SubmissionService) Cancel(id core.SubmissionID) error {
	orch, err := s.Get(id)
	if err != nil {
		return err
	}
	orch.Cancel()
	return nil
}

// List returns every known submission, oldest first
func (s *SubmissionService) List() []SubmissionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SubmissionSummary, 0, len(s.submissions))
	for id, e := range s.submissions {
		summary := SubmissionSummary{ID: id, Machine: e.orch.Machine(), SubmittedAt: e.submittedAt}
		if req := e.orch.Request(); req != nil {
			summary.Title = req.Title()
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

// Forget drops finished submissions older than age and returns how many were removed
func (s *SubmissionService) Forget(age time.Duration) int {
	cutoff := time.Now().Add(-age)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.submissions {
		if e.orch.State().IsTerminal() && e.submittedAt.Before(cutoff) {
			delete(s.submissions, id)
			removed++
		}
	}
	return removed
}

func (s *SubmissionService) lookup(ctx context.Context, key string) (variable.Ref, error) {
	if s.deps.Catalog == nil {
		return variable.Ref{}, errors.InternalError("no variable catalog configured")
	}
	ref, err := s.deps.Catalog.LookupVariable(ctx, key)
	if err != nil {
		if core.IsNotFoundError(err) {
			return variable.Ref{}, errors.NotFound("variable " + key)
		}
		return variable.Ref{}, errors.Wrap(err, "failed to look up variable")
	}
	return ref, nil
}
