package nonparametric

import (
	"context"
	"fmt"

	"rankstat/domain/core"
	"rankstat/domain/stats"
)

// Test is a single stateless compute job algorithm
type Test interface {
	Kind() stats.JobKind
	Description() string
	Run(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error)
}

// Engine dispatches job inputs to the test registered for their kind
type Engine struct {
	tests map[stats.JobKind]Test
}

// NewEngine creates an engine with every nonparametric test registered
func NewEngine() *Engine {
	e := &Engine{tests: make(map[stats.JobKind]Test)}
	for _, t := range []Test{
		NewWilcoxonTest(),
		NewSignTest(),
		NewChiSquareTest(),
		NewDescriptiveJob(),
	} {
		e.tests[t.Kind()] = t
	}
	return e
}

// Compute runs one job. Insufficient data is reported in the result metadata, never
// as an error; errors mean the input was malformed or the job was cancelled.
func (e *Engine) Compute(ctx context.Context, in stats.JobInput) (stats.RawComputeResult, error) {
	test, ok := e.tests[in.Kind]
	if !ok {
		return stats.RawComputeResult{}, fmt.Errorf("%w: %q", core.ErrUnknownJobKind, in.Kind)
	}
	if in.Kind.IsPaired() && in.Variable2 == nil {
		return stats.RawComputeResult{}, fmt.Errorf("%w: %s job without second variable", core.ErrMalformedResult, in.Kind)
	}

	result, err := test.Run(ctx, in)
	if err != nil {
		return stats.RawComputeResult{}, err
	}
	if err := result.Validate(); err != nil {
		return stats.RawComputeResult{}, err
	}
	return result, nil
}

// Describe returns the description of every registered test keyed by kind
func (e *Engine) Describe() map[stats.JobKind]string {
	out := make(map[stats.JobKind]string, len(e.tests))
	for kind, t := range e.tests {
		out[kind] = t.Description()
	}
	return out
}

func lengthMismatch(left, right int) error {
	return core.NewLengthMismatchError(left, right)
}
