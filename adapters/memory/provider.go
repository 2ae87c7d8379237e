package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rankstat/domain/core"
	"rankstat/domain/variable"
)

// Column is one variable together with its values
type Column struct {
	Ref    variable.Ref
	Values []float64
}

// Provider serves variable data held in memory
type Provider struct {
	mu      sync.RWMutex
	columns map[int]Column
}

// NewProvider creates a provider over the given columns. Column positions are taken
// from each Ref.
func NewProvider(columns ...Column) *Provider {
	p := &Provider{columns: make(map[int]Column, len(columns))}
	for _, c := range columns {
		p.Put(c)
	}
	return p
}

// Put adds or replaces a column
func (p *Provider) Put(c Column) {
	p.mu.Lock()
	defer p.mu.Unlock()
	values := make([]float64, len(c.Values))
	copy(values, c.Values)
	p.columns[c.Ref.Column] = Column{Ref: c.Ref, Values: values}
}

// GetVariableData returns a copy of the values of ref
func (p *Provider) GetVariableData(ctx context.Context, ref variable.Ref) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, ok := p.columns[ref.Column]
	if !ok {
		return nil, fmt.Errorf("%w: column %d (%s)", core.ErrVariableNotFound, ref.Column, ref.Name())
	}
	out := make([]float64, len(c.Values))
	copy(out, c.Values)
	return out, nil
}

// ListVariables returns every variable in column order
func (p *Provider) ListVariables(ctx context.Context) ([]variable.Ref, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	refs := make([]variable.Ref, 0, len(p.columns))
	for _, c := range p.columns {
		refs = append(refs, c.Ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Column < refs[j].Column })
	return refs, nil
}

// LookupVariable finds a variable by key
func (p *Provider) LookupVariable(ctx context.Context, key string) (variable.Ref, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, c := range p.columns {
		if c.Ref.Key.String() == key {
			return c.Ref, nil
		}
	}
	return variable.Ref{}, core.NewNotFoundError("variable", key)
}
