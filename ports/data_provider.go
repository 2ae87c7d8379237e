package ports

import (
	"context"

	"rankstat/domain/variable"
)

// DataProvider returns the raw values of a variable aligned to case index.
// Missing values are NaN and must be honoured by casewise deletion.
type DataProvider interface {
	GetVariableData(ctx context.Context, ref variable.Ref) ([]float64, error)
}

// VariableCatalog lists the variables a provider can serve
type VariableCatalog interface {
	ListVariables(ctx context.Context) ([]variable.Ref, error)
	LookupVariable(ctx context.Context, key string) (variable.Ref, error)
}
