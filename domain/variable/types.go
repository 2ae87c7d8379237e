package variable

import (
	"fmt"

	"rankstat/domain/core"
)

// ValueType is the storage type of a variable
type ValueType string

const (
	TypeNumeric ValueType = "numeric"
	TypeString  ValueType = "string"
)

// MeasurementLevel describes the scale a variable is measured on
type MeasurementLevel string

const (
	LevelNominal MeasurementLevel = "nominal"
	LevelOrdinal MeasurementLevel = "ordinal"
	LevelScale   MeasurementLevel = "scale"
	LevelUnknown MeasurementLevel = "unknown"
)

// Ref identifies a dataset column. Refs are immutable once a submission is dispatched.
type Ref struct {
	Key         core.VariableKey `json:"key"`
	Label       string           `json:"label,omitempty"`
	Type        ValueType        `json:"type"`
	Measurement MeasurementLevel `json:"measurement"`
	Decimals    int              `json:"decimals"`
	Column      int              `json:"column"`
}

// Name returns the label when present, otherwise the key
func (r Ref) Name() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Key.String()
}

// IsNumeric reports whether the variable holds numbers
func (r Ref) IsNumeric() bool {
	return r.Type == TypeNumeric
}

// SameColumn reports whether two refs point at the same dataset column
func (r Ref) SameColumn(other Ref) bool {
	return r.Column == other.Column
}

// Pair is an ordered pair of variables tested against each other
type Pair struct {
	First  Ref `json:"first"`
	Second Ref `json:"second"`
}

// Label renders the pair as "A - B"
func (p Pair) Label() string {
	return fmt.Sprintf("%s - %s", p.First.Name(), p.Second.Name())
}

// Key identifies the ordered pair by column position
func (p Pair) Key() [2]int {
	return [2]int{p.First.Column, p.Second.Column}
}

// Distinct returns the unique variables across pairs in first-seen order
func Distinct(pairs []Pair) []Ref {
	seen := make(map[int]bool)
	var refs []Ref
	for _, p := range pairs {
		for _, r := range []Ref{p.First, p.Second} {
			if seen[r.Column] {
				continue
			}
			seen[r.Column] = true
			refs = append(refs, r)
		}
	}
	return refs
}
