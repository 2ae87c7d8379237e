package table

import (
	"encoding/json"
	"fmt"
)

// ColumnHeader is a node in the column header tree. Grouped columns carry Children
// and no Key of their own.
type ColumnHeader struct {
	Header   string         `json:"header"`
	Key      string         `json:"key,omitempty"`
	Children []ColumnHeader `json:"children,omitempty"`
}

// Row is one table row. RowHeader holds the row labels outermost first.
type Row struct {
	RowHeader []string               `json:"rowHeader"`
	Cells     map[string]interface{} `json:"cells"`
}

// Table is a renderer-independent result table
type Table struct {
	Title         string         `json:"title"`
	ColumnHeaders []ColumnHeader `json:"columnHeaders"`
	Rows          []Row          `json:"rows"`
	Footnotes     []string       `json:"footnotes,omitempty"`
}

// Component names the test family a table belongs to
type Component string

const (
	ComponentDescriptive Component = "Descriptive Statistics"
	ComponentWilcoxon    Component = "Wilcoxon Signed Ranks Test"
	ComponentSign        Component = "Sign Test"
	ComponentChiSquare   Component = "Chi-Square Test"
)

// Output is a table tagged with the component that produced it
type Output struct {
	Component Component `json:"component"`
	Table     Table     `json:"table"`
}

// LeafKeys flattens the header tree into data keys in display order
func (t Table) LeafKeys() []string {
	var keys []string
	var walk func(headers []ColumnHeader)
	walk = func(headers []ColumnHeader) {
		for _, h := range headers {
			if len(h.Children) > 0 {
				walk(h.Children)
				continue
			}
			keys = append(keys, h.Key)
		}
	}
	walk(t.ColumnHeaders)
	return keys
}

// Depth is the number of header rows needed to draw the tree
func (t Table) Depth() int {
	var depth func(headers []ColumnHeader) int
	depth = func(headers []ColumnHeader) int {
		max := 0
		for _, h := range headers {
			d := 1
			if len(h.Children) > 0 {
				d += depth(h.Children)
			}
			if d > max {
				max = d
			}
		}
		return max
	}
	return depth(t.ColumnHeaders)
}

// Serialize encodes the table as the output_data payload handed to the result sink
func (t Table) Serialize() (string, error) {
	data, err := json.Marshal(map[string]interface{}{"tables": []Table{t}})
	if err != nil {
		return "", fmt.Errorf("failed to serialize table %q: %w", t.Title, err)
	}
	return string(data), nil
}
