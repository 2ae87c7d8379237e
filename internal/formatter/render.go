package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	domaintable "rankstat/domain/table"
)

// Render writes tables as plain text, one after another
func Render(w io.Writer, outputs []domaintable.Output) error {
	for i, out := range outputs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, RenderTable(out.Table)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// RenderTable draws one table. Row headers fill the leading columns and grouped
// column headers span their children.
func RenderTable(t domaintable.Table) string {
	tw := table.NewWriter()
	tw.SetTitle(t.Title)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault

	rowHeaderWidth := 0
	for _, r := range t.Rows {
		if len(r.RowHeader) > rowHeaderWidth {
			rowHeaderWidth = len(r.RowHeader)
		}
	}

	for _, header := range headerRows(t.ColumnHeaders, t.Depth()) {
		row := make(table.Row, 0, rowHeaderWidth+len(header))
		for i := 0; i < rowHeaderWidth; i++ {
			row = append(row, "")
		}
		for _, h := range header {
			row = append(row, h)
		}
		tw.AppendHeader(row, table.RowConfig{AutoMerge: true})
	}

	keys := t.LeafKeys()
	for _, r := range t.Rows {
		row := make(table.Row, 0, rowHeaderWidth+len(keys))
		for i := 0; i < rowHeaderWidth; i++ {
			if i < len(r.RowHeader) {
				row = append(row, r.RowHeader[i])
			} else {
				row = append(row, "")
			}
		}
		for _, key := range keys {
			row = append(row, formatCell(r.Cells[key]))
		}
		tw.AppendRow(row)
	}

	if rowHeaderWidth > 1 {
		cfgs := make([]table.ColumnConfig, 0, rowHeaderWidth-1)
		for i := 1; i < rowHeaderWidth; i++ {
			cfgs = append(cfgs, table.ColumnConfig{Number: i, AutoMerge: true})
		}
		tw.SetColumnConfigs(cfgs)
	}

	var b strings.Builder
	b.WriteString(tw.Render())
	for i, note := range t.Footnotes {
		fmt.Fprintf(&b, "\n%c. %s", 'a'+rune(i%26), note)
	}
	return b.String()
}

// headerRows expands the header tree into depth rows. A leaf shallower than the
// tree repeats its header downwards so merged cells line up.
func headerRows(headers []domaintable.ColumnHeader, depth int) [][]string {
	rows := make([][]string, depth)
	var walk func(h domaintable.ColumnHeader, level int)
	walk = func(h domaintable.ColumnHeader, level int) {
		if len(h.Children) == 0 {
			for l := level; l < depth; l++ {
				rows[l] = append(rows[l], h.Header)
			}
			return
		}
		for range leafCount(h) {
			rows[level] = append(rows[level], h.Header)
		}
		for _, c := range h.Children {
			walk(c, level+1)
		}
	}
	for _, h := range headers {
		walk(h, 0)
	}
	return rows
}

func leafCount(h domaintable.ColumnHeader) int {
	if len(h.Children) == 0 {
		return 1
	}
	n := 0
	for _, c := range h.Children {
		n += leafCount(c)
	}
	return n
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%g", val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
