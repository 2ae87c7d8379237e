package excel

// Sheet is a raw worksheet: trimmed headers and the data rows beneath them
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the trimmed cell at row i, column j, or "" when the row is short
func (s *Sheet) Cell(i, j int) string {
	row := s.Rows[i]
	if j >= len(row) {
		return ""
	}
	return row[j]
}
