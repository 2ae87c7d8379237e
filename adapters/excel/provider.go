package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"rankstat/adapters/memory"
	"rankstat/domain/core"
	"rankstat/domain/variable"
	"rankstat/internal"
)

// Load reads a spreadsheet and returns a provider over its columns.
// Blank and non-numeric cells become NaN so they drop out of every test.
func Load(cfg Config, logger *internal.Logger) (*memory.Provider, error) {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	sheet, err := NewDataReader(cfg.FilePath, cfg.Sheet, logger).ReadSheet()
	if err != nil {
		return nil, err
	}

	columns := BuildColumns(sheet, cfg.MaxDecimals)
	logger.Info("[DataReader] loaded %d variables from %s", len(columns), cfg.FilePath)
	return memory.NewProvider(columns...), nil
}

// BuildColumns converts every sheet column into a typed variable
func BuildColumns(sheet *Sheet, maxDecimals int) []memory.Column {
	used := make(map[string]int)
	columns := make([]memory.Column, 0, len(sheet.Headers))

	for j, header := range sheet.Headers {
		key := variableKey(header, j)
		used[key]++
		if n := used[key]; n > 1 {
			key = fmt.Sprintf("%s_%d", key, n)
		}

		values := make([]float64, len(sheet.Rows))
		numeric, blank, integral := 0, 0, true
		decimals := 0
		for i := range sheet.Rows {
			cell := sheet.Cell(i, j)
			if cell == "" {
				values[i] = math.NaN()
				blank++
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsInf(v, 0) {
				values[i] = math.NaN()
				continue
			}
			values[i] = v
			numeric++
			if v != math.Trunc(v) {
				integral = false
			}
			if d := decimalPlaces(cell); d > decimals {
				decimals = d
			}
		}

		ref := variable.Ref{
			Key:    core.VariableKey(key),
			Label:  header,
			Column: j,
		}
		switch {
		case numeric > 0 && numeric+blank == len(sheet.Rows):
			ref.Type = variable.TypeNumeric
			ref.Decimals = min(decimals, maxDecimals)
			if integral {
				ref.Measurement = variable.LevelOrdinal
			} else {
				ref.Measurement = variable.LevelScale
			}
		case numeric == 0 && blank == len(sheet.Rows):
			ref.Type = variable.TypeNumeric
			ref.Measurement = variable.LevelUnknown
		default:
			ref.Type = variable.TypeString
			ref.Measurement = variable.LevelNominal
		}
		if ref.Label == "" {
			ref.Label = key
		}

		columns = append(columns, memory.Column{Ref: ref, Values: values})
	}
	return columns
}

// variableKey derives a lower-case identifier from a header
func variableKey(header string, column int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteByte('_')
		}
	}
	key := strings.TrimSuffix(b.String(), "_")
	if key == "" {
		return fmt.Sprintf("var%05d", column+1)
	}
	return key
}

func decimalPlaces(cell string) int {
	if strings.ContainsAny(cell, "eE") {
		return 0
	}
	if i := strings.IndexByte(cell, '.'); i >= 0 {
		return len(cell) - i - 1
	}
	return 0
}
