package excel

// Config holds configuration for the spreadsheet data source
type Config struct {
	FilePath string `json:"file_path"`
	// Sheet is the worksheet to read. Empty means the first sheet.
	Sheet string `json:"sheet"`
	// MaxDecimals caps the display precision inferred for a numeric column
	MaxDecimals int `json:"max_decimals"`
}

// DefaultConfig returns sensible defaults for spreadsheet loading
func DefaultConfig() Config {
	return Config{MaxDecimals: 4}
}
