package tabular

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Read failures are soft: callers log them and continue with the sibling
// files (a single bad export must never abort a location).
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoTable           = errors.New("no table found in file")
)

// parserStrategy is one attempt at turning a file into a Table. Strategies
// for a format are tried in fixed priority until one succeeds.
type parserStrategy struct {
	name  string
	parse func(path string) (*Table, error)
}

var formatStrategies = map[string][]parserStrategy{
	".xlsx": {{"workbook", readWorkbook}},
	".xlsm": {{"workbook", readWorkbook}},
	".xls": {
		{"workbook", readWorkbook},
		{"delimited", readDelimited},
	},
	".xlsb": {
		{"workbook", readWorkbook},
		{"delimited", readDelimited},
	},
	".csv":     {{"delimited", readDelimited}},
	".tsv":     {{"delimited", readDelimited}},
	".txt":     {{"delimited", readDelimited}},
	".html":    {{"html-table", readHTMLTable}},
	".htm":     {{"html-table", readHTMLTable}},
	".json":    {{"json-lines", readJSONLines}},
	".parquet": {{"parquet", readParquet}},
	".gob":     {{"gob", readGob}},
}

// Read parses the file at path into a Table, dispatching on the file
// extension and falling through the format's parser cascade. All failures
// are returned as errors for the caller to log; none are fatal.
func Read(path string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	strategies, ok := formatStrategies[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	var lastErr error
	for _, s := range strategies {
		table, err := s.parse(path)
		if err == nil {
			return table, nil
		}
		lastErr = err
		slog.Warn("parser strategy failed, trying next",
			slog.String("file", filepath.Base(path)),
			slog.String("strategy", s.name),
			slog.String("error", err.Error()))
	}
	return nil, fmt.Errorf("all parsers failed for %s: %w", filepath.Base(path), lastErr)
}

// normalizeRows pads ragged rows out to the header width and drops rows that
// are entirely blank.
func normalizeRows(columns []string, raw [][]string) [][]string {
	rows := make([][]string, 0, len(raw))
	for _, r := range raw {
		blank := true
		for _, cell := range r {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}
		if len(r) < len(columns) {
			padded := make([]string, len(columns))
			copy(padded, r)
			r = padded
		}
		rows = append(rows, r)
	}
	return rows
}
