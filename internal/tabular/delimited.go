package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readDelimited parses a delimited text file. The encoding cascade matches
// the legacy exports: UTF-8 first, Windows-1252 when the bytes are not valid
// UTF-8. The delimiter is sniffed from the header line and malformed rows
// are skipped, not fatal.
func readDelimited(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode as windows-1252: %w", err)
		}
		data = decoded
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: file is empty", ErrNoTable)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// malformed row, skip it
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no parseable rows", ErrNoTable)
	}

	columns := make([]string, len(records[0]))
	for i, c := range records[0] {
		columns[i] = strings.TrimSpace(c)
	}
	return &Table{Columns: columns, Rows: normalizeRows(columns, records[1:])}, nil
}

// sniffDelimiter picks the separator with the most occurrences on the first
// line, defaulting to comma.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}

	best := ','
	bestCount := strings.Count(line, ",")
	for _, cand := range []rune{'\t', ';', '|'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}
