package tabular

import (
	"strconv"
	"strings"
	"time"
)

// Table is a parsed tabular file: an ordered set of named columns plus rows
// of string cells. It is the common currency between the readers, the
// coverage validator and the report merger.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column. Lookup is exact
// first, then case-insensitive with surrounding whitespace ignored.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.Columns {
		if col == name {
			return i, true
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, col := range t.Columns {
		if strings.ToLower(strings.TrimSpace(col)) == want {
			return i, true
		}
	}
	return 0, false
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// Cell returns the value at (row, column index), tolerating ragged rows.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Empty reports whether the table holds no data rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// ParseNumber parses a numeric cell, stripping thousands separators the way
// the source DMS exports format quantities ("1,200"). The second return is
// false for blank or non-numeric cells.
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// excel epoch: serial day 0 is 1899-12-30
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-06",
	"01/02/2006 15:04:05",
	"02.01.2006",
}

// ParseDate parses a date cell. ISO layouts are preferred, then the
// day-first layouts the dealer exports use, then Excel serial day numbers
// (excelize returns those for unformatted date cells). Returns false for
// anything unparseable; callers treat that as a missing date, not an error.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		return excelEpoch.AddDate(0, 0, int(serial)), true
	}
	return time.Time{}, false
}
