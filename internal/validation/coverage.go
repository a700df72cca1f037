package validation

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"ordergen/internal/locations"
	"ordergen/internal/tabular"
)

// periodCategory is a document category that participates in the coverage
// grid, with the date column that places its rows in time.
type periodCategory struct {
	category   locations.Category
	dateColumn string
	label      string
}

var periodCategories = []periodCategory{
	{locations.CategoryBackOrder, "Order Date", "bo"},
	{locations.CategoryInTransit, "Purchase_Order_Date", "intransit"},
}

// Gap records a period at a location that lacks any qualifying row in one or
// more period-bearing categories.
type Gap struct {
	Brand    string
	Dealer   string
	Location string
	Period   Period
	Missing  []string
}

// GapLogColumns is the column order of the downloadable validation log.
var GapLogColumns = []string{"Brand", "Dealer", "Location", "Period", "Missing In"}

// Result is the outcome of a coverage validation run. All fields are
// well-defined (possibly empty), never nil semantics: an empty Result means
// full coverage.
type Result struct {
	Messages []string // human-readable findings, including per-file errors
	Gaps     []Gap
}

// GapTable renders the gaps as a table for CSV export.
func (r *Result) GapTable() *tabular.Table {
	rows := make([][]string, 0, len(r.Gaps))
	for _, g := range r.Gaps {
		rows = append(rows, []string{
			g.Brand, g.Dealer, g.Location, g.Period.String(), strings.Join(g.Missing, ", "),
		})
	}
	return &tabular.Table{Columns: GapLogColumns, Rows: rows}
}

// ReadFunc parses a file into a table; swappable in tests.
type ReadFunc func(path string) (*tabular.Table, error)

// Validator checks date-period coverage per location for the period-bearing
// categories. This is a soft gate: it reports gaps, the caller decides
// whether to block, because real exports are frequently sparse.
type Validator struct {
	read ReadFunc
}

// NewValidator returns a Validator backed by the standard tabular reader.
func NewValidator() *Validator {
	return &Validator{read: tabular.Read}
}

// NewValidatorWithReader returns a Validator with a custom reader.
func NewValidatorWithReader(read ReadFunc) *Validator {
	return &Validator{read: read}
}

// Validate builds the period grid and evaluates, per location, which
// categories have at least one row dated inside each period. Per-file read
// and coercion failures become messages and never stop the remaining files
// or periods.
func (v *Validator) Validate(records []locations.Record, start, end time.Time, periodDays int) *Result {
	result := &Result{}
	periods := BuildPeriods(start, end, periodDays)
	if len(periods) == 0 {
		return result
	}

	for _, rec := range records {
		covered := make(map[string][]bool, len(periodCategories))
		for _, pc := range periodCategories {
			covered[pc.label] = v.categoryCoverage(rec, pc, periods, result)
		}

		for i, period := range periods {
			var missing []string
			for _, pc := range periodCategories {
				if !covered[pc.label][i] {
					missing = append(missing, pc.label)
				}
			}
			if len(missing) == 0 {
				continue
			}
			result.Gaps = append(result.Gaps, Gap{
				Brand:    rec.Brand,
				Dealer:   rec.Dealer,
				Location: rec.Location,
				Period:   period,
				Missing:  missing,
			})
			result.Messages = append(result.Messages, fmt.Sprintf(
				"%s: %s missing for period %s", rec.Location, strings.Join(missing, " and "), period))
		}
	}
	return result
}

// categoryCoverage marks each period covered when any row of any file in the
// category has a date inside it. Unparseable dates count as missing.
func (v *Validator) categoryCoverage(rec locations.Record, pc periodCategory, periods []Period, result *Result) []bool {
	covered := make([]bool, len(periods))

	files, err := locations.CategoryFiles(rec, pc.category)
	if err != nil {
		result.Messages = append(result.Messages, fmt.Sprintf(
			"%s: Error validating %s periods - %v", rec.Location, pc.label, err))
		return covered
	}

	for _, name := range files {
		path := filepath.Join(rec.Path, name)
		table, err := v.read(path)
		if err != nil {
			result.Messages = append(result.Messages, fmt.Sprintf(
				"%s: Error validating %s periods - %v", rec.Location, pc.label, err))
			continue
		}
		if table.Empty() {
			continue
		}
		col, ok := table.ColumnIndex(pc.dateColumn)
		if !ok {
			result.Messages = append(result.Messages, fmt.Sprintf(
				"%s: Error validating %s periods - column %q not found in %s",
				rec.Location, pc.label, pc.dateColumn, name))
			continue
		}
		for row := range table.Rows {
			d, ok := tabular.ParseDate(table.Cell(row, col))
			if !ok {
				continue
			}
			for i, period := range periods {
				if !covered[i] && period.Contains(d) {
					covered[i] = true
				}
			}
		}
	}

	slog.Debug("category coverage evaluated",
		slog.String("location", rec.String()),
		slog.String("category", pc.label),
		slog.Int("files", len(files)))
	return covered
}
