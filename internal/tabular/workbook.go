package tabular

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readWorkbook parses a native spreadsheet workbook and returns the first
// sheet that contains data. The first non-empty row is taken as the header.
func readWorkbook(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		header := -1
		for i, row := range rows {
			for _, cell := range row {
				if cell != "" {
					header = i
					break
				}
			}
			if header >= 0 {
				break
			}
		}
		if header < 0 {
			continue
		}

		return &Table{
			Columns: rows[header],
			Rows:    normalizeRows(rows[header], rows[header+1:]),
		}, nil
	}
	return nil, fmt.Errorf("%w: workbook has no data sheet", ErrNoTable)
}
