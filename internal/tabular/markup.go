package tabular

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// readHTMLTable extracts the first <table> from a markup export. Some DMS
// vendors ship "Excel" downloads that are really HTML tables.
func readHTMLTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no <table> element", ErrNoTable)
	}

	var columns []string
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if columns == nil {
			columns = cells
			return
		}
		rows = append(rows, cells)
	})
	if columns == nil {
		return nil, fmt.Errorf("%w: table has no rows", ErrNoTable)
	}

	return &Table{Columns: columns, Rows: normalizeRows(columns, rows)}, nil
}
