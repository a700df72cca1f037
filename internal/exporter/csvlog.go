package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"ordergen/internal/tabular"
)

// utf8BOM helps Excel recognize UTF-8 CSV downloads.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodeCSV serializes a table (header plus rows) to CSV bytes with a UTF-8
// BOM prefix. Used for the downloadable validation gap log.
func EncodeCSV(table *tabular.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, row := range table.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
