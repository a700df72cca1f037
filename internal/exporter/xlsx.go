package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"ordergen/internal/report"
)

const sheetName = "Sheet1"

// EncodeArtifact serializes one report artifact to workbook bytes: a single
// sheet, header row first, then the data rows in order. Serialization is
// lossless for the cell types the merger emits.
func EncodeArtifact(a report.Artifact) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(a.Columns))
	for i, col := range a.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header for %s: %w", a.Filename, err)
	}

	for i, row := range a.Rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell axis: %w", err)
		}
		if err := f.SetSheetRow(sheetName, axis, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d for %s: %w", i, a.Filename, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook %s: %w", a.Filename, err)
	}
	return buf.Bytes(), nil
}
