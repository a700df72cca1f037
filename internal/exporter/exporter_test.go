package exporter

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ordergen/internal/report"
	"ordergen/internal/tabular"
)

func sampleArtifact() report.Artifact {
	return report.Artifact{
		Type:     report.TypeStock,
		Filename: "stock_Honda_Metro_Downtown.xlsx",
		Columns:  report.StockColumns,
		Rows: [][]string{
			{"Honda", "Metro Motors", "Downtown", "P-100", "1200"},
			{"Honda", "Metro Motors", "Airport", "P-105", "7"},
		},
	}
}

func TestEncodeArtifactRoundTrip(t *testing.T) {
	artifact := sampleArtifact()
	data, err := EncodeArtifact(artifact)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, artifact.Columns, rows[0])
	assert.Equal(t, artifact.Rows[0], rows[1])
	assert.Equal(t, artifact.Rows[1], rows[2])
}

func TestEncodeArtifactEmptyRows(t *testing.T) {
	artifact := report.Artifact{
		Type:     report.TypeOEM,
		Filename: "OEM_x.xlsx",
		Columns:  report.OEMColumns,
	}
	data, err := EncodeArtifact(artifact)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, artifact.Columns, rows[0])
}

func TestBuildArchiveRoundTrip(t *testing.T) {
	artifact := sampleArtifact()
	encoded, err := EncodeArtifact(artifact)
	require.NoError(t, err)

	files := map[string][]byte{
		artifact.Filename: encoded,
		"CBO_Honda_Metro_Downtown.xlsx": []byte("placeholder"),
	}
	order := []string{artifact.Filename, "CBO_Honda_Metro_Downtown.xlsx"}

	archive, err := BuildArchive(files, order)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, artifact.Filename, zr.File[0].Name)

	// the workbook inside the archive reproduces the exact row set
	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()

	var extracted bytes.Buffer
	_, err = extracted.ReadFrom(rc)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(extracted.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, artifact.Rows[1], rows[2])
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "Honda,_Combined_Dealerwise_Reports.zip", ArchiveName("Honda"))
}

func TestEncodeCSVWithBOM(t *testing.T) {
	table := &tabular.Table{
		Columns: []string{"Brand", "Period"},
		Rows:    [][]string{{"Honda", "2024-01-01 to 2024-01-07"}},
	}
	data, err := EncodeCSV(table)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(data), "Brand,Period\n")
	assert.Contains(t, string(data), "Honda,2024-01-01 to 2024-01-07\n")
}
