package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	data := buildZip(t, map[string]string{
		"Honda/Metro/Downtown/stock_1.csv": "Part #,Qty\nP-1,5\n",
		"Honda/Metro/Downtown/bo_1.csv":    "Order Number\nWO-1\n",
	})
	dest := t.TempDir()

	require.NoError(t, Extract(bytes.NewReader(data), int64(len(data)), dest, MaxUploadSize))
	assert.FileExists(t, filepath.Join(dest, "Honda", "Metro", "Downtown", "stock_1.csv"))
	assert.FileExists(t, filepath.Join(dest, "Honda", "Metro", "Downtown", "bo_1.csv"))
}

func TestExtractRejectsOversizedArchive(t *testing.T) {
	data := buildZip(t, map[string]string{"a.txt": "x"})
	err := Extract(bytes.NewReader(data), int64(len(data)), t.TempDir(), 1)
	assert.ErrorIs(t, err, ErrArchiveTooLarge)
}

func TestExtractRejectsInvalidContainer(t *testing.T) {
	data := []byte("this is not a zip")
	err := Extract(bytes.NewReader(data), int64(len(data)), t.TempDir(), MaxUploadSize)
	assert.ErrorIs(t, err, ErrInvalidArchive)
}

func TestExtractRejectsTraversal(t *testing.T) {
	data := buildZip(t, map[string]string{"../escape.txt": "x"})
	dest := t.TempDir()
	err := Extract(bytes.NewReader(data), int64(len(data)), dest, MaxUploadSize)
	assert.ErrorIs(t, err, ErrInvalidArchive)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escape.txt"))
}

func TestExtractFile(t *testing.T) {
	data := buildZip(t, map[string]string{"Honda/M/D/stock.csv": "Part #\nP-1\n"})
	path := filepath.Join(t.TempDir(), "upload.zip")
	require.NoError(t, os.WriteFile(path, data, 0644))

	dest := t.TempDir()
	require.NoError(t, ExtractFile(path, dest, MaxUploadSize))
	assert.FileExists(t, filepath.Join(dest, "Honda", "M", "D", "stock.csv"))
}
