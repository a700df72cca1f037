package exporter

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// ArchiveName is the bundle filename for a brand's combined dealer reports.
func ArchiveName(brand string) string {
	return fmt.Sprintf("%s,_Combined_Dealerwise_Reports.zip", brand)
}

// BuildArchive bundles the encoded artifact files into one ZIP. Entries are
// written in the given order so the bundle is deterministic; names not
// present in files are skipped.
func BuildArchive(files map[string][]byte, order []string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, name := range order {
		data, ok := files[name]
		if !ok {
			continue
		}
		entry, err := w.Create(name)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := entry.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
