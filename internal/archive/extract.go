// Package archive handles the uploaded dealer ZIP: size enforcement and
// extraction to a scratch directory. Unlike the rest of the pipeline these
// failures are fatal: an oversized or unreadable container aborts the run
// with no partial output.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadSize is the default archive size cap.
const MaxUploadSize = 200 << 20 // 200MB

var (
	ErrArchiveTooLarge = errors.New("archive exceeds size limit")
	ErrInvalidArchive  = errors.New("not a valid zip archive")
)

// Extract unpacks the ZIP at (r, size) into destDir. Entry paths are
// confined to destDir; a traversal attempt invalidates the whole archive.
func Extract(r io.ReaderAt, size int64, destDir string, maxSize int64) error {
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrArchiveTooLarge, size, maxSize)
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	for _, file := range zr.File {
		if err := extractEntry(file, destDir); err != nil {
			return err
		}
	}
	return nil
}

// ExtractFile unpacks the ZIP file at path into destDir.
func ExtractFile(path, destDir string, maxSize int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}
	return Extract(f, info.Size(), destDir, maxSize)
}

func extractEntry(file *zip.File, destDir string) error {
	cleaned := filepath.Clean(file.Name)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return fmt.Errorf("%w: entry %q escapes extraction root", ErrInvalidArchive, file.Name)
	}
	target := filepath.Join(destDir, cleaned)

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", file.Name, err)
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", file.Name, err)
	}
	return nil
}
