package locations

import (
	"fmt"
	"os"
	"path/filepath"
)

// Record identifies one dealer location directory inside an extracted
// archive. Identity is (Brand, Dealer, Location); Path is the directory
// holding that location's export files.
type Record struct {
	Brand    string
	Dealer   string
	Location string
	Path     string
}

func (r Record) String() string {
	return fmt.Sprintf("%s/%s/%s", r.Brand, r.Dealer, r.Location)
}

// Enumerate walks exactly three directory levels below root
// (brand/dealer/location) and returns the leaf location records. Traversal
// follows the underlying directory listing order without re-sorting; that
// order drives iteration and progress reporting for the whole pipeline.
// Non-directory entries at any level are skipped silently.
func Enumerate(root string) ([]Record, error) {
	brands, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction root %s: %w", root, err)
	}

	var records []Record
	for _, brand := range brands {
		if !brand.IsDir() {
			continue
		}
		brandPath := filepath.Join(root, brand.Name())
		dealers, err := os.ReadDir(brandPath)
		if err != nil {
			continue
		}
		for _, dealer := range dealers {
			if !dealer.IsDir() {
				continue
			}
			dealerPath := filepath.Join(brandPath, dealer.Name())
			locs, err := os.ReadDir(dealerPath)
			if err != nil {
				continue
			}
			for _, loc := range locs {
				if !loc.IsDir() {
					continue
				}
				records = append(records, Record{
					Brand:    brand.Name(),
					Dealer:   dealer.Name(),
					Location: loc.Name(),
					Path:     filepath.Join(dealerPath, loc.Name()),
				})
			}
		}
	}
	return records, nil
}

// ListFiles returns the names of the regular files in a location directory,
// in directory listing order.
func ListFiles(locationPath string) ([]string, error) {
	entries, err := os.ReadDir(locationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read location directory %s: %w", locationPath, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
