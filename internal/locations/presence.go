package locations

import (
	"fmt"
	"strings"
)

// Category is a document category identified by filename prefix convention.
type Category string

const (
	CategoryStock     Category = "stock"
	CategoryBackOrder Category = "bo"
	CategoryInTransit Category = "intransit"
	CategoryCBO       Category = "cbo"
)

// categoryPrefixes is the reviewed prefix list per category. Back-order
// exports arrive under either a "bo" or a "po" filename prefix depending on
// the DMS version; the other categories have a single spelling.
var categoryPrefixes = map[Category][]string{
	CategoryStock:     {"stock"},
	CategoryBackOrder: {"bo", "po"},
	CategoryInTransit: {"intransit"},
	CategoryCBO:       {"cbo"},
}

// requiredCategories are the categories every location must ship at least
// one file for. CBO is optional.
var requiredCategories = []Category{CategoryStock, CategoryInTransit, CategoryBackOrder}

// MatchesCategory reports whether a filename belongs to the category, by
// case-insensitive prefix.
func MatchesCategory(filename string, cat Category) bool {
	name := strings.ToLower(strings.TrimSpace(filename))
	for _, prefix := range categoryPrefixes[cat] {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// CategoryFiles returns the filenames in the location directory that belong
// to the category, in listing order.
func CategoryFiles(rec Record, cat Category) ([]string, error) {
	names, err := ListFiles(rec.Path)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, name := range names {
		if MatchesCategory(name, cat) {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// CheckRequiredFiles verifies that every location has at least one file per
// required category. One message per missing (location, category) pair;
// extra or unrecognized files are never an error. Unreadable location
// directories report every required category as missing.
func CheckRequiredFiles(records []Record) []string {
	var missing []string
	for _, rec := range records {
		names, err := ListFiles(rec.Path)
		if err != nil {
			names = nil
		}
		for _, cat := range requiredCategories {
			found := false
			for _, name := range names {
				if MatchesCategory(name, cat) {
					found = true
					break
				}
			}
			if !found {
				missing = append(missing, fmt.Sprintf("%s - Missing: %s", rec, cat))
			}
		}
	}
	return missing
}
