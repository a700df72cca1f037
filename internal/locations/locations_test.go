package locations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLocation(t *testing.T, root, brand, dealer, location string, files ...string) string {
	t.Helper()
	dir := filepath.Join(root, brand, dealer, location)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644))
	}
	return dir
}

func TestEnumerateThreeLevels(t *testing.T) {
	root := t.TempDir()
	makeLocation(t, root, "Honda", "Metro Motors", "Downtown", "stock_1.csv")
	makeLocation(t, root, "Honda", "Metro Motors", "Airport")
	makeLocation(t, root, "Hero", "City Auto", "Main")

	// stray files at every level must be skipped
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Honda", "readme.md"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Honda", "Metro Motors", "summary.xlsx"), []byte("x"), 0644))

	records, err := Enumerate(root)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.DirExists(t, rec.Path)
		assert.NotEmpty(t, rec.Brand)
		assert.NotEmpty(t, rec.Dealer)
		assert.NotEmpty(t, rec.Location)
	}
}

func TestEnumerateMissingRoot(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestMatchesCategory(t *testing.T) {
	assert.True(t, MatchesCategory("Stock_main.xlsx", CategoryStock))
	assert.True(t, MatchesCategory("BO_march.csv", CategoryBackOrder))
	assert.True(t, MatchesCategory("po_export.xls", CategoryBackOrder))
	assert.True(t, MatchesCategory("  IntransiT_feb.csv", CategoryInTransit))
	assert.False(t, MatchesCategory("report.csv", CategoryStock))
}

func TestCheckRequiredFiles(t *testing.T) {
	root := t.TempDir()
	makeLocation(t, root, "Honda", "Metro", "A", "stock_1.csv", "intransit_1.csv", "bo_1.csv")
	makeLocation(t, root, "Honda", "Metro", "B", "stock_1.csv", "po_1.csv")
	makeLocation(t, root, "Honda", "Metro", "C", "unrelated.xlsx")

	records, err := Enumerate(root)
	require.NoError(t, err)

	missing := CheckRequiredFiles(records)
	assert.Contains(t, missing, "Honda/Metro/B - Missing: intransit")
	assert.Contains(t, missing, "Honda/Metro/C - Missing: stock")
	assert.Contains(t, missing, "Honda/Metro/C - Missing: intransit")
	assert.Contains(t, missing, "Honda/Metro/C - Missing: bo")
	// location A is complete; po_ satisfies the back-order requirement for B
	for _, msg := range missing {
		assert.NotContains(t, msg, "Honda/Metro/A")
		assert.NotEqual(t, "Honda/Metro/B - Missing: bo", msg)
	}
	assert.Len(t, missing, 4)
}

func TestCategoryFiles(t *testing.T) {
	root := t.TempDir()
	dir := makeLocation(t, root, "Honda", "Metro", "A", "bo_jan.csv", "po_feb.csv", "stock.csv")

	rec := Record{Brand: "Honda", Dealer: "Metro", Location: "A", Path: dir}
	files, err := CategoryFiles(rec, CategoryBackOrder)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bo_jan.csv", "po_feb.csv"}, files)
}
