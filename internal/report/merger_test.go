package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordergen/internal/locations"
	"ordergen/internal/master"
)

const masterCSV = `Code,Brand,Dealer Name,Final Location,Account Name,Account City
D01,Honda,Metro Motors,Downtown,Metro Motors Pvt Ltd,Pune
D02,Honda,Metro Motors,Airport,Metro Motors Pvt Ltd,Pune
`

func testMaster(t *testing.T) *master.Map {
	t.Helper()
	m, err := master.Parse(strings.NewReader(masterCSV))
	require.NoError(t, err)
	return m
}

func testLocation(t *testing.T, files map[string]string) locations.Record {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return locations.Record{Brand: "Honda", Dealer: "Metro", Location: "Downtown", Path: dir}
}

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }
}

func artifactByType(artifacts []Artifact, typ string) (Artifact, bool) {
	for _, a := range artifacts {
		if a.Type == typ {
			return a, true
		}
	}
	return Artifact{}, false
}

func TestMergeStock(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"stock_main.csv": `Part #,Qty,Inventory Location,Status,Availability
P-100,"1,200",D01,Good,On Hand
P-101,50,D01,Damaged,On Hand
P-102,10,D01,Good,Allocated
P-103,0,D01,Good,On Hand
P-104,5,UNMAPPED,Good,On Hand
P-105,7,D02,Good,On Hand
`,
	})

	merger := NewMerger(testMaster(t), StandardRules)
	artifacts, messages := merger.MergeLocation(rec)
	assert.Empty(t, messages)

	stock, ok := artifactByType(artifacts, TypeStock)
	require.True(t, ok)
	assert.Equal(t, "stock_Honda_Metro_Downtown.xlsx", stock.Filename)
	assert.Equal(t, StockColumns, stock.Columns)
	require.Len(t, stock.Rows, 2)
	assert.Equal(t, []string{"Honda", "Metro Motors", "Downtown", "P-100", "1200"}, stock.Rows[0])
	assert.Equal(t, []string{"Honda", "Metro Motors", "Airport", "P-105", "7"}, stock.Rows[1])
}

const backOrderHeader = "Division,Order Number,Order Date,Part No,Days Pending,Pending Qty.\n"

func TestMergeBackOrderThreshold(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"bo_jan.csv": backOrderHeader +
			"D01,WO-55,2024-01-10,P-1,50,4\n" +
			"D01,WO-56,2024-01-11,P-2,10,2\n" +
			"D01,WO-57,2024-01-12,P-3,n/a,1\n",
	})

	merger := NewMerger(testMaster(t), StandardRules)
	artifacts, _ := merger.MergeLocation(rec)

	oem, ok := artifactByType(artifacts, TypeOEM)
	require.True(t, ok)
	require.Len(t, oem.Rows, 1)
	assert.Equal(t, "WO-56", oem.Rows[0][3])
	assert.Equal(t, "2024-01-11", oem.Rows[0][4])
	assert.Equal(t, "bo_jan.csv", oem.Rows[0][10])
	// reserved invoice-reconciliation columns stay empty
	assert.Equal(t, "", oem.Rows[0][7])
	assert.Equal(t, "", oem.Rows[0][8])
	assert.Equal(t, "", oem.Rows[0][9])
}

func TestMergeBackOrderStaleFilter(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"bo_jan.csv": backOrderHeader +
			"D01,SAP-000123,2024-01-05,P-1,10,4\n" + // stale placeholder, older than max
			"D01,SAP-200777,2024-01-20,P-2,10,2\n" + // matches pattern but is the max date
			"D01,WO-55,2024-01-02,P-3,50,1\n" + // over 45-day threshold
			"D01,WO-10,2024-01-03,P-4,10,6\n", // plain order, kept regardless of age
	})

	merger := NewMerger(testMaster(t), ExtendedPendingRules)
	artifacts, _ := merger.MergeLocation(rec)

	oem, ok := artifactByType(artifacts, TypeOEM)
	require.True(t, ok)
	require.Len(t, oem.Rows, 2)
	assert.Equal(t, "SAP-200777", oem.Rows[0][3])
	assert.Equal(t, "WO-10", oem.Rows[1][3])
}

func TestMergeBackOrder45DayThresholdKeeps40(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"bo_jan.csv": backOrderHeader + "D01,WO-1,2024-01-10,P-1,40,4\n",
	})

	standard, _ := NewMerger(testMaster(t), StandardRules).MergeLocation(rec)
	_, ok := artifactByType(standard, TypeOEM)
	assert.False(t, ok, "40 days pending exceeds the standard 35-day limit")

	extended, _ := NewMerger(testMaster(t), ExtendedPendingRules).MergeLocation(rec)
	oem, ok := artifactByType(extended, TypeOEM)
	require.True(t, ok)
	assert.Len(t, oem.Rows, 1)
}

const inTransitHeader = "Order #,Part #,Recd Qty,Division Name,Status,Invoice_Date,Purchase_Order_Date\n"

func TestMergeInTransit(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"intransit_jan.csv": inTransitHeader +
			"O-1,P-1,3,D01,In Transit,2024-02-01,2024-01-15\n" + // kept
			"O-2,P-2,3,D01,Received,2024-02-01,2024-01-15\n" + // wrong status
			"O-3,P-3,0,D01,In Transit,2024-02-01,2024-01-15\n" + // zero qty
			"O-4,P-4,2,D01,In Transit,2023-10-01,2023-09-15\n" + // older than 90 days
			"O-5,P-5,2,UNMAPPED,In Transit,2024-02-01,2024-01-15\n", // unmapped division
	})

	merger := NewMerger(testMaster(t), StandardRules, WithClock(fixedClock(2024, 3, 1)))
	artifacts, _ := merger.MergeLocation(rec)

	oem, ok := artifactByType(artifacts, TypeOEM)
	require.True(t, ok)
	require.Len(t, oem.Rows, 1)
	assert.Equal(t, "O-1", oem.Rows[0][3])
	// Purchase_Order_Date becomes the OrderDate column
	assert.Equal(t, "2024-01-15", oem.Rows[0][4])
	assert.Equal(t, "3", oem.Rows[0][6])
}

func TestMergeCombinesBackOrderAndInTransitIntoOEM(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"bo_jan.csv":        backOrderHeader + "D01,WO-1,2024-01-10,P-1,10,4\n",
		"intransit_jan.csv": inTransitHeader + "O-1,P-2,3,D01,In Transit,2024-02-20,2024-01-15\n",
	})

	merger := NewMerger(testMaster(t), StandardRules, WithClock(fixedClock(2024, 3, 1)))
	artifacts, _ := merger.MergeLocation(rec)

	oem, ok := artifactByType(artifacts, TypeOEM)
	require.True(t, ok)
	require.Len(t, oem.Rows, 2)
	// back-order rows first, then in-transit
	assert.Equal(t, "WO-1", oem.Rows[0][3])
	assert.Equal(t, "O-1", oem.Rows[1][3])
	assert.Equal(t, OEMColumns, oem.Columns)
}

const cboHeader = "Account code,Account Contact No.,Order Number,Order Date,Spares Order Type,Part No,Pending Qty,Division,Order Reason,Order Item Status\n"

func TestMergeCBO(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"cbo_jan.csv": cboHeader +
			"AC1,999,ON-1,2024-01-10,Spares,P-1,4,D01,Retail,Open\n" + // kept
			"AC2,999,ON-2,2024-01-10,Spares,P-2,4,D01,TOPS,Open\n" + // excluded reason
			"AC3,999,ON-3,2024-01-10,Spares,P-3,4,D01,VOR Order CVBU special,Open\n" + // contains pattern
			"AC4,999,ON-4,2024-01-10,Spares,P-4,4,D01,Retail,Cancelled\n" + // cancelled status
			"AC5,999,ON-5,2024-01-10,Spares,P-5,4,UNMAPPED,Retail,Open\n", // unmapped
	})

	merger := NewMerger(testMaster(t), StandardRules)
	artifacts, _ := merger.MergeLocation(rec)

	cbo, ok := artifactByType(artifacts, TypeCBO)
	require.True(t, ok)
	assert.Equal(t, "CBO_Honda_Metro_Downtown.xlsx", cbo.Filename)
	require.Len(t, cbo.Rows, 1)
	assert.Equal(t, []string{
		"Honda", "Metro Motors", "Downtown",
		"Metro Motors Pvt Ltd", "Pune", "AC1",
		"ON-1", "2024-01-10", "P-1", "4",
	}, cbo.Rows[0])
}

func TestMergeCBOWithoutReasonColumnKeepsAll(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"cbo_jan.csv": "Account code,Account Contact No.,Order Number,Order Date,Spares Order Type,Part No,Pending Qty,Division\n" +
			"AC1,999,ON-1,2024-01-10,Spares,P-1,4,D01\n" +
			"AC2,999,ON-2,2024-01-10,Spares,P-2,2,D01\n",
	})

	merger := NewMerger(testMaster(t), StandardRules)
	artifacts, _ := merger.MergeLocation(rec)

	cbo, ok := artifactByType(artifacts, TypeCBO)
	require.True(t, ok)
	assert.Len(t, cbo.Rows, 2)
}

func TestMergeMissingColumnIsSoftError(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"stock_bad.csv":  "Part #,Qty\nP-1,5\n",
		"stock_good.csv": "Part #,Qty,Inventory Location,Status,Availability\nP-2,5,D01,Good,On Hand\n",
	})

	merger := NewMerger(testMaster(t), StandardRules)
	artifacts, messages := merger.MergeLocation(rec)

	stock, ok := artifactByType(artifacts, TypeStock)
	require.True(t, ok)
	assert.Len(t, stock.Rows, 1)

	require.NotEmpty(t, messages)
	assert.Contains(t, messages[0], `column "Inventory Location" not found in stock_bad.csv`)
}

func TestMergeEmptyMasterYieldsNoArtifacts(t *testing.T) {
	rec := testLocation(t, map[string]string{
		"stock_main.csv": "Part #,Qty,Inventory Location,Status,Availability\nP-1,5,D01,Good,On Hand\n",
	})

	merger := NewMerger(master.Empty(), StandardRules)
	artifacts, messages := merger.MergeLocation(rec)
	assert.Empty(t, artifacts)
	assert.Empty(t, messages)
}

func TestMergeNoFilesNoArtifacts(t *testing.T) {
	rec := testLocation(t, map[string]string{})
	artifacts, messages := NewMerger(testMaster(t), StandardRules).MergeLocation(rec)
	assert.Empty(t, artifacts)
	assert.Empty(t, messages)
}

func TestRuleSetByName(t *testing.T) {
	rs, err := RuleSetByName("")
	require.NoError(t, err)
	assert.Equal(t, StandardRules.Name, rs.Name)

	rs, err = RuleSetByName("Extended-Pending")
	require.NoError(t, err)
	assert.Equal(t, 45.0, rs.PendingDaysLimit)

	_, err = RuleSetByName("bogus")
	assert.Error(t, err)
}
