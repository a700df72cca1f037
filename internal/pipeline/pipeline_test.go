package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordergen/internal/audit"
	"ordergen/internal/master"
	"ordergen/internal/report"
)

const masterCSV = `Code,Brand,Dealer Name,Final Location
D01,Honda,Metro Motors,Downtown
`

func masterServer(t *testing.T) *master.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(masterCSV))
	}))
	t.Cleanup(srv.Close)
	return master.NewClient(srv.URL)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testParams(root string) Params {
	return Params{
		ExtractedRoot: root,
		StartDate:     day(2024, 1, 1),
		EndDate:       day(2024, 1, 14),
		PeriodDays:    7,
	}
}

func fullTree(t *testing.T) string {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Honda/Metro/Downtown/stock_main.csv": "Part #,Qty,Inventory Location,Status,Availability\nP-1,5,D01,Good,On Hand\n",
		"Honda/Metro/Downtown/bo_jan.csv": "Division,Order Number,Order Date,Part No,Days Pending,Pending Qty.\n" +
			"D01,WO-1,2024-01-03,P-1,10,4\nD01,WO-2,2024-01-10,P-2,5,2\n",
		"Honda/Metro/Downtown/intransit_jan.csv": "Order #,Part #,Recd Qty,Division Name,Status,Invoice_Date,Purchase_Order_Date\n" +
			"O-1,P-9,3,D01,In Transit,2024-01-05,2024-01-04\nO-2,P-8,2,D01,In Transit,2024-01-12,2024-01-11\n",
	})
	return root
}

func TestPipelineEndToEnd(t *testing.T) {
	root := fullTree(t)
	clock := func() time.Time { return day(2024, 1, 20) }

	var progressCalls []string
	p := New(masterServer(t), report.StandardRules, audit.Discard{},
		WithMergerOptions(report.WithClock(clock)),
		WithProgress(func(current, total int, msg string) {
			progressCalls = append(progressCalls, msg)
		}))

	run, err := p.Validate(context.Background(), testParams(root))
	require.NoError(t, err)
	require.Len(t, run.Locations, 1)
	assert.Empty(t, run.MissingFiles)
	assert.Empty(t, run.Coverage.Gaps)
	assert.False(t, run.HasFindings())

	require.NoError(t, p.Merge(context.Background(), run))
	assert.Equal(t, "Honda", run.Brand)
	require.Len(t, progressCalls, 1)
	assert.Contains(t, progressCalls[0], "Downtown (1/1)")

	require.Contains(t, run.Artifacts, "stock_Honda_Metro_Downtown.xlsx")
	require.Contains(t, run.Artifacts, "OEM_Honda_Metro_Downtown.xlsx")
	assert.Equal(t, []string{"stock_Honda_Metro_Downtown.xlsx", "OEM_Honda_Metro_Downtown.xlsx"}, run.ArtifactOrder)

	// the OEM preview carries both back-order and in-transit rows
	preview := run.Previews["OEM_Honda_Metro_Downtown.xlsx"]
	assert.Len(t, preview.Rows, 4)

	// combined archive bundles every artifact
	archive, err := run.Archive()
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
	assert.Equal(t, "Honda,_Combined_Dealerwise_Reports.zip", run.ArchiveFilename())
}

func TestPipelineSoftGateFindings(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Honda/Metro/Downtown/stock_main.csv": "Part #,Qty,Inventory Location,Status,Availability\nP-1,5,D01,Good,On Hand\n",
	})

	p := New(masterServer(t), report.StandardRules, audit.Discard{})
	run, err := p.Validate(context.Background(), testParams(root))
	require.NoError(t, err)

	assert.True(t, run.HasFindings())
	assert.Contains(t, run.MissingFiles, "Honda/Metro/Downtown - Missing: intransit")
	assert.Contains(t, run.MissingFiles, "Honda/Metro/Downtown - Missing: bo")
	assert.Len(t, run.Coverage.Gaps, 2)

	// the caller may still proceed past the gate
	require.NoError(t, p.Merge(context.Background(), run))
	assert.Contains(t, run.Artifacts, "stock_Honda_Metro_Downtown.xlsx")
}

func TestPipelineUnreachableMasterDegrades(t *testing.T) {
	root := fullTree(t)
	p := New(master.NewClient("http://127.0.0.1:1/master.csv"), report.StandardRules, audit.Discard{},
		WithMergerOptions(report.WithClock(func() time.Time { return day(2024, 1, 20) })))

	run, err := p.Validate(context.Background(), testParams(root))
	require.NoError(t, err)
	require.NoError(t, p.Merge(context.Background(), run))

	// joins against the empty map yield zero artifacts, not an error
	assert.Empty(t, run.Artifacts)
	require.NotEmpty(t, run.MergeMessages)
	assert.Contains(t, run.MergeMessages[0], "master mapping unavailable")
}

func TestPipelineStopSignalBetweenLocations(t *testing.T) {
	root := fullTree(t)
	p := New(masterServer(t), report.StandardRules, audit.Discard{})

	run, err := p.Validate(context.Background(), testParams(root))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.Merge(ctx, run)
	assert.Error(t, err)
	assert.Empty(t, run.Artifacts)
}

func TestPeriodDaysByType(t *testing.T) {
	days, ok := PeriodDaysByType("Week")
	require.True(t, ok)
	assert.Equal(t, 7, days)

	_, ok = PeriodDaysByType("Fortnight")
	assert.False(t, ok)
}
