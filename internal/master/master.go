// Package master loads the remotely published location mapping table that
// translates DMS location/division codes into canonical brand, dealer and
// location names. The table is fetched fresh once per pipeline run; an
// unreachable source degrades to an empty map so the run still completes
// (all joins then produce zero rows).
package master

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Row is one master mapping entry. AccountName and AccountCity are optional
// party columns used by the CBO report; they are blank when the published
// sheet does not carry them.
type Row struct {
	Code          string
	Brand         string
	DealerName    string
	FinalLocation string
	AccountName   string
	AccountCity   string
}

// Map is the loaded mapping table, keyed by code. Read-only for the
// duration of a run.
type Map struct {
	rows map[string]Row
}

// Lookup returns the mapping row for a code.
func (m *Map) Lookup(code string) (Row, bool) {
	if m == nil || m.rows == nil {
		return Row{}, false
	}
	row, ok := m.rows[strings.TrimSpace(code)]
	return row, ok
}

// Len returns the number of mapping entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rows)
}

// Empty returns a valid mapping with no entries.
func Empty() *Map {
	return &Map{rows: map[string]Row{}}
}

// Client fetches the master mapping table.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient returns a Client for the published CSV at url.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithHTTP returns a Client using the provided HTTP client.
func NewClientWithHTTP(url string, httpClient *http.Client) *Client {
	return &Client{url: url, httpClient: httpClient}
}

// Fetch downloads and parses the mapping table. Any failure is logged and
// reported, and the returned Map is empty rather than nil: downstream joins
// stay well-defined.
func (c *Client) Fetch(ctx context.Context) (*Map, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Empty(), fmt.Errorf("failed to build master fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("unable to fetch master mapping, continuing with empty map",
			slog.String("error", err.Error()))
		return Empty(), fmt.Errorf("failed to fetch master mapping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("master mapping fetch returned non-OK status",
			slog.Int("status", resp.StatusCode))
		return Empty(), fmt.Errorf("master mapping fetch: unexpected status %d", resp.StatusCode)
	}

	m, err := Parse(resp.Body)
	if err != nil {
		return Empty(), err
	}
	slog.Info("master mapping loaded", slog.Int("entries", m.Len()))
	return m, nil
}

// Parse reads a delimited mapping table. Required columns are Code, Brand,
// Dealer Name and Final Location; a shape mismatch yields an empty map, not
// an error upward (spec'd behavior: it surfaces as empty joins).
func Parse(r io.Reader) (*Map, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return Empty(), fmt.Errorf("failed to parse master mapping CSV: %w", err)
	}
	if len(records) == 0 {
		return Empty(), nil
	}

	header := records[0]
	col := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	codeIdx := col("Code")
	brandIdx := col("Brand")
	dealerIdx := col("Dealer Name")
	locIdx := col("Final Location")
	nameIdx := col("Account Name")
	cityIdx := col("Account City")

	if codeIdx < 0 || brandIdx < 0 || dealerIdx < 0 || locIdx < 0 {
		slog.Warn("master mapping is missing required columns",
			slog.Any("header", header))
		return Empty(), nil
	}

	cell := func(record []string, idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	rows := make(map[string]Row, len(records)-1)
	for _, record := range records[1:] {
		code := cell(record, codeIdx)
		if code == "" {
			continue
		}
		rows[code] = Row{
			Code:          code,
			Brand:         cell(record, brandIdx),
			DealerName:    cell(record, dealerIdx),
			FinalLocation: cell(record, locIdx),
			AccountName:   cell(record, nameIdx),
			AccountCity:   cell(record, cityIdx),
		}
	}
	return &Map{rows: rows}, nil
}
