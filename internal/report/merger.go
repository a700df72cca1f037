package report

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ordergen/internal/locations"
	"ordergen/internal/master"
	"ordergen/internal/tabular"
)

// Report types as exposed to the download UI.
const (
	TypeStock = "Stock"
	TypeOEM   = "OEM"
	TypeCBO   = "CBO"
)

// Output schemas. Column order is part of the contract with the downstream
// consumers of the generated workbooks.
var (
	StockColumns = []string{"Brand", "Dealer", "Location", "Partnumber", "Qty"}
	OEMColumns   = []string{"Brand", "Dealer", "Location", "OrderNumber", "OrderDate",
		"Partnumber", "POQty", "OEMInvoiceNo", "OEMInvoiceDate", "OEMInvoiceQty", "filename"}
	CBOColumns = []string{"Brand", "Dealer", "Location", "PartyName", "PartyCity",
		"PartyCode", "OrderNumber", "OrderDate", "Partnumber", "Qty"}
)

// Required source columns per category. A file missing any of them is
// unusable and skipped with a message (named-column projection, never
// positional).
var (
	stockRequired     = []string{"Part #", "Qty", "Inventory Location", "Status", "Availability"}
	backOrderRequired = []string{"Division", "Order Number", "Order Date", "Part No", "Days Pending", "Pending Qty."}
	inTransitRequired = []string{"Order #", "Part #", "Recd Qty", "Division Name", "Status", "Invoice_Date", "Purchase_Order_Date"}
	cboRequired       = []string{"Account code", "Account Contact No.", "Order Number", "Order Date", "Spares Order Type", "Part No", "Pending Qty", "Division"}
)

// Artifact is one normalized report table for one (type, brand, dealer,
// location) combination.
type Artifact struct {
	Type     string
	Filename string
	Columns  []string
	Rows     [][]string
}

// ReadFunc parses a file into a table; swappable in tests.
type ReadFunc func(path string) (*tabular.Table, error)

// Merger converts raw per-location export tables into normalized report
// artifacts by projecting, coercing, filtering and joining against the
// master location map. It assumes validation has already run and silently
// produces empty output when upstream data is absent.
type Merger struct {
	master *master.Map
	rules  RuleSet
	read   ReadFunc
	now    func() time.Time
}

// Option customizes a Merger.
type Option func(*Merger)

// WithReader swaps the tabular reader.
func WithReader(read ReadFunc) Option {
	return func(m *Merger) { m.read = read }
}

// WithClock fixes the current-date source used by the in-transit age rule.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) { m.now = now }
}

// NewMerger builds a Merger over the given master map and rule set.
func NewMerger(masterMap *master.Map, rules RuleSet, opts ...Option) *Merger {
	m := &Merger{
		master: masterMap,
		rules:  rules,
		read:   tabular.Read,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// sourceTable is one parsed category file with its source filename.
type sourceTable struct {
	filename string
	table    *tabular.Table
}

// MergeLocation produces the populated artifacts for one location, plus any
// soft-error messages. A category with no usable source files simply
// produces no artifact; that is normal.
func (m *Merger) MergeLocation(rec locations.Record) ([]Artifact, []string) {
	var messages []string

	stock := m.loadCategory(rec, locations.CategoryStock, stockRequired, &messages)
	backOrders := m.loadCategory(rec, locations.CategoryBackOrder, backOrderRequired, &messages)
	inTransit := m.loadCategory(rec, locations.CategoryInTransit, inTransitRequired, &messages)
	cbo := m.loadCategory(rec, locations.CategoryCBO, cboRequired, &messages)

	var artifacts []Artifact
	if rows := m.mergeStock(stock); len(rows) > 0 {
		artifacts = append(artifacts, Artifact{
			Type:     TypeStock,
			Filename: fmt.Sprintf("stock_%s_%s_%s.xlsx", rec.Brand, rec.Dealer, rec.Location),
			Columns:  StockColumns,
			Rows:     rows,
		})
	}

	// back-order and in-transit rows share one combined OEM artifact
	oemRows := m.mergeBackOrders(backOrders)
	oemRows = append(oemRows, m.mergeInTransit(inTransit)...)
	if len(oemRows) > 0 {
		artifacts = append(artifacts, Artifact{
			Type:     TypeOEM,
			Filename: fmt.Sprintf("OEM_%s_%s_%s.xlsx", rec.Brand, rec.Dealer, rec.Location),
			Columns:  OEMColumns,
			Rows:     oemRows,
		})
	}

	if rows := m.mergeCBO(cbo); len(rows) > 0 {
		artifacts = append(artifacts, Artifact{
			Type:     TypeCBO,
			Filename: fmt.Sprintf("CBO_%s_%s_%s.xlsx", rec.Brand, rec.Dealer, rec.Location),
			Columns:  CBOColumns,
			Rows:     rows,
		})
	}
	return artifacts, messages
}

// loadCategory reads every file of the category and keeps the ones whose
// required columns all resolve. Read failures and missing columns are
// messages, never fatal.
func (m *Merger) loadCategory(rec locations.Record, cat locations.Category, required []string, messages *[]string) []sourceTable {
	files, err := locations.CategoryFiles(rec, cat)
	if err != nil {
		*messages = append(*messages, fmt.Sprintf("%s: failed to list %s files - %v", rec, cat, err))
		return nil
	}

	var tables []sourceTable
	for _, name := range files {
		table, err := m.read(filepath.Join(rec.Path, name))
		if err != nil {
			*messages = append(*messages, fmt.Sprintf("%s: failed to read %s - %v", rec, name, err))
			continue
		}
		usable := true
		for _, col := range required {
			if !table.HasColumn(col) {
				*messages = append(*messages, fmt.Sprintf(
					"%s: column %q not found in %s; file skipped", rec, col, name))
				usable = false
				break
			}
		}
		if !usable {
			continue
		}
		tables = append(tables, sourceTable{filename: strings.ToLower(strings.TrimSpace(name)), table: table})
	}
	return tables
}

// mergeStock keeps sellable on-hand stock and joins it to the master map on
// the inventory location code.
func (m *Merger) mergeStock(sources []sourceTable) [][]string {
	var out [][]string
	for _, src := range sources {
		part, _ := src.table.ColumnIndex("Part #")
		qtyCol, _ := src.table.ColumnIndex("Qty")
		invLoc, _ := src.table.ColumnIndex("Inventory Location")
		status, _ := src.table.ColumnIndex("Status")
		avail, _ := src.table.ColumnIndex("Availability")

		for i := range src.table.Rows {
			qty, ok := tabular.ParseNumber(src.table.Cell(i, qtyCol))
			if !ok || qty <= 0 {
				continue
			}
			if src.table.Cell(i, status) != "Good" || src.table.Cell(i, avail) != "On Hand" {
				continue
			}
			mapped, ok := m.master.Lookup(src.table.Cell(i, invLoc))
			if !ok {
				continue // unmapped locations don't get reported
			}
			out = append(out, []string{
				mapped.Brand,
				mapped.DealerName,
				mapped.FinalLocation,
				src.table.Cell(i, part),
				formatNumber(qty),
			})
		}
	}
	return out
}

// oemRow is an OEM-schema row candidate with the parsed order date kept
// alongside for the stale-order comparison.
type oemRow struct {
	row     []string
	orderNo string
	date    time.Time
	dateOK  bool
}

// mergeBackOrders applies the pending-day threshold and, under the extended
// rules, drops stale placeholder orders older than the location's newest
// order date.
func (m *Merger) mergeBackOrders(sources []sourceTable) [][]string {
	var candidates []oemRow
	for _, src := range sources {
		division, _ := src.table.ColumnIndex("Division")
		orderNo, _ := src.table.ColumnIndex("Order Number")
		orderDate, _ := src.table.ColumnIndex("Order Date")
		partNo, _ := src.table.ColumnIndex("Part No")
		daysPending, _ := src.table.ColumnIndex("Days Pending")
		pendingQty, _ := src.table.ColumnIndex("Pending Qty.")

		for i := range src.table.Rows {
			days, ok := tabular.ParseNumber(src.table.Cell(i, daysPending))
			if !ok || days > m.rules.PendingDaysLimit {
				continue
			}
			mapped, ok := m.master.Lookup(src.table.Cell(i, division))
			if !ok {
				continue
			}
			date, dateOK := tabular.ParseDate(src.table.Cell(i, orderDate))
			number := src.table.Cell(i, orderNo)
			candidates = append(candidates, oemRow{
				row: []string{
					mapped.Brand,
					mapped.DealerName,
					mapped.FinalLocation,
					number,
					formatDateCell(src.table.Cell(i, orderDate)),
					src.table.Cell(i, partNo),
					src.table.Cell(i, pendingQty),
					"", "", "", // OEM invoice columns reserved for manual entry
					src.filename,
				},
				orderNo: number,
				date:    date,
				dateOK:  dateOK,
			})
		}
	}

	if m.rules.DropStaleOrders {
		candidates = m.dropStaleOrders(candidates)
	}

	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, c.row)
	}
	return rows
}

// dropStaleOrders removes placeholder orders (reserved order-number
// patterns) dated before the newest order date in the candidate set.
func (m *Merger) dropStaleOrders(candidates []oemRow) []oemRow {
	var maxDate time.Time
	haveMax := false
	for _, c := range candidates {
		if c.dateOK && (!haveMax || c.date.After(maxDate)) {
			maxDate = c.date
			haveMax = true
		}
	}
	if !haveMax {
		return candidates
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if m.rules.matchesStalePattern(c.orderNo) && c.dateOK && c.date.Before(maxDate) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// mergeInTransit keeps goods still in transit, invoiced within the last 90
// days, and renames the columns into the OEM schema.
func (m *Merger) mergeInTransit(sources []sourceTable) [][]string {
	today := truncateDay(m.now())

	var out [][]string
	for _, src := range sources {
		orderNo, _ := src.table.ColumnIndex("Order #")
		part, _ := src.table.ColumnIndex("Part #")
		recdQty, _ := src.table.ColumnIndex("Recd Qty")
		divisionName, _ := src.table.ColumnIndex("Division Name")
		status, _ := src.table.ColumnIndex("Status")
		invoiceDate, _ := src.table.ColumnIndex("Invoice_Date")
		poDate, _ := src.table.ColumnIndex("Purchase_Order_Date")

		for i := range src.table.Rows {
			if src.table.Cell(i, status) != "In Transit" {
				continue
			}
			qty, ok := tabular.ParseNumber(src.table.Cell(i, recdQty))
			if !ok || qty <= 0 {
				continue
			}
			invoiced, ok := tabular.ParseDate(src.table.Cell(i, invoiceDate))
			if !ok {
				continue
			}
			ageDays := int(today.Sub(truncateDay(invoiced)).Hours() / 24)
			if ageDays >= 90 {
				continue
			}
			mapped, ok := m.master.Lookup(src.table.Cell(i, divisionName))
			if !ok {
				continue
			}
			out = append(out, []string{
				mapped.Brand,
				mapped.DealerName,
				mapped.FinalLocation,
				src.table.Cell(i, orderNo),
				formatDateCell(src.table.Cell(i, poDate)),
				src.table.Cell(i, part),
				formatNumber(qty),
				"", "", "",
				src.filename,
			})
		}
	}
	return out
}

// mergeCBO filters customer back-orders by the excluded order reasons and
// cancelled item status, then joins on the division code. Party identity
// comes from the master row.
func (m *Merger) mergeCBO(sources []sourceTable) [][]string {
	var out [][]string
	for _, src := range sources {
		accountCode, _ := src.table.ColumnIndex("Account code")
		orderNo, _ := src.table.ColumnIndex("Order Number")
		orderDate, _ := src.table.ColumnIndex("Order Date")
		partNo, _ := src.table.ColumnIndex("Part No")
		pendingQty, _ := src.table.ColumnIndex("Pending Qty")
		division, _ := src.table.ColumnIndex("Division")

		// Order Reason and Order Item Status are optional
		reasonCol, hasReason := src.table.ColumnIndex("Order Reason")
		statusCol, hasStatus := src.table.ColumnIndex("Order Item Status")

		for i := range src.table.Rows {
			if hasReason {
				if m.rules.cboReasonExcluded(src.table.Cell(i, reasonCol)) {
					continue
				}
				if hasStatus {
					status := strings.ToLower(src.table.Cell(i, statusCol))
					if status == "cancelled" || status == "cancel" {
						continue
					}
				}
			}
			mapped, ok := m.master.Lookup(src.table.Cell(i, division))
			if !ok {
				continue
			}
			out = append(out, []string{
				mapped.Brand,
				mapped.DealerName,
				mapped.FinalLocation,
				mapped.AccountName,
				mapped.AccountCity,
				src.table.Cell(i, accountCode),
				src.table.Cell(i, orderNo),
				formatDateCell(src.table.Cell(i, orderDate)),
				src.table.Cell(i, partNo),
				src.table.Cell(i, pendingQty),
			})
		}
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatDateCell normalizes a parseable date cell to ISO; unparseable cells
// pass through untouched.
func formatDateCell(s string) string {
	if d, ok := tabular.ParseDate(s); ok {
		return d.Format("2006-01-02")
	}
	return s
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
