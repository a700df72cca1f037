// Package report merges validated per-location export tables into the
// normalized downstream report artifacts: stock, the combined back-order and
// in-transit OEM report, and the customer back-order (CBO) report. All joins
// against the master location map are inner joins: rows whose code is
// unmapped are silently dropped.
package report
