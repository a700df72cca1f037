// Package exporter serializes report artifacts to workbook files, bundles
// them into the combined download archive and renders the validation gap
// log as CSV.
package exporter
