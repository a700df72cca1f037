// Package validation partitions a date range into periods and checks, per
// dealer location, that the period-bearing document categories have row
// coverage in every period. Findings form a soft gate for the pipeline.
package validation
