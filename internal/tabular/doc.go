// Package tabular reads the heterogeneous export files found inside dealer
// archives into a single normalized Table shape. Format dispatch is by file
// extension; ambiguous legacy formats fall through an ordered cascade of
// parser strategies. Every failure is soft: callers log and move on to the
// next file.
package tabular
