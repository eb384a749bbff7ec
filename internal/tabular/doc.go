// Package tabular rewrites CSV documents with canonical column headers.
// Data rows pass through unchanged; only the header row is renamed.
package tabular
