// Command harvest syncs themed CSV datasets from an open-data catalog
// into a local directory, tracking per-dataset watermarks so unchanged
// datasets are skipped on subsequent runs.
package main
