// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"harvest/internal/config"
)

// NewConfig returns a validated config rooted in a per-test temp
// directory. Callers may override fields before use.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(dir, "datasets")
	cfg.Paths.MetadataPath = filepath.Join(dir, "sync_metadata.json")
	cfg.Paths.HistoryDBPath = filepath.Join(dir, "history.db")
	cfg.Paths.LogDir = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
