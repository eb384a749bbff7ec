package syncer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"harvest/internal/fileutil"
	"harvest/internal/logging"
	"harvest/internal/services/catalog"
	"harvest/internal/syncmeta"
	"harvest/internal/tabular"
	"harvest/internal/textutil"
)

// task syncs a single dataset against the shared watermark store.
type task struct {
	dataset     catalog.Dataset
	client      *catalog.Client
	meta        *syncmeta.Store
	downloadDir string
	dryRun      bool
	logger      *slog.Logger
}

// run executes the task and converts every failure into a Result; it
// never panics outward or aborts sibling tasks.
func (t *task) run(ctx context.Context) Result {
	started := time.Now()
	result := Result{Dataset: t.dataset}

	if !t.meta.IsStale(t.dataset.ID, t.dataset.LastModified) {
		result.Outcome = OutcomeSkipped
		result.Duration = time.Since(started)
		t.logger.Info("dataset up to date",
			logging.String(logging.FieldDatasetID, t.dataset.ID),
			logging.String("name", t.dataset.Name))
		return result
	}

	if t.dryRun {
		result.Outcome = OutcomePlanned
		result.Duration = time.Since(started)
		t.logger.Info("dataset would be downloaded",
			logging.String(logging.FieldDatasetID, t.dataset.ID),
			logging.String("name", t.dataset.Name))
		return result
	}

	path, rows, err := t.download(ctx)
	result.Duration = time.Since(started)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		t.logger.Error("dataset sync failed",
			logging.String(logging.FieldDatasetID, t.dataset.ID),
			logging.String("name", t.dataset.Name),
			logging.Error(err))
		return result
	}

	result.Outcome = OutcomeDownloaded
	result.Path = path
	result.Rows = rows
	t.logger.Info("dataset downloaded",
		logging.String(logging.FieldDatasetID, t.dataset.ID),
		logging.String("name", t.dataset.Name),
		logging.Int("rows", rows),
		logging.Duration("elapsed", result.Duration))
	return result
}

// download fetches the dataset body, normalizes the header, writes the
// local file, and records the watermark.
func (t *task) download(ctx context.Context) (string, int, error) {
	body, err := t.client.Download(ctx, t.dataset)
	if err != nil {
		return "", 0, err
	}
	defer body.Close()

	var normalized bytes.Buffer
	rows, err := tabular.Rewrite(body, &normalized)
	if err != nil {
		return "", 0, err
	}

	path := filepath.Join(t.downloadDir, textutil.SanitizeToken(t.dataset.ID)+".csv")
	if err := fileutil.WriteFileAtomic(path, normalized.Bytes(), 0o644); err != nil {
		return "", 0, fmt.Errorf("write dataset file: %w", err)
	}

	// Watermark only after the file is durably in place, so a key in
	// the metadata always corresponds to a written file.
	if err := t.meta.MarkSynced(t.dataset.ID, t.dataset.LastModified); err != nil {
		return "", 0, err
	}
	return path, rows, nil
}
