package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"harvest/internal/config"
	"harvest/internal/logging"
	"harvest/internal/services/catalog"
	"harvest/internal/syncmeta"
)

// Options override per-run settings from the configuration.
type Options struct {
	Theme       string
	Concurrency int
	DryRun      bool
}

// Orchestrator fans dataset sync tasks out across a bounded worker pool
// and aggregates their results.
type Orchestrator struct {
	cfg    *config.Config
	client *catalog.Client
	meta   *syncmeta.Store
	logger *slog.Logger
}

// New constructs an orchestrator.
func New(cfg *config.Config, client *catalog.Client, meta *syncmeta.Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		client: client,
		meta:   meta,
		logger: logging.NewComponentLogger(logger, "syncer"),
	}
}

// MetadataPath returns the watermark metadata file location.
func (o *Orchestrator) MetadataPath() string {
	return o.meta.Path()
}

// Run executes one sync: fetch and filter the catalog listing, sync
// every matched dataset concurrently, and persist the final metadata.
// Only a listing failure returns an error; per-dataset failures are
// carried in the summary.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	theme := opts.Theme
	if theme == "" {
		theme = o.cfg.Catalog.Theme
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = o.cfg.Sync.Concurrency
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		Theme:     theme,
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}
	runLogger := o.logger.With(logging.String(logging.FieldRunID, summary.RunID))

	datasets, err := o.client.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	matched := catalog.FilterByTheme(datasets, theme)
	runLogger.Info("catalog listed",
		logging.Int("dataset_count", len(datasets)),
		logging.Int("matched_count", len(matched)),
		logging.String("theme", theme))

	results := make([]Result, len(matched))
	var group errgroup.Group
	group.SetLimit(concurrency)
	for i, ds := range matched {
		group.Go(func() error {
			t := &task{
				dataset:     ds,
				client:      o.client,
				meta:        o.meta,
				downloadDir: o.cfg.Paths.DownloadDir,
				dryRun:      opts.DryRun,
				logger:      runLogger,
			}
			results[i] = t.run(ctx)
			return nil
		})
	}
	// Tasks report failures through their Result, so Wait only blocks
	// until the pool drains.
	_ = group.Wait()

	summary.Results = results
	summary.FinishedAt = time.Now()

	if !opts.DryRun {
		if err := o.meta.Persist(); err != nil {
			runLogger.Error("final metadata persist failed", logging.Error(err))
			return summary, err
		}
	}

	runLogger.Info("sync finished",
		logging.Int("downloaded", summary.Count(OutcomeDownloaded)),
		logging.Int("skipped", summary.Count(OutcomeSkipped)),
		logging.Int("failed", summary.Count(OutcomeFailed)),
		logging.Duration("elapsed", summary.Duration()))
	return summary, nil
}
