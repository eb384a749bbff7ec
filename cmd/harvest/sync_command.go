package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"harvest/internal/history"
	"harvest/internal/logging"
	"harvest/internal/services/catalog"
	"harvest/internal/syncer"
	"harvest/internal/syncmeta"
)

func newSyncCommand(cmdCtx *commandContext) *cobra.Command {
	var themeFlag string
	var concurrencyFlag int
	var dryRunFlag bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync catalog datasets matching the configured theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return errors.New("another harvest sync is already running")
			}
			defer func() { _ = lock.Unlock() }()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			meta, err := syncmeta.Load(cfg.Paths.MetadataPath, logger)
			if err != nil {
				return err
			}

			client := catalog.NewClient(cfg.Catalog.APIURL, &http.Client{Timeout: cfg.RequestTimeout()}, logger)
			orchestrator := syncer.New(cfg, client, meta, logger)

			summary, err := orchestrator.Run(ctx, syncer.Options{
				Theme:       themeFlag,
				Concurrency: concurrencyFlag,
				DryRun:      dryRunFlag,
			})
			if err != nil {
				return err
			}

			if !summary.DryRun {
				if recordErr := recordHistory(cmd, cfg.Paths.HistoryDBPath, summary); recordErr != nil {
					logger.Warn("recording run history failed", logging.Error(recordErr))
				}
			}

			// Per-dataset failures are already counted in the summary;
			// only listing, lock, and load failures abort the run.
			printSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&themeFlag, "theme", "", "Override the configured dataset theme")
	cmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Override the configured worker count")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Report what would be downloaded without fetching")
	return cmd
}

func recordHistory(cmd *cobra.Command, dbPath string, summary *syncer.Summary) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run := history.Run{
		ID:         summary.RunID,
		Theme:      summary.Theme,
		DryRun:     summary.DryRun,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Downloaded: summary.Count(syncer.OutcomeDownloaded),
		Skipped:    summary.Count(syncer.OutcomeSkipped),
		Failed:     summary.Count(syncer.OutcomeFailed),
	}

	records := make([]history.DatasetRecord, 0, len(summary.Results))
	for _, result := range summary.Results {
		record := history.DatasetRecord{
			RunID:       summary.RunID,
			DatasetID:   result.Dataset.ID,
			DatasetName: result.Dataset.Name,
			Outcome:     string(result.Outcome),
			DurationMS:  result.Duration.Milliseconds(),
		}
		if result.Err != nil {
			record.Detail = result.Err.Error()
		}
		records = append(records, record)
	}

	return store.RecordRun(cmd.Context(), run, records)
}

func printSummary(cmd *cobra.Command, summary *syncer.Summary) {
	out := cmd.OutOrStdout()

	headers := []string{"Dataset", "Name", "Outcome", "Rows", "Detail"}
	rows := make([][]string, 0, len(summary.Results))
	for _, result := range summary.Results {
		detail := ""
		switch {
		case result.Err != nil:
			detail = result.Err.Error()
		case result.Path != "":
			detail = result.Path
		}
		rowCount := ""
		if result.Outcome == syncer.OutcomeDownloaded {
			rowCount = fmt.Sprintf("%d", result.Rows)
		}
		rows = append(rows, []string{
			result.Dataset.ID,
			result.Dataset.Name,
			string(result.Outcome),
			rowCount,
			detail,
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
	}

	fmt.Fprintf(out, "Run %s (theme %q, dry run: %s): %d downloaded, %d planned, %d skipped, %d failed in %s\n",
		summary.RunID, summary.Theme, yesNo(summary.DryRun),
		summary.Count(syncer.OutcomeDownloaded),
		summary.Count(syncer.OutcomePlanned),
		summary.Count(syncer.OutcomeSkipped),
		summary.Count(syncer.OutcomeFailed),
		summary.Duration().Round(10*time.Millisecond))
}
