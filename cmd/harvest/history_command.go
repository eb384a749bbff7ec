package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"harvest/internal/history"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.Paths.HistoryDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No sync runs recorded yet")
				return nil
			}

			headers := []string{"Run", "Theme", "Started", "Elapsed", "Downloaded", "Skipped", "Failed", "Dry Run"}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.Theme,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
					fmt.Sprintf("%d", run.Downloaded),
					fmt.Sprintf("%d", run.Skipped),
					fmt.Sprintf("%d", run.Failed),
					yesNo(run.DryRun),
				})
			}

			if isTerminal(out) {
				aligns := []columnAlignment{
					alignLeft, alignLeft, alignLeft, alignRight,
					alignRight, alignRight, alignRight, alignLeft,
				}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			}
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}

	cmd.AddCommand(newHistoryShowCommand(cmdCtx))

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newHistoryShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show per-dataset outcomes for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.Paths.HistoryDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.RunDatasets(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No datasets recorded for run %s\n", args[0])
				return nil
			}

			headers := []string{"Dataset", "Name", "Outcome", "Elapsed", "Detail"}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.DatasetID,
					rec.DatasetName,
					rec.Outcome,
					(time.Duration(rec.DurationMS) * time.Millisecond).String(),
					rec.Detail,
				})
			}

			if isTerminal(out) {
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			}
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}
}
