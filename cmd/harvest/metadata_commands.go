package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"harvest/internal/services/catalog"
)

func newMetadataCommand(cmdCtx *commandContext) *cobra.Command {
	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "Inspect and manage dataset watermarks",
	}

	metadataCmd.AddCommand(newMetadataShowCommand(cmdCtx))
	metadataCmd.AddCommand(newMetadataForgetCommand(cmdCtx))
	metadataCmd.AddCommand(newMetadataClearCommand(cmdCtx))

	return metadataCmd
}

func newMetadataShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List stored dataset watermarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, meta, err := cmdCtx.openMetadata()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			watermarks := meta.Watermarks()
			if len(watermarks) == 0 {
				fmt.Fprintf(out, "No watermarks stored at %s\n", cfg.Paths.MetadataPath)
				return nil
			}

			headers := []string{"Dataset", "Last Synced"}
			rows := make([][]string, 0, len(watermarks))
			for _, wm := range watermarks {
				rows = append(rows, []string{wm.DatasetID, wm.Timestamp.Format(catalog.TimestampLayout)})
			}

			if isTerminal(out) {
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft}))
			} else {
				for _, row := range rows {
					fmt.Fprintln(out, strings.Join(row, "\t"))
				}
			}
			fmt.Fprintf(out, "%d watermark(s) at %s\n", len(watermarks), cfg.Paths.MetadataPath)
			return nil
		},
	}
}

func newMetadataForgetCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <dataset-id>",
		Short: "Drop one dataset watermark so the next sync re-downloads it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, meta, err := cmdCtx.openMetadata()
			if err != nil {
				return err
			}
			if err := meta.Forget(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot watermark for %s\n", args[0])
			return nil
		},
	}
}

func newMetadataClearCommand(cmdCtx *commandContext) *cobra.Command {
	var confirmFlag bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop all watermarks so the next sync re-downloads everything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmFlag {
				return fmt.Errorf("clearing removes all watermarks; re-run with --yes to confirm")
			}
			_, meta, err := cmdCtx.openMetadata()
			if err != nil {
				return err
			}
			count := meta.Count()
			if err := meta.Reset(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d watermark(s)\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmFlag, "yes", false, "Confirm clearing all watermarks")
	return cmd
}
